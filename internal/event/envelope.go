package event

import (
	"time"

	"github.com/google/uuid"
)

// Type discriminator for event payloads.
type Type int32

const (
	TypeUnknown Type = iota
	TypeDeposit
	TypeWithdraw
	TypeApproval
	TypeTransfer
	TypeLiquidationInitiated
	TypeSeizureExecuted
	TypeLiquidationExpired
)

func (t Type) String() string {
	switch t {
	case TypeDeposit:
		return "Deposit"
	case TypeWithdraw:
		return "Withdraw"
	case TypeApproval:
		return "Approval"
	case TypeTransfer:
		return "Transfer"
	case TypeLiquidationInitiated:
		return "LiquidationInitiated"
	case TypeSeizureExecuted:
		return "SeizureExecuted"
	case TypeLiquidationExpired:
		return "LiquidationExpired"
	default:
		return "Unknown"
	}
}

// ParseType maps the string form back to a Type (used by event-log replay).
func ParseType(s string) Type {
	switch s {
	case "Deposit":
		return TypeDeposit
	case "Withdraw":
		return TypeWithdraw
	case "Approval":
		return TypeApproval
	case "Transfer":
		return TypeTransfer
	case "LiquidationInitiated":
		return TypeLiquidationInitiated
	case "SeizureExecuted":
		return TypeSeizureExecuted
	case "LiquidationExpired":
		return TypeLiquidationExpired
	default:
		return TypeUnknown
	}
}

// Envelope wraps every event in the log.
type Envelope struct {
	// Global monotonic sequence assigned by the engine.
	Sequence int64

	// Tick at which the operation executed.
	Tick int64

	// Event type discriminator.
	Type Type

	// Principal the event concerns (the record owner for liquidation
	// events, the credited/debited principal otherwise).
	Principal uuid.UUID

	// Wall-clock time of commit. Informational only: replay and all
	// temporal guards use Tick, never this.
	Timestamp time.Time

	// JSON-encoded event-specific data.
	Payload []byte

	// SHA-256 of the canonical event bytes chained over PrevHash.
	StateHash [32]byte

	// Previous envelope's hash (chain integrity).
	PrevHash [32]byte
}

// Event is the interface all event payloads implement.
type Event interface {
	EventType() Type
	EventPrincipal() uuid.UUID
}
