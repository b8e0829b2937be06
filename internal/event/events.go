package event

import "github.com/google/uuid"

// Wire formats use snake_case JSON, matching what the dashboard and the
// event log consume.

// Deposit: underlying pulled into custody, wrapped units minted.
type Deposit struct {
	Principal uuid.UUID `json:"principal"`
	Amount    int64     `json:"amount"`
}

func (e *Deposit) EventType() Type { return TypeDeposit }
func (e *Deposit) EventPrincipal() uuid.UUID { return e.Principal }

// Withdraw: wrapped units burned, underlying returned.
type Withdraw struct {
	Principal uuid.UUID `json:"principal"`
	Amount    int64     `json:"amount"`
}

func (e *Withdraw) EventType() Type { return TypeWithdraw }
func (e *Withdraw) EventPrincipal() uuid.UUID { return e.Principal }

// Approval: an allowance grant; the tick in the envelope is the approval
// marker consulted by the deposit classifier.
type Approval struct {
	Owner   uuid.UUID `json:"owner"`
	Spender uuid.UUID `json:"spender"`
	Amount  int64     `json:"amount"`
}

func (e *Approval) EventType() Type { return TypeApproval }
func (e *Approval) EventPrincipal() uuid.UUID { return e.Owner }

// Transfer: an ordinary ledger movement (owner push or classified deposit
// pull). Spender is uuid.Nil for direct transfers.
type Transfer struct {
	From    uuid.UUID `json:"from"`
	To      uuid.UUID `json:"to"`
	Spender uuid.UUID `json:"spender,omitempty"`
	Amount  int64     `json:"amount"`
}

func (e *Transfer) EventType() Type { return TypeTransfer }
func (e *Transfer) EventPrincipal() uuid.UUID { return e.From }

// LiquidationInitiated: a cooldown+window record was opened.
type LiquidationInitiated struct {
	Principal    uuid.UUID `json:"principal"`
	BlockedUntil int64     `json:"blocked_until"`
	WindowEnd    int64     `json:"window_end"`
	Snapshot     int64     `json:"snapshot_amount"`
}

func (e *LiquidationInitiated) EventType() Type { return TypeLiquidationInitiated }
func (e *LiquidationInitiated) EventPrincipal() uuid.UUID { return e.Principal }

// SeizureExecuted: an authorized seizure moved tokens and cleared the record.
type SeizureExecuted struct {
	Principal uuid.UUID `json:"principal"`
	Spender   uuid.UUID `json:"spender"`
	Recipient uuid.UUID `json:"recipient"`
	Amount    int64     `json:"amount"`
	Pct       int64     `json:"pct"`
}

func (e *SeizureExecuted) EventType() Type { return TypeSeizureExecuted }
func (e *SeizureExecuted) EventPrincipal() uuid.UUID { return e.Principal }

// LiquidationExpired: a stale record was detected and cleared.
type LiquidationExpired struct {
	Principal uuid.UUID `json:"principal"`
}

func (e *LiquidationExpired) EventType() Type { return TypeLiquidationExpired }
func (e *LiquidationExpired) EventPrincipal() uuid.UUID { return e.Principal }
