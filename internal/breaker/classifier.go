package breaker

import "github.com/google/uuid"

// Classification is the authoritative tag for a third-party pull.
type Classification int32

const (
	// ClassificationOwnerDeposit marks a pull that is part of an
	// approve-then-pull deposit executed within a single tick.
	ClassificationOwnerDeposit Classification = iota

	// ClassificationSeizureAttempt marks every other third-party pull.
	ClassificationSeizureAttempt
)

func (c Classification) String() string {
	if c == ClassificationOwnerDeposit {
		return "OwnerInitiatedDeposit"
	}
	return "ThirdPartySeizureAttempt"
}

type approvalKey struct {
	Owner   uuid.UUID
	Spender uuid.UUID
}

// ApprovalMarkers records the last tick at which an owner granted an
// allowance to a spender. Markers never influence balances; they exist only
// to classify same-tick deposits.
type ApprovalMarkers struct {
	last map[approvalKey]Tick
}

func NewApprovalMarkers() *ApprovalMarkers {
	return &ApprovalMarkers{last: make(map[approvalKey]Tick)}
}

// Record notes an allowance grant from owner to spender at the given tick.
func (m *ApprovalMarkers) Record(owner, spender uuid.UUID, now Tick) {
	m.last[approvalKey{owner, spender}] = now
}

// LastApproval returns the tick of the most recent allowance grant.
func (m *ApprovalMarkers) LastApproval(owner, spender uuid.UUID) (Tick, bool) {
	t, ok := m.last[approvalKey{owner, spender}]
	return t, ok
}

// Classify applies the single authoritative rule: a pull is an
// owner-initiated deposit only if it happens in the same tick as the most
// recent allowance grant from that owner to that spender. Normal collateral
// deposits are "approve, then pull" executed atomically within one tick;
// anything else is a seizure attempt.
func (m *ApprovalMarkers) Classify(owner, spender uuid.UUID, now Tick) Classification {
	if t, ok := m.last[approvalKey{owner, spender}]; ok && t == now {
		return ClassificationOwnerDeposit
	}
	return ClassificationSeizureAttempt
}
