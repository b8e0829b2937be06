package breaker

import (
	"github.com/google/uuid"

	"github.com/jordan-public/circuit-breaker-token/internal/token"
)

// Decision is the interceptor's verdict on a balance-mutating pull.
type Decision int32

const (
	// DecisionPassthrough: no liquidation checks apply; the pull proceeds
	// as an ordinary ledger movement.
	DecisionPassthrough Decision = iota

	// DecisionSeizure: the pull is an authorized seizure. The caller must
	// clear the principal's record and move exactly the requested amount.
	DecisionSeizure
)

// Interceptor is the enforcement point gating every third-party pull through
// the classifier, the state machine, and the progressive calculator.
type Interceptor struct {
	markers  *ApprovalMarkers
	registry *Registry
}

func NewInterceptor(markers *ApprovalMarkers, registry *Registry) *Interceptor {
	return &Interceptor{markers: markers, registry: registry}
}

// Authorize classifies a pull of the owner's tokens and either authorizes it
// or rejects it. Checks run in a fixed order:
//
//  1. mint/burn sentinel on either end: passthrough
//  2. mover is the owner (a push, not a pull): passthrough
//  3. same-tick approve-then-pull deposit: passthrough
//  4. otherwise a seizure attempt, validated against the record and the
//     progressive ceiling
//
// The only state Authorize mutates is the lazy clearing of an expired record
// (the WindowExpired failure path); every other failure leaves all state
// untouched. A successful seizure is NOT committed here: the engine clears
// the record and moves the balance after its own ledger checks pass.
func (ic *Interceptor) Authorize(
	spender, owner, recipient uuid.UUID,
	amount int64,
	now Tick,
	wallet, collateral int64,
) (Decision, Quote, error) {
	if owner == token.Sentinel || recipient == token.Sentinel {
		return DecisionPassthrough, Quote{}, nil
	}

	if spender == owner {
		return DecisionPassthrough, Quote{}, nil
	}

	if ic.markers.Classify(owner, spender, now) == ClassificationOwnerDeposit {
		return DecisionPassthrough, Quote{}, nil
	}

	rec, ok := ic.registry.Get(owner)
	if !ok || !rec.Active() {
		return 0, Quote{}, ErrMustInitiateFirst
	}

	switch rec.PhaseAt(now) {
	case PhaseCooldown:
		return 0, Quote{}, ErrInCooldown
	case PhaseExpired:
		ic.registry.Clear(owner)
		return 0, Quote{}, ErrWindowExpired
	}

	quote := ComputeQuote(now, rec, ic.registry.WindowDuration(), wallet, collateral)
	if amount > quote.Amount {
		return 0, quote, ErrExceedsLimit
	}

	return DecisionSeizure, quote, nil
}
