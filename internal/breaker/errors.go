package breaker

import "errors"

var (
	// Policy violations: the current eligibility/state does not permit the call.
	ErrNotLiquidatable  = errors.New("principal is not liquidatable")
	ErrAlreadyInitiated = errors.New("liquidation already initiated for principal")

	// Temporal guards: the call is outside its valid tick range.
	ErrInCooldown    = errors.New("liquidation cooldown has not elapsed")
	ErrWindowExpired = errors.New("execution window has expired")

	// Limit exceeded: the requested amount is above the current ceiling.
	ErrExceedsLimit = errors.New("amount exceeds authorized seizure ceiling")

	// Precondition missing: no active record exists for the principal.
	ErrMustInitiateFirst = errors.New("no active liquidation record for principal")
)

// ErrorClass groups the sentinel failures for callers that map them to
// transport-level codes.
type ErrorClass int

const (
	ClassUnknown ErrorClass = iota
	ClassPolicyViolation
	ClassTemporalGuard
	ClassLimitExceeded
	ClassPreconditionMissing
)

func (c ErrorClass) String() string {
	switch c {
	case ClassPolicyViolation:
		return "policy_violation"
	case ClassTemporalGuard:
		return "temporal_guard"
	case ClassLimitExceeded:
		return "limit_exceeded"
	case ClassPreconditionMissing:
		return "precondition_missing"
	default:
		return "unknown"
	}
}

// Classify maps an error to its taxonomy class.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrNotLiquidatable), errors.Is(err, ErrAlreadyInitiated):
		return ClassPolicyViolation
	case errors.Is(err, ErrInCooldown), errors.Is(err, ErrWindowExpired):
		return ClassTemporalGuard
	case errors.Is(err, ErrExceedsLimit):
		return ClassLimitExceeded
	case errors.Is(err, ErrMustInitiateFirst):
		return ClassPreconditionMissing
	default:
		return ClassUnknown
	}
}
