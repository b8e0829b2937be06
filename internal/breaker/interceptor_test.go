package breaker

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/jordan-public/circuit-breaker-token/internal/token"
)

type interceptorFixture struct {
	markers     *ApprovalMarkers
	registry    *Registry
	target      *fakeTarget
	interceptor *Interceptor
}

func newInterceptorFixture() *interceptorFixture {
	target := newFakeTarget()
	markers := NewApprovalMarkers()
	registry := NewRegistry(target, 10, 5)
	return &interceptorFixture{
		markers:     markers,
		registry:    registry,
		target:      target,
		interceptor: NewInterceptor(markers, registry),
	}
}

func TestAuthorizeSentinelPassthrough(t *testing.T) {
	f := newInterceptorFixture()
	spender, owner := uuid.New(), uuid.New()

	// Mint/burn legs bypass interception even mid-liquidation.
	f.target.set(owner, true, 1000)
	f.registry.Initiate(owner, 1)

	dec, _, err := f.interceptor.Authorize(spender, token.Sentinel, owner, 100, 2, 0, 0)
	if err != nil || dec != DecisionPassthrough {
		t.Errorf("mint leg: dec=%v err=%v, want passthrough", dec, err)
	}
	dec, _, err = f.interceptor.Authorize(spender, owner, token.Sentinel, 100, 2, 0, 0)
	if err != nil || dec != DecisionPassthrough {
		t.Errorf("burn leg: dec=%v err=%v, want passthrough", dec, err)
	}
}

func TestAuthorizeOwnerPush(t *testing.T) {
	f := newInterceptorFixture()
	owner, recipient := uuid.New(), uuid.New()
	f.target.set(owner, true, 1000)
	f.registry.Initiate(owner, 1)

	dec, _, err := f.interceptor.Authorize(owner, owner, recipient, 100, 2, 0, 0)
	if err != nil || dec != DecisionPassthrough {
		t.Errorf("owner push: dec=%v err=%v, want passthrough", dec, err)
	}
}

func TestAuthorizeDepositBypass(t *testing.T) {
	f := newInterceptorFixture()
	owner, vault := uuid.New(), uuid.New()

	// Even a principal under active liquidation can complete a same-tick
	// approve-then-pull collateral deposit.
	f.target.set(owner, true, 1000)
	f.registry.Initiate(owner, 1)
	f.markers.Record(owner, vault, 13)

	dec, _, err := f.interceptor.Authorize(vault, owner, vault, 100, 13, 0, 0)
	if err != nil || dec != DecisionPassthrough {
		t.Errorf("same-tick pull: dec=%v err=%v, want passthrough", dec, err)
	}

	// The next tick the marker is stale and the same pull is a seizure
	// attempt again, gated by the record's ceiling.
	dec, quote, err := f.interceptor.Authorize(vault, owner, vault, quoteAmountAt(f, owner, 14)+1, 14, 0, 0)
	if !errors.Is(err, ErrExceedsLimit) {
		t.Errorf("stale-marker pull above ceiling: dec=%v quote=%+v err=%v, want ErrExceedsLimit", dec, quote, err)
	}
}

func quoteAmountAt(f *interceptorFixture, owner uuid.UUID, now Tick) int64 {
	rec, _ := f.registry.Get(owner)
	return ComputeQuote(now, rec, f.registry.WindowDuration(), 0, 0).Amount
}

func TestAuthorizeCheckOrder(t *testing.T) {
	f := newInterceptorFixture()
	vault, owner, recipient := uuid.New(), uuid.New(), uuid.New()

	// No record at all.
	_, _, err := f.interceptor.Authorize(vault, owner, recipient, 10, 5, 0, 0)
	if !errors.Is(err, ErrMustInitiateFirst) {
		t.Fatalf("no record: err = %v, want ErrMustInitiateFirst", err)
	}

	f.target.set(owner, true, 1000)
	f.registry.Initiate(owner, 1) // window [11, 16]

	// Cooldown still running.
	_, _, err = f.interceptor.Authorize(vault, owner, recipient, 10, 10, 0, 0)
	if !errors.Is(err, ErrInCooldown) {
		t.Fatalf("cooldown: err = %v, want ErrInCooldown", err)
	}

	// Inside the window but above the ceiling: quote comes back with the error.
	_, quote, err := f.interceptor.Authorize(vault, owner, recipient, 101, 11, 0, 0)
	if !errors.Is(err, ErrExceedsLimit) {
		t.Fatalf("above ceiling: err = %v, want ErrExceedsLimit", err)
	}
	if quote.Pct != 10 || quote.Amount != 100 {
		t.Errorf("quote = %+v, want (10, 100)", quote)
	}

	// At or below the ceiling: authorized seizure.
	dec, quote, err := f.interceptor.Authorize(vault, owner, recipient, 100, 11, 0, 0)
	if err != nil {
		t.Fatalf("at ceiling: %v", err)
	}
	if dec != DecisionSeizure {
		t.Errorf("decision = %v, want seizure", dec)
	}
	if quote.Amount != 100 {
		t.Errorf("quote amount = %d, want 100", quote.Amount)
	}

	// Authorization alone must not mutate the record.
	if _, ok := f.registry.Get(owner); !ok {
		t.Error("record cleared by authorization without commit")
	}
}

func TestAuthorizeExpiredClearsRecord(t *testing.T) {
	f := newInterceptorFixture()
	vault, owner, recipient := uuid.New(), uuid.New(), uuid.New()
	f.target.set(owner, true, 1000)
	f.registry.Initiate(owner, 1) // window [11, 16]

	_, _, err := f.interceptor.Authorize(vault, owner, recipient, 10, 17, 0, 0)
	if !errors.Is(err, ErrWindowExpired) {
		t.Fatalf("expired: err = %v, want ErrWindowExpired", err)
	}
	if _, ok := f.registry.Get(owner); ok {
		t.Error("expired record not lazily cleared")
	}

	// With the record gone, the next attempt needs a fresh initiation.
	_, _, err = f.interceptor.Authorize(vault, owner, recipient, 10, 18, 0, 0)
	if !errors.Is(err, ErrMustInitiateFirst) {
		t.Errorf("after clear: err = %v, want ErrMustInitiateFirst", err)
	}
}

func TestAuthorizeWalletCapsSeizure(t *testing.T) {
	f := newInterceptorFixture()
	vault, owner, recipient := uuid.New(), uuid.New(), uuid.New()
	f.target.set(owner, true, 1000)
	f.registry.Initiate(owner, 1)

	// Wallet ratio 60% applies the 70 base cap; at window start the ramp
	// (10%) still dominates, so the quote is unchanged.
	_, quote, err := f.interceptor.Authorize(vault, owner, recipient, 100, 11, 600, 1000)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if quote.Pct != 10 {
		t.Errorf("pct = %d, want 10", quote.Pct)
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorClass
	}{
		{ErrNotLiquidatable, ClassPolicyViolation},
		{ErrAlreadyInitiated, ClassPolicyViolation},
		{ErrInCooldown, ClassTemporalGuard},
		{ErrWindowExpired, ClassTemporalGuard},
		{ErrExceedsLimit, ClassLimitExceeded},
		{ErrMustInitiateFirst, ClassPreconditionMissing},
		{errors.New("something else"), ClassUnknown},
		{nil, ClassUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
