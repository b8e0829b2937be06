package breaker

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

// fakeTarget is a scriptable Target for registry and interceptor tests.
type fakeTarget struct {
	liquidatable map[uuid.UUID]bool
	collateral   map[uuid.UUID]int64
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		liquidatable: make(map[uuid.UUID]bool),
		collateral:   make(map[uuid.UUID]int64),
	}
}

func (f *fakeTarget) CanLiquidate(p uuid.UUID) bool    { return f.liquidatable[p] }
func (f *fakeTarget) UserCollateral(p uuid.UUID) int64 { return f.collateral[p] }

func (f *fakeTarget) set(p uuid.UUID, liq bool, collateral int64) {
	f.liquidatable[p] = liq
	f.collateral[p] = collateral
}

func TestInitiate(t *testing.T) {
	target := newFakeTarget()
	reg := NewRegistry(target, 10, 5)
	alice := uuid.New()

	// Ineligible principals are rejected before any state is created.
	if _, err := reg.Initiate(alice, 1); !errors.Is(err, ErrNotLiquidatable) {
		t.Fatalf("err = %v, want ErrNotLiquidatable", err)
	}
	if _, ok := reg.Get(alice); ok {
		t.Fatal("rejected initiation must not create a record")
	}

	target.set(alice, true, 1000)
	rec, err := reg.Initiate(alice, 1)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if rec.BlockedUntil != 11 || rec.WindowEnd != 16 || rec.Snapshot != 1000 {
		t.Errorf("record = %+v, want {11 16 1000}", rec)
	}
	if got := reg.ActiveCount(); got != 1 {
		t.Errorf("active count = %d, want 1", got)
	}
}

func TestInitiateFirstComeFirstServed(t *testing.T) {
	target := newFakeTarget()
	reg := NewRegistry(target, 10, 5)
	alice := uuid.New()
	target.set(alice, true, 1000)

	first, err := reg.Initiate(alice, 1)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	// A competing initiation anywhere up to and including WindowEnd fails
	// and must not reset the countdown.
	for _, now := range []Tick{1, 2, 11, 16} {
		if _, err := reg.Initiate(alice, now); !errors.Is(err, ErrAlreadyInitiated) {
			t.Errorf("initiate at tick %d: err = %v, want ErrAlreadyInitiated", now, err)
		}
	}
	if rec, _ := reg.Get(alice); rec != first {
		t.Errorf("record mutated by failed initiation: %+v, want %+v", rec, first)
	}

	// After the window elapses the stale record is replaced.
	target.collateral[alice] = 2000
	rec, err := reg.Initiate(alice, 17)
	if err != nil {
		t.Fatalf("re-initiate after expiry: %v", err)
	}
	if rec.BlockedUntil != 27 || rec.WindowEnd != 32 || rec.Snapshot != 2000 {
		t.Errorf("replacement record = %+v, want {27 32 2000}", rec)
	}
}

func TestSnapshotFixedAtInitiation(t *testing.T) {
	target := newFakeTarget()
	reg := NewRegistry(target, 10, 5)
	alice := uuid.New()
	target.set(alice, true, 1000)

	reg.Initiate(alice, 1)

	// Collateral changes after initiation never touch the snapshot.
	target.collateral[alice] = 1
	rec, _ := reg.Get(alice)
	if rec.Snapshot != 1000 {
		t.Errorf("snapshot = %d, want 1000", rec.Snapshot)
	}
}

func TestClearIfExpired(t *testing.T) {
	target := newFakeTarget()
	reg := NewRegistry(target, 10, 5)
	alice := uuid.New()
	target.set(alice, true, 1000)
	reg.Initiate(alice, 1)

	// Not expired anywhere inside [cooldown, window].
	for _, now := range []Tick{1, 11, 16} {
		if reg.ClearIfExpired(alice, now) {
			t.Errorf("cleared at tick %d, record still live", now)
		}
	}

	if !reg.ClearIfExpired(alice, 17) {
		t.Fatal("expired record not cleared")
	}
	if _, ok := reg.Get(alice); ok {
		t.Fatal("record survives ClearIfExpired")
	}
	// Idempotent on missing records.
	if reg.ClearIfExpired(alice, 18) {
		t.Error("cleared a non-existent record")
	}
}

func TestRestore(t *testing.T) {
	reg := NewRegistry(newFakeTarget(), 10, 5)
	alice := uuid.New()

	// Restore bypasses eligibility: used only by replay.
	want := Record{BlockedUntil: 11, WindowEnd: 16, Snapshot: 777}
	reg.Restore(alice, want)

	got, ok := reg.Get(alice)
	if !ok || got != want {
		t.Errorf("restored record = %+v (ok=%v), want %+v", got, ok, want)
	}
}

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseNone, PhaseCooldown, true},
		{PhaseCooldown, PhaseWindow, true},
		{PhaseWindow, PhaseNone, true},
		{PhaseWindow, PhaseExpired, true},
		{PhaseExpired, PhaseNone, true},
		{PhaseNone, PhaseWindow, false},
		{PhaseCooldown, PhaseNone, false},
		{PhaseCooldown, PhaseExpired, false},
		{PhaseExpired, PhaseCooldown, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
