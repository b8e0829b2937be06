package breaker

// Tick is the discrete, monotonically increasing unit of global time shared
// by all principals. Tick zero is reserved: BlockedUntil == 0 means no active
// liquidation.
type Tick int64

// Record is the per-principal liquidation state. Snapshot is fixed at
// initiation and never mutated until the record is cleared.
//
// Invariant: WindowEnd == BlockedUntil + windowDuration whenever
// BlockedUntil != 0.
type Record struct {
	BlockedUntil Tick
	WindowEnd    Tick
	Snapshot     int64
}

// Phase is the derived liquidation state at a given tick.
type Phase int32

const (
	PhaseNone Phase = iota
	PhaseCooldown
	PhaseWindow
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "NoLiquidation"
	case PhaseCooldown:
		return "Cooldown"
	case PhaseWindow:
		return "ExecutionWindow"
	case PhaseExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Active reports whether the record represents a liquidation in progress.
func (r Record) Active() bool {
	return r.BlockedUntil != 0
}

// PhaseAt derives the state machine phase from the record's ticks.
// The tick range [BlockedUntil, WindowEnd] is the execution window, both
// bounds inclusive.
func (r Record) PhaseAt(now Tick) Phase {
	switch {
	case r.BlockedUntil == 0:
		return PhaseNone
	case now < r.BlockedUntil:
		return PhaseCooldown
	case now > r.WindowEnd:
		return PhaseExpired
	default:
		return PhaseWindow
	}
}

// CanTransitionTo validates phase transitions. The only exits from an active
// record are full clearing: a successful seizure or expiry.
func (p Phase) CanTransitionTo(next Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseNone:     {PhaseCooldown},
		PhaseCooldown: {PhaseWindow},
		PhaseWindow:   {PhaseNone, PhaseExpired},
		PhaseExpired:  {PhaseNone},
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if next == candidate {
			return true
		}
	}
	return false
}
