package breaker

import (
	"github.com/jordan-public/circuit-breaker-token/internal/fixedpoint"
)

// Quote is the seizure ceiling at a given tick: the authorized percentage of
// the snapshot and the resulting absolute amount.
type Quote struct {
	Pct    int64
	Amount int64
}

// ComputeQuote is the progressive amount calculator: a pure function of the
// record, the current tick, the principal's wallet balance of the underlying
// asset, and the reported collateral.
//
// Outside the window (no record, cooldown still running, or window elapsed)
// it returns (0, 0). Inside the window the base percentage ramps linearly
// from 10 to 100, and principals holding spare underlying asset get a
// time-decaying cap: ratio >= 100% of collateral caps at 50, ratio >= 50%
// caps at 70, with the cap itself ramping back to 100 over the window.
//
// Every division truncates toward zero. That is load-bearing for bit-exact
// reproduction; do not substitute rounding division.
func ComputeQuote(now Tick, rec Record, windowDur Tick, wallet, collateral int64) Quote {
	if rec.PhaseAt(now) != PhaseWindow {
		return Quote{}
	}

	elapsed := int64(now - rec.BlockedUntil)
	window := int64(windowDur)

	basePct := 10 + fixedpoint.MulDiv(90, elapsed, window)

	cap := int64(100)
	if wallet > 0 && collateral > 0 {
		ratio := fixedpoint.Ratio(wallet, collateral)

		baseCap := int64(100)
		switch {
		case ratio >= 100:
			baseCap = 50
		case ratio >= 50:
			baseCap = 70
		}

		if baseCap < 100 {
			cap = baseCap + fixedpoint.MulDiv(100-baseCap, elapsed, window)
		}
	}

	finalPct := basePct
	if cap < finalPct {
		finalPct = cap
	}
	if finalPct < 0 {
		finalPct = 0
	}
	if finalPct > 100 {
		finalPct = 100
	}

	return Quote{
		Pct:    finalPct,
		Amount: fixedpoint.PctOf(rec.Snapshot, finalPct),
	}
}
