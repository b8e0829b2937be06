package core

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jordan-public/circuit-breaker-token/internal/breaker"
	"github.com/jordan-public/circuit-breaker-token/internal/event"
)

// ApplyReplay reapplies one persisted event during startup recovery.
//
// Replay bypasses all validation: events in the log were validated when they
// were first committed, and the collaborators (underlying asset, liquidation
// target) may answer differently now than they did then. Each event carries
// the full mutation, so replay is a pure fold over the log.
//
// Envelopes must arrive in sequence order. Replay restores the tick and the
// hash-chain tip from the envelopes, so normal operation resumes exactly
// where the previous process stopped.
func (e *Engine) ApplyReplay(env event.Envelope) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if env.Sequence != e.sequence+1 {
		return fmt.Errorf("replay gap: expected sequence %d, got %d", e.sequence+1, env.Sequence)
	}

	switch env.Type {
	case event.TypeDeposit:
		var evt event.Deposit
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return fmt.Errorf("replay seq %d: decode deposit: %w", env.Sequence, err)
		}
		e.gateway.Restore(evt.Amount)
		e.ledger.RestoreCredit(evt.Principal, evt.Amount)

	case event.TypeWithdraw:
		var evt event.Withdraw
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return fmt.Errorf("replay seq %d: decode withdraw: %w", env.Sequence, err)
		}
		e.gateway.Restore(-evt.Amount)
		e.ledger.RestoreDebit(evt.Principal, evt.Amount)

	case event.TypeApproval:
		var evt event.Approval
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return fmt.Errorf("replay seq %d: decode approval: %w", env.Sequence, err)
		}
		e.ledger.RestoreAllowance(evt.Owner, evt.Spender, evt.Amount)
		e.markers.Record(evt.Owner, evt.Spender, breaker.Tick(env.Tick))

	case event.TypeTransfer:
		var evt event.Transfer
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return fmt.Errorf("replay seq %d: decode transfer: %w", env.Sequence, err)
		}
		e.ledger.RestoreMove(evt.From, evt.To, evt.Amount)
		if evt.Spender != evt.From && evt.Spender != uuid.Nil {
			e.ledger.RestoreAllowanceDelta(evt.From, evt.Spender, -evt.Amount)
		}

	case event.TypeLiquidationInitiated:
		var evt event.LiquidationInitiated
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return fmt.Errorf("replay seq %d: decode initiation: %w", env.Sequence, err)
		}
		e.registry.Restore(evt.Principal, breaker.Record{
			BlockedUntil: breaker.Tick(evt.BlockedUntil),
			WindowEnd:    breaker.Tick(evt.WindowEnd),
			Snapshot:     evt.Snapshot,
		})

	case event.TypeSeizureExecuted:
		var evt event.SeizureExecuted
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return fmt.Errorf("replay seq %d: decode seizure: %w", env.Sequence, err)
		}
		e.registry.Clear(evt.Principal)
		e.ledger.RestoreMove(evt.Principal, evt.Recipient, evt.Amount)

	case event.TypeLiquidationExpired:
		var evt event.LiquidationExpired
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			return fmt.Errorf("replay seq %d: decode expiry: %w", env.Sequence, err)
		}
		e.registry.Clear(evt.Principal)

	default:
		return fmt.Errorf("replay seq %d: unknown event type %d", env.Sequence, env.Type)
	}

	e.sequence = env.Sequence
	if t := breaker.Tick(env.Tick); t > e.tick {
		e.tick = t
	}
	e.hasher.SetPrevHash(env.StateHash)

	if e.metrics != nil {
		e.metrics.ReplayEventsTotal.Inc()
	}
	return nil
}

// FinishReplay runs the post-recovery integrity checks and refreshes the
// state gauges before the service starts taking traffic.
func (e *Engine) FinishReplay() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ledger.ValidateSupply(); err != nil {
		return fmt.Errorf("post-replay: %w", err)
	}
	if e.gateway.Held() != e.ledger.TotalSupply() {
		return fmt.Errorf("post-replay: custody invariant violated: held=%d, supply=%d",
			e.gateway.Held(), e.ledger.TotalSupply())
	}

	if e.metrics != nil {
		e.metrics.CurrentTick.Set(float64(e.tick))
		e.metrics.TotalSupply.Set(float64(e.ledger.TotalSupply()))
		e.metrics.CustodyHeld.Set(float64(e.gateway.Held()))
		e.metrics.ActiveRecords.Set(float64(e.registry.ActiveCount()))
	}

	e.log.Info().
		Int64("sequence", e.sequence).
		Int64("tick", int64(e.tick)).
		Int64("total_supply", e.ledger.TotalSupply()).
		Int("active_records", e.registry.ActiveCount()).
		Msg("event-log replay complete")
	return nil
}
