package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jordan-public/circuit-breaker-token/internal/breaker"
	"github.com/jordan-public/circuit-breaker-token/internal/custody"
	"github.com/jordan-public/circuit-breaker-token/internal/event"
	"github.com/jordan-public/circuit-breaker-token/internal/observability"
	"github.com/jordan-public/circuit-breaker-token/internal/token"
)

// Output carries a committed event out of the engine.
type Output struct {
	Envelope event.Envelope
}

// Engine serializes every operation of the circuit-breaker token under one
// mutex, the runtime equivalent of a globally ordered sequence of ticks.
// Each operation is atomic: all preconditions are checked before any state
// is mutated, so a failure leaves ledger, records, and markers untouched.
type Engine struct {
	mu sync.Mutex

	tick     breaker.Tick
	sequence int64
	hasher   *ChainHasher

	ledger      *token.Ledger
	markers     *breaker.ApprovalMarkers
	registry    *breaker.Registry
	interceptor *breaker.Interceptor
	gateway     *custody.Gateway
	underlying  custody.UnderlyingAsset
	target      breaker.Target

	metrics *observability.Metrics
	log     zerolog.Logger

	// persistChan uses blocking sends (backpressure: the engine stalls
	// until the persistence worker drains). publishChan is best-effort:
	// non-blocking sends, drop on full.
	persistChan chan<- Output
	publishChan chan<- Output
}

// Config carries the engine's construction parameters.
type Config struct {
	Underlying custody.UnderlyingAsset
	Target     breaker.Target

	// CooldownTicks is the mandatory delay between initiation and the
	// first possible seizure. WindowTicks is the execution window length.
	CooldownTicks breaker.Tick
	WindowTicks   breaker.Tick

	PersistChan chan<- Output
	PublishChan chan<- Output
	Metrics     *observability.Metrics
	Logger      zerolog.Logger
}

func NewEngine(cfg Config) *Engine {
	ledger := token.NewLedger()
	markers := breaker.NewApprovalMarkers()
	registry := breaker.NewRegistry(cfg.Target, cfg.CooldownTicks, cfg.WindowTicks)

	return &Engine{
		tick:        1,
		hasher:      NewChainHasher(),
		ledger:      ledger,
		markers:     markers,
		registry:    registry,
		interceptor: breaker.NewInterceptor(markers, registry),
		gateway:     custody.NewGateway(cfg.Underlying),
		underlying:  cfg.Underlying,
		target:      cfg.Target,
		metrics:     cfg.Metrics,
		log:         cfg.Logger,
		persistChan: cfg.PersistChan,
		publishChan: cfg.PublishChan,
	}
}

// AdvanceTick moves global time forward by one tick and returns the new tick.
func (e *Engine) AdvanceTick() breaker.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tick++
	if e.metrics != nil {
		e.metrics.CurrentTick.Set(float64(e.tick))
	}
	return e.tick
}

// CurrentTick returns the current global tick.
func (e *Engine) CurrentTick() breaker.Tick {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Deposit pulls amount of the underlying asset into custody and mints the
// caller an equal number of wrapped units. No liquidation logic applies.
func (e *Engine) Deposit(principal uuid.UUID, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if err := e.gateway.Deposit(principal, amount); err != nil {
		e.reject("deposit", err)
		return err
	}
	if err := e.ledger.Mint(principal, amount); err != nil {
		// Unreachable after a successful pull; mint only rejects
		// non-positive amounts, which the gateway already refused.
		panic(fmt.Sprintf("FATAL: mint after custody pull: %v", err))
	}

	e.postCheckInvariants()
	e.emit(&event.Deposit{Principal: principal, Amount: amount})
	e.applied("deposit", start)
	if e.metrics != nil {
		e.metrics.DepositTotal.Add(float64(amount))
	}
	return nil
}

// Withdraw burns amount wrapped units from the caller and returns the same
// amount of the underlying asset.
func (e *Engine) Withdraw(principal uuid.UUID, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if amount <= 0 {
		err := token.ErrNonPositiveAmount
		e.reject("withdraw", err)
		return err
	}
	if !e.ledger.CanMove(principal, amount) {
		err := fmt.Errorf("%w: have=%d, need=%d", token.ErrInsufficientBalance, e.ledger.BalanceOf(principal), amount)
		e.reject("withdraw", err)
		return err
	}
	if err := e.gateway.Withdraw(principal, amount); err != nil {
		e.reject("withdraw", err)
		return err
	}
	if err := e.ledger.Burn(principal, amount); err != nil {
		panic(fmt.Sprintf("FATAL: burn after custody push: %v", err))
	}

	e.postCheckInvariants()
	e.emit(&event.Withdraw{Principal: principal, Amount: amount})
	e.applied("withdraw", start)
	if e.metrics != nil {
		e.metrics.WithdrawTotal.Add(float64(amount))
	}
	return nil
}

// Approve sets the owner→spender allowance and records the approval tick
// consulted by the deposit classifier.
func (e *Engine) Approve(owner, spender uuid.UUID, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if err := e.ledger.Approve(owner, spender, amount); err != nil {
		e.reject("approve", err)
		return err
	}
	e.markers.Record(owner, spender, e.tick)

	e.emit(&event.Approval{Owner: owner, Spender: spender, Amount: amount})
	e.applied("approve", start)
	return nil
}

// Transfer is an owner push: the mover is the balance owner, so no
// interception applies.
func (e *Engine) Transfer(from, to uuid.UUID, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if err := e.ledger.Move(from, to, amount); err != nil {
		e.reject("transfer", err)
		return err
	}

	e.emit(&event.Transfer{From: from, To: to, Amount: amount})
	e.applied("transfer", start)
	return nil
}

// TransferFrom is a third-party pull of the owner's tokens, routed through
// the transfer interceptor whenever spender != owner.
func (e *Engine) TransferFrom(spender, owner, recipient uuid.UUID, amount int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	if amount <= 0 {
		err := token.ErrNonPositiveAmount
		e.reject("transfer_from", err)
		return err
	}

	wallet := e.underlying.BalanceOf(owner)
	collateral := e.target.UserCollateral(owner)

	decision, quote, err := e.interceptor.Authorize(spender, owner, recipient, amount, e.tick, wallet, collateral)
	if err != nil {
		if errors.Is(err, breaker.ErrWindowExpired) {
			// The interceptor just cleared the expired record.
			e.noteExpiryCleared(owner)
		}
		e.reject("transfer_from", err)
		return err
	}

	switch decision {
	case breaker.DecisionPassthrough:
		// All checks precede all mutations.
		if !e.ledger.CanMove(owner, amount) {
			err := fmt.Errorf("%w: have=%d, need=%d", token.ErrInsufficientBalance, e.ledger.BalanceOf(owner), amount)
			e.reject("transfer_from", err)
			return err
		}
		if spender != owner {
			if err := e.ledger.ConsumeAllowance(owner, spender, amount); err != nil {
				e.reject("transfer_from", err)
				return err
			}
			if e.metrics != nil {
				e.metrics.DepositBypass.Inc()
			}
		}
		if err := e.ledger.Move(owner, recipient, amount); err != nil {
			panic(fmt.Sprintf("FATAL: passthrough move after CanMove: %v", err))
		}

		e.emit(&event.Transfer{From: owner, To: recipient, Spender: spender, Amount: amount})
		e.applied("transfer_from", start)
		return nil

	case breaker.DecisionSeizure:
		// All checks precede all mutations: verify the ledger can honor
		// the movement before clearing the record.
		if !e.ledger.CanMove(owner, amount) {
			err := fmt.Errorf("%w: have=%d, need=%d", token.ErrInsufficientBalance, e.ledger.BalanceOf(owner), amount)
			e.reject("transfer_from", err)
			return err
		}

		// One initiation supports at most one executed seizure: the
		// record is cleared in full, even for a partial amount.
		e.registry.Clear(owner)
		if err := e.ledger.Move(owner, recipient, amount); err != nil {
			panic(fmt.Sprintf("FATAL: seizure move after CanMove: %v", err))
		}

		e.emit(&event.SeizureExecuted{
			Principal: owner,
			Spender:   spender,
			Recipient: recipient,
			Amount:    amount,
			Pct:       quote.Pct,
		})
		e.applied("transfer_from", start)
		if e.metrics != nil {
			e.metrics.SeizuresExecuted.Inc()
			e.metrics.SeizureAmountTotal.Add(float64(amount))
			e.metrics.ActiveRecords.Set(float64(e.registry.ActiveCount()))
		}
		return nil

	default:
		panic(fmt.Sprintf("FATAL: unknown interceptor decision %d", decision))
	}
}

// Initiate opens a cooldown+window liquidation record for the principal.
func (e *Engine) Initiate(principal uuid.UUID) (breaker.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()

	// Lazy expiry: a stale record is cleared (and reported) before the
	// fresh initiation is considered.
	if e.registry.ClearIfExpired(principal, e.tick) {
		e.noteExpiryCleared(principal)
	}

	rec, err := e.registry.Initiate(principal, e.tick)
	if err != nil {
		e.reject("initiate", err)
		return breaker.Record{}, err
	}

	e.emit(&event.LiquidationInitiated{
		Principal:    principal,
		BlockedUntil: int64(rec.BlockedUntil),
		WindowEnd:    int64(rec.WindowEnd),
		Snapshot:     rec.Snapshot,
	})
	e.applied("initiate", start)
	if e.metrics != nil {
		e.metrics.LiquidationsInitiated.Inc()
		e.metrics.ActiveRecords.Set(float64(e.registry.ActiveCount()))
	}
	return rec, nil
}

// LiquidatableAmount returns the current seizure ceiling for the principal.
// Reads also detect expiry: a stale record is cleared on the way.
func (e *Engine) LiquidatableAmount(principal uuid.UUID) breaker.Quote {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.registry.ClearIfExpired(principal, e.tick) {
		e.noteExpiryCleared(principal)
		return breaker.Quote{}
	}

	rec, ok := e.registry.Get(principal)
	if !ok {
		return breaker.Quote{}
	}

	wallet := e.underlying.BalanceOf(principal)
	collateral := e.target.UserCollateral(principal)
	return breaker.ComputeQuote(e.tick, rec, e.registry.WindowDuration(), wallet, collateral)
}

// RecordOf returns the principal's liquidation record, if any.
func (e *Engine) RecordOf(principal uuid.UUID) (breaker.Record, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Get(principal)
}

// BalanceOf returns the wrapped balance of a principal.
func (e *Engine) BalanceOf(principal uuid.UUID) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(principal)
}

// Allowance returns the remaining owner→spender allowance.
func (e *Engine) Allowance(owner, spender uuid.UUID) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Allowance(owner, spender)
}

// TotalSupply returns the outstanding wrapped supply.
func (e *Engine) TotalSupply() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.TotalSupply()
}

// CustodyHeld returns the underlying amount held in custody.
func (e *Engine) CustodyHeld() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gateway.Held()
}

// Sequence returns the last assigned event sequence.
func (e *Engine) Sequence() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sequence
}

// --- internals ---

// emit assigns a sequence, extends the hash chain, and fans the envelope out
// to persistence (blocking) and publishing (best-effort).
func (e *Engine) emit(evt event.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		panic(fmt.Sprintf("FATAL: marshal %s event: %v", evt.EventType(), err))
	}

	e.sequence++

	env := event.Envelope{
		Sequence:  e.sequence,
		Tick:      int64(e.tick),
		Type:      evt.EventType(),
		Principal: evt.EventPrincipal(),
		Timestamp: time.Now(),
		Payload:   payload,
		PrevHash:  e.hasher.PrevHash(),
	}
	env.StateHash = e.hasher.ComputeHash(env.Sequence, env.Tick, payload)

	out := Output{Envelope: env}

	if e.persistChan != nil {
		select {
		case e.persistChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.PersistBackpressure.Inc()
			}
			e.persistChan <- out
		}
	}

	if e.publishChan != nil {
		select {
		case e.publishChan <- out:
		default:
			if e.metrics != nil {
				e.metrics.PublishDrops.Inc()
			}
		}
	}
}

func (e *Engine) applied(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.OpsApplied.WithLabelValues(op).Inc()
		e.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		e.metrics.TotalSupply.Set(float64(e.ledger.TotalSupply()))
		e.metrics.CustodyHeld.Set(float64(e.gateway.Held()))
	}
}

func (e *Engine) reject(op string, err error) {
	if e.metrics != nil {
		e.metrics.OpsRejected.WithLabelValues(op, breaker.Classify(err).String()).Inc()
	}
	e.log.Debug().Str("op", op).Err(err).Msg("operation rejected")
}

func (e *Engine) noteExpiryCleared(principal uuid.UUID) {
	e.emit(&event.LiquidationExpired{Principal: principal})
	if e.metrics != nil {
		e.metrics.WindowExpirations.Inc()
		e.metrics.ActiveRecords.Set(float64(e.registry.ActiveCount()))
	}
	e.log.Info().Str("principal", principal.String()).Int64("tick", int64(e.tick)).Msg("stale liquidation record cleared")
}

// postCheckInvariants verifies the custody and supply invariants after
// custody-touching operations. A violation is unrecoverable corruption.
func (e *Engine) postCheckInvariants() {
	if err := e.ledger.ValidateSupply(); err != nil {
		panic(fmt.Sprintf("FATAL: %v", err))
	}
	if e.gateway.Held() != e.ledger.TotalSupply() {
		panic(fmt.Sprintf("FATAL: custody invariant violated: held=%d, supply=%d",
			e.gateway.Held(), e.ledger.TotalSupply()))
	}
}
