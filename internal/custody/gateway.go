package custody

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNonPositiveAmount = errors.New("amount must be positive")

// UnderlyingAsset is the external custodial transfer interface for the asset
// the wrapped token represents 1:1. Implementations move real funds; any
// failure they return aborts the surrounding operation.
type UnderlyingAsset interface {
	// PullFrom moves amount of the underlying asset from the principal
	// into custody.
	PullFrom(principal uuid.UUID, amount int64) error

	// PushTo moves amount of the underlying asset from custody back to
	// the principal.
	PushTo(principal uuid.UUID, amount int64) error

	// BalanceOf reports the principal's free balance of the underlying
	// asset (the wallet balance consulted by the seizure calculator).
	BalanceOf(principal uuid.UUID) int64
}

// Gateway wraps and unwraps the underlying asset 1:1.
//
// Invariant: Held() always equals the outstanding wrapped supply; the engine
// validates this after every custody-touching operation.
type Gateway struct {
	asset UnderlyingAsset
	held  int64
}

func NewGateway(asset UnderlyingAsset) *Gateway {
	return &Gateway{asset: asset}
}

// Deposit pulls amount of the underlying asset into custody. The caller
// mints the matching wrapped units only after this succeeds.
func (g *Gateway) Deposit(principal uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if err := g.asset.PullFrom(principal, amount); err != nil {
		return fmt.Errorf("pull underlying: %w", err)
	}
	g.held += amount
	return nil
}

// Withdraw returns amount of the underlying asset to the principal. The
// caller burns the matching wrapped units only after this succeeds.
func (g *Gateway) Withdraw(principal uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if amount > g.held {
		return fmt.Errorf("custody underflow: held=%d, requested=%d", g.held, amount)
	}
	if err := g.asset.PushTo(principal, amount); err != nil {
		return fmt.Errorf("push underlying: %w", err)
	}
	g.held -= amount
	return nil
}

// Held returns the custody-held underlying amount.
func (g *Gateway) Held() int64 {
	return g.held
}

// Restore adjusts the custody counter during event-log replay, where the
// external transfers already happened in a previous process lifetime.
func (g *Gateway) Restore(delta int64) {
	g.held += delta
}
