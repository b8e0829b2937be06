package token

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel is the mint/burn principal. Transfers touching it bypass the
// liquidation interceptor entirely.
var Sentinel = uuid.Nil

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNonPositiveAmount     = errors.New("amount must be positive")
)

type allowanceKey struct {
	Owner   uuid.UUID
	Spender uuid.UUID
}

// Ledger is the balance and allowance bookkeeping for the wrapped asset.
// It is not safe for concurrent use; all access is serialized by the engine.
type Ledger struct {
	balances    map[uuid.UUID]int64
	allowances  map[allowanceKey]int64
	totalSupply int64
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[uuid.UUID]int64),
		allowances: make(map[allowanceKey]int64),
	}
}

// BalanceOf returns the wrapped balance of a principal.
func (l *Ledger) BalanceOf(principal uuid.UUID) int64 {
	return l.balances[principal]
}

// TotalSupply returns the outstanding wrapped supply.
func (l *Ledger) TotalSupply() int64 {
	return l.totalSupply
}

// Allowance returns the remaining allowance from owner to spender.
func (l *Ledger) Allowance(owner, spender uuid.UUID) int64 {
	return l.allowances[allowanceKey{owner, spender}]
}

// Approve sets the allowance from owner to spender, replacing any prior value.
func (l *Ledger) Approve(owner, spender uuid.UUID, amount int64) error {
	if amount < 0 {
		return ErrNonPositiveAmount
	}
	l.allowances[allowanceKey{owner, spender}] = amount
	return nil
}

// ConsumeAllowance deducts amount from the owner→spender allowance.
func (l *Ledger) ConsumeAllowance(owner, spender uuid.UUID, amount int64) error {
	key := allowanceKey{owner, spender}
	if l.allowances[key] < amount {
		return fmt.Errorf("%w: have=%d, need=%d", ErrInsufficientAllowance, l.allowances[key], amount)
	}
	l.allowances[key] -= amount
	return nil
}

// CanMove reports whether from holds at least amount.
func (l *Ledger) CanMove(from uuid.UUID, amount int64) bool {
	return l.balances[from] >= amount
}

// Move transfers amount of wrapped units between principals.
func (l *Ledger) Move(from, to uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if l.balances[from] < amount {
		return fmt.Errorf("%w: have=%d, need=%d", ErrInsufficientBalance, l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Mint credits to with amount newly issued wrapped units.
func (l *Ledger) Mint(to uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	l.balances[to] += amount
	l.totalSupply += amount
	return nil
}

// Burn destroys amount wrapped units held by from.
func (l *Ledger) Burn(from uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if l.balances[from] < amount {
		return fmt.Errorf("%w: have=%d, need=%d", ErrInsufficientBalance, l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.totalSupply -= amount
	return nil
}

// ValidateSupply verifies that the sum of all balances equals total supply.
func (l *Ledger) ValidateSupply() error {
	var sum int64
	for _, b := range l.balances {
		sum += b
	}
	if sum != l.totalSupply {
		return fmt.Errorf("supply invariant violated: balances sum %d != total supply %d", sum, l.totalSupply)
	}
	return nil
}

// Restore* apply previously validated mutations verbatim during event-log
// replay. They skip validation: the log only contains committed operations.

// RestoreCredit mints amount to the principal.
func (l *Ledger) RestoreCredit(to uuid.UUID, amount int64) {
	l.balances[to] += amount
	l.totalSupply += amount
}

// RestoreDebit burns amount from the principal.
func (l *Ledger) RestoreDebit(from uuid.UUID, amount int64) {
	l.balances[from] -= amount
	l.totalSupply -= amount
}

// RestoreMove transfers amount between principals.
func (l *Ledger) RestoreMove(from, to uuid.UUID, amount int64) {
	l.balances[from] -= amount
	l.balances[to] += amount
}

// RestoreAllowance sets the owner→spender allowance.
func (l *Ledger) RestoreAllowance(owner, spender uuid.UUID, amount int64) {
	l.allowances[allowanceKey{owner, spender}] = amount
}

// RestoreAllowanceDelta adjusts the owner→spender allowance by delta.
func (l *Ledger) RestoreAllowanceDelta(owner, spender uuid.UUID, delta int64) {
	l.allowances[allowanceKey{owner, spender}] += delta
}

// Snapshot returns a copy of all balances.
func (l *Ledger) Snapshot() map[uuid.UUID]int64 {
	snapshot := make(map[uuid.UUID]int64, len(l.balances))
	for k, v := range l.balances {
		snapshot[k] = v
	}
	return snapshot
}
