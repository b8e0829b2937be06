package token

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestMintBurnSupply(t *testing.T) {
	l := NewLedger()
	alice := uuid.New()

	if err := l.Mint(alice, 500); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := l.BalanceOf(alice); got != 500 {
		t.Errorf("balance = %d, want 500", got)
	}
	if got := l.TotalSupply(); got != 500 {
		t.Errorf("supply = %d, want 500", got)
	}

	if err := l.Burn(alice, 200); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := l.BalanceOf(alice); got != 300 {
		t.Errorf("balance after burn = %d, want 300", got)
	}
	if got := l.TotalSupply(); got != 300 {
		t.Errorf("supply after burn = %d, want 300", got)
	}

	if err := l.Burn(alice, 301); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("over-burn err = %v, want ErrInsufficientBalance", err)
	}
	if err := l.Mint(alice, 0); !errors.Is(err, ErrNonPositiveAmount) {
		t.Errorf("zero mint err = %v, want ErrNonPositiveAmount", err)
	}
}

func TestMove(t *testing.T) {
	l := NewLedger()
	alice, bob := uuid.New(), uuid.New()
	l.Mint(alice, 100)

	if err := l.Move(alice, bob, 60); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := l.BalanceOf(alice); got != 40 {
		t.Errorf("alice = %d, want 40", got)
	}
	if got := l.BalanceOf(bob); got != 60 {
		t.Errorf("bob = %d, want 60", got)
	}

	if err := l.Move(alice, bob, 41); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("overdraft err = %v, want ErrInsufficientBalance", err)
	}
	if err := l.Move(alice, bob, -1); !errors.Is(err, ErrNonPositiveAmount) {
		t.Errorf("negative err = %v, want ErrNonPositiveAmount", err)
	}

	if err := l.ValidateSupply(); err != nil {
		t.Errorf("supply invariant: %v", err)
	}
}

func TestAllowances(t *testing.T) {
	l := NewLedger()
	owner, spender := uuid.New(), uuid.New()

	if err := l.Approve(owner, spender, 100); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := l.Allowance(owner, spender); got != 100 {
		t.Errorf("allowance = %d, want 100", got)
	}

	// Re-approval replaces, never accumulates.
	l.Approve(owner, spender, 30)
	if got := l.Allowance(owner, spender); got != 30 {
		t.Errorf("allowance after re-approve = %d, want 30", got)
	}

	if err := l.ConsumeAllowance(owner, spender, 20); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got := l.Allowance(owner, spender); got != 10 {
		t.Errorf("allowance after consume = %d, want 10", got)
	}

	if err := l.ConsumeAllowance(owner, spender, 11); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("over-consume err = %v, want ErrInsufficientAllowance", err)
	}

	if err := l.Approve(owner, spender, -5); !errors.Is(err, ErrNonPositiveAmount) {
		t.Errorf("negative approve err = %v, want ErrNonPositiveAmount", err)
	}
	// Approving zero revokes.
	if err := l.Approve(owner, spender, 0); err != nil {
		t.Errorf("zero approve: %v", err)
	}
	if got := l.Allowance(owner, spender); got != 0 {
		t.Errorf("allowance after revoke = %d, want 0", got)
	}
}
