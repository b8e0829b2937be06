package custody

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestGatewayRoundTrip(t *testing.T) {
	asset := NewInMemoryAsset()
	g := NewGateway(asset)
	alice := uuid.New()
	asset.Credit(alice, 1000)

	if err := g.Deposit(alice, 400); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := g.Held(); got != 400 {
		t.Errorf("held = %d, want 400", got)
	}
	if got := asset.BalanceOf(alice); got != 600 {
		t.Errorf("wallet = %d, want 600", got)
	}

	if err := g.Withdraw(alice, 150); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := g.Held(); got != 250 {
		t.Errorf("held = %d, want 250", got)
	}
	if got := asset.BalanceOf(alice); got != 750 {
		t.Errorf("wallet = %d, want 750", got)
	}
}

func TestGatewayDepositFailsOnEmptyWallet(t *testing.T) {
	g := NewGateway(NewInMemoryAsset())
	alice := uuid.New()

	if err := g.Deposit(alice, 100); err == nil {
		t.Fatal("deposit from empty wallet succeeded")
	}
	if got := g.Held(); got != 0 {
		t.Errorf("held after failed deposit = %d, want 0", got)
	}
}

func TestGatewayWithdrawUnderflow(t *testing.T) {
	asset := NewInMemoryAsset()
	g := NewGateway(asset)
	alice := uuid.New()
	asset.Credit(alice, 100)
	g.Deposit(alice, 100)

	if err := g.Withdraw(alice, 101); err == nil {
		t.Fatal("custody underflow not rejected")
	}
	if got := g.Held(); got != 100 {
		t.Errorf("held after failed withdraw = %d, want 100", got)
	}
}

func TestGatewayRejectsNonPositive(t *testing.T) {
	g := NewGateway(NewInMemoryAsset())
	alice := uuid.New()

	for _, amount := range []int64{0, -1} {
		if err := g.Deposit(alice, amount); !errors.Is(err, ErrNonPositiveAmount) {
			t.Errorf("deposit(%d) err = %v, want ErrNonPositiveAmount", amount, err)
		}
		if err := g.Withdraw(alice, amount); !errors.Is(err, ErrNonPositiveAmount) {
			t.Errorf("withdraw(%d) err = %v, want ErrNonPositiveAmount", amount, err)
		}
	}
}

func TestGatewayRestore(t *testing.T) {
	g := NewGateway(NewInMemoryAsset())
	g.Restore(500)
	g.Restore(-200)
	if got := g.Held(); got != 300 {
		t.Errorf("held after restore = %d, want 300", got)
	}
}
