package custody

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemoryAsset is an UnderlyingAsset backed by a plain balance map, used for
// local runs and tests. Production deployments implement UnderlyingAsset
// against the real custodian.
type InMemoryAsset struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	custody  int64
}

func NewInMemoryAsset() *InMemoryAsset {
	return &InMemoryAsset{balances: make(map[uuid.UUID]int64)}
}

// Credit is the faucet: it mints underlying units to a principal.
func (a *InMemoryAsset) Credit(principal uuid.UUID, amount int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[principal] += amount
}

func (a *InMemoryAsset) PullFrom(principal uuid.UUID, amount int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balances[principal] < amount {
		return fmt.Errorf("underlying transfer failed: have=%d, need=%d", a.balances[principal], amount)
	}
	a.balances[principal] -= amount
	a.custody += amount
	return nil
}

func (a *InMemoryAsset) PushTo(principal uuid.UUID, amount int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.custody < amount {
		return fmt.Errorf("underlying custody underflow: have=%d, need=%d", a.custody, amount)
	}
	a.custody -= amount
	a.balances[principal] += amount
	return nil
}

func (a *InMemoryAsset) BalanceOf(principal uuid.UUID) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[principal]
}
