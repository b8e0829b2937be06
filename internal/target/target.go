// Package target provides the liquidation-eligibility collaborator.
package target

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is an admin-settable breaker.Target implementation: the
// surrounding lending protocol (or an operator, in staging) marks principals
// liquidatable and reports their collateral here.
type Registry struct {
	mu           sync.RWMutex
	liquidatable map[uuid.UUID]bool
	collateral   map[uuid.UUID]int64
}

func NewRegistry() *Registry {
	return &Registry{
		liquidatable: make(map[uuid.UUID]bool),
		collateral:   make(map[uuid.UUID]int64),
	}
}

func (r *Registry) CanLiquidate(principal uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.liquidatable[principal]
}

func (r *Registry) UserCollateral(principal uuid.UUID) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collateral[principal]
}

// SetStatus updates a principal's eligibility and reported collateral.
func (r *Registry) SetStatus(principal uuid.UUID, liquidatable bool, collateral int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liquidatable[principal] = liquidatable
	r.collateral[principal] = collateral
}
