package breaker

import (
	"github.com/google/uuid"
)

// Target is the liquidation-eligibility collaborator implemented by the
// surrounding lending protocol. Both queries are read-only and invoked
// synchronously; the target is never mutated from here.
type Target interface {
	CanLiquidate(principal uuid.UUID) bool
	UserCollateral(principal uuid.UUID) int64
}

// Registry owns the per-principal liquidation records. No other component
// writes liquidation state; everything goes through typed operations here.
// Not safe for concurrent use; the engine serializes access.
type Registry struct {
	cooldown Tick
	window   Tick
	records  map[uuid.UUID]Record
	target   Target
}

func NewRegistry(target Target, cooldown, window Tick) *Registry {
	return &Registry{
		cooldown: cooldown,
		window:   window,
		records:  make(map[uuid.UUID]Record),
		target:   target,
	}
}

// Cooldown returns the configured cooldown duration in ticks.
func (g *Registry) Cooldown() Tick { return g.cooldown }

// WindowDuration returns the configured execution window duration in ticks.
func (g *Registry) WindowDuration() Tick { return g.window }

// Get returns the record for a principal, if any.
func (g *Registry) Get(principal uuid.UUID) (Record, bool) {
	rec, ok := g.records[principal]
	return rec, ok
}

// Initiate opens a cooldown+window record for the principal.
//
// First-come-first-served: while a record's window has not yet elapsed, any
// competing Initiate fails with ErrAlreadyInitiated, so a racing initiator
// can never reset an in-progress countdown. A stale record (window elapsed
// unused) is cleared and replaced.
func (g *Registry) Initiate(principal uuid.UUID, now Tick) (Record, error) {
	if !g.target.CanLiquidate(principal) {
		return Record{}, ErrNotLiquidatable
	}

	if existing, ok := g.records[principal]; ok && existing.Active() {
		if now <= existing.WindowEnd {
			return Record{}, ErrAlreadyInitiated
		}
		delete(g.records, principal)
	}

	blockedUntil := now + g.cooldown
	rec := Record{
		BlockedUntil: blockedUntil,
		WindowEnd:    blockedUntil + g.window,
		Snapshot:     g.target.UserCollateral(principal),
	}
	g.records[principal] = rec

	return rec, nil
}

// Clear removes the principal's record entirely.
func (g *Registry) Clear(principal uuid.UUID) {
	delete(g.records, principal)
}

// ClearIfExpired lazily detects expiry: if the principal's record has an
// elapsed window it is removed. Reports whether a record was cleared.
func (g *Registry) ClearIfExpired(principal uuid.UUID, now Tick) bool {
	rec, ok := g.records[principal]
	if !ok || rec.PhaseAt(now) != PhaseExpired {
		return false
	}
	delete(g.records, principal)
	return true
}

// ActiveCount returns the number of live records.
func (g *Registry) ActiveCount() int {
	return len(g.records)
}

// Restore installs a record directly, bypassing eligibility checks.
// Used only by event-log replay.
func (g *Registry) Restore(principal uuid.UUID, rec Record) {
	g.records[principal] = rec
}
