package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jordan-public/circuit-breaker-token/internal/event"
)

// Reader streams persisted events back out of Postgres for startup replay
// and for the history query API.
type Reader struct {
	db *sql.DB
}

func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// LoadEventsFrom returns all events with sequence > afterSequence in sequence
// order. Called with 0 on startup to replay the full log.
func (r *Reader) LoadEventsFrom(ctx context.Context, afterSequence int64) ([]event.Envelope, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sequence, tick, event_type, principal, payload, state_hash, prev_hash, timestamp
		FROM breaker.events
		WHERE sequence > $1
		ORDER BY sequence ASC
	`, afterSequence)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var envelopes []event.Envelope
	for rows.Next() {
		env, err := scanEnvelope(rows)
		if err != nil {
			return nil, err
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, rows.Err()
}

func scanEnvelope(rows *sql.Rows) (event.Envelope, error) {
	var (
		env       event.Envelope
		eventType string
		stateHash []byte
		prevHash  []byte
	)
	if err := rows.Scan(
		&env.Sequence, &env.Tick, &eventType, &env.Principal,
		&env.Payload, &stateHash, &prevHash, &env.Timestamp,
	); err != nil {
		return event.Envelope{}, fmt.Errorf("scan event row: %w", err)
	}

	env.Type = event.ParseType(eventType)
	if env.Type == event.TypeUnknown {
		return event.Envelope{}, fmt.Errorf("sequence %d: unknown event type %q", env.Sequence, eventType)
	}
	if len(stateHash) != 32 || len(prevHash) != 32 {
		return event.Envelope{}, fmt.Errorf("sequence %d: malformed hash lengths %d/%d", env.Sequence, len(stateHash), len(prevHash))
	}
	copy(env.StateHash[:], stateHash)
	copy(env.PrevHash[:], prevHash)

	return env, nil
}
