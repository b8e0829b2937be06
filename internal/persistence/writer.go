package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventLogWriter batch-writes committed events to Postgres using multi-row
// INSERT. ON CONFLICT DO NOTHING makes writes idempotent across worker
// retries and process restarts.
type EventLogWriter struct {
	db *sql.DB
}

// EventRow is one row of breaker.events.
type EventRow struct {
	Sequence  int64
	Tick      int64
	EventType string
	Principal uuid.UUID
	Payload   []byte
	StateHash []byte
	PrevHash  []byte
	Timestamp time.Time
}

func NewEventLogWriter(db *sql.DB) *EventLogWriter {
	return &EventLogWriter{db: db}
}

// WriteEventBatch writes a batch of events inside the given transaction.
func (w *EventLogWriter) WriteEventBatch(ctx context.Context, tx *sql.Tx, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}

	query := `INSERT INTO breaker.events
		(sequence, tick, event_type, principal, payload, state_hash, prev_hash, timestamp)
		VALUES `

	values := make([]string, 0, len(events))
	args := make([]interface{}, 0, len(events)*8)

	for i, e := range events {
		base := i * 8
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8,
		))
		args = append(args,
			e.Sequence, e.Tick, e.EventType, e.Principal,
			e.Payload, e.StateHash, e.PrevHash, e.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// MaxSequence returns the highest persisted sequence, or 0 for an empty log.
func (w *EventLogWriter) MaxSequence(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := w.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM breaker.events`).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max.Int64, nil
}
