package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Service provides read-only access to the persisted event log. Queries go
// straight to Postgres rather than the engine, so they never contend with
// the serialized write path; AsOfSequence tells the caller how fresh the
// answer is.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// PrincipalHistory returns the principal's events newest-first with
// cursor-based pagination. A nil beforeSequence starts from the newest event.
func (s *Service) PrincipalHistory(
	ctx context.Context,
	principal uuid.UUID,
	limit int,
	beforeSequence *int64,
) (*HistoryResponse, error) {
	asOfSeq, err := s.watermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	query := `
		SELECT sequence, tick, event_type, principal, payload, timestamp
		FROM breaker.events
		WHERE principal = $1
	`
	args := []interface{}{principal}
	argIdx := 2

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return paginate(entries, asOfSeq), nil
}

// LiquidationHistory returns liquidation lifecycle events (initiations,
// seizures, expirations) newest-first, optionally scoped to one principal.
func (s *Service) LiquidationHistory(
	ctx context.Context,
	principal *uuid.UUID,
	limit int,
	beforeSequence *int64,
) (*HistoryResponse, error) {
	asOfSeq, err := s.watermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	query := `
		SELECT sequence, tick, event_type, principal, payload, timestamp
		FROM breaker.events
		WHERE event_type IN ('LiquidationInitiated', 'SeizureExecuted', 'LiquidationExpired')
	`
	args := []interface{}{}
	argIdx := 1

	if principal != nil {
		query += fmt.Sprintf(" AND principal = $%d", argIdx)
		args = append(args, *principal)
		argIdx++
	}

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return paginate(entries, asOfSeq), nil
}

// VerifyIntegrity checks hash-chain continuity across the persisted log.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM breaker.events`,
	).Scan(&report.EventCount); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM breaker.events e1
		JOIN breaker.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.prev_hash != e2.state_hash
		ORDER BY e1.sequence
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0
	return report, nil
}

// --- helpers ---

func (s *Service) watermark(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM breaker.events`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq.Int64, nil
}

func (s *Service) queryEntries(ctx context.Context, query string, args ...interface{}) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.Sequence, &e.Tick, &e.EventType, &e.Principal, &e.Payload, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func paginate(entries []HistoryEntry, asOfSeq int64) *HistoryResponse {
	resp := &HistoryResponse{Entries: entries, AsOfSequence: asOfSeq}
	if len(entries) > 0 {
		resp.Cursor = entries[len(entries)-1].Sequence
	}
	return resp
}
