package query

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one event-log row for API queries.
type HistoryEntry struct {
	Sequence  int64           `json:"sequence"`
	Tick      int64           `json:"tick"`
	EventType string          `json:"event_type"`
	Principal uuid.UUID       `json:"principal"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// HistoryResponse is a paginated slice of the event log. AsOfSequence is the
// highest persisted sequence at query time; callers page with the Cursor.
type HistoryResponse struct {
	Entries      []HistoryEntry `json:"entries"`
	Cursor       int64          `json:"cursor,omitempty"`
	AsOfSequence int64          `json:"as_of_sequence"`
}

// IntegrityReport is the result of a hash-chain verification pass.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	EventCount      int64   `json:"event_count"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
}
