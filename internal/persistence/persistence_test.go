package persistence

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jordan-public/circuit-breaker-token/internal/testutil"
)

func TestWriteAndReadBack(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	migrator := NewMigrator(db, "../../migrations")
	if err := migrator.Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	writer := NewEventLogWriter(db)
	principal := uuid.New()

	prev := sha256.Sum256([]byte("genesis"))
	rows := make([]EventRow, 0, 3)
	for seq := int64(1); seq <= 3; seq++ {
		hash := sha256.Sum256(append(prev[:], byte(seq)))
		rows = append(rows, EventRow{
			Sequence:  seq,
			Tick:      seq,
			EventType: "Deposit",
			Principal: principal,
			Payload:   []byte(`{"principal":"` + principal.String() + `","amount":100}`),
			StateHash: hash[:],
			PrevHash:  prev[:],
			Timestamp: time.Now().UTC(),
		})
		prev = hash
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := writer.WriteEventBatch(ctx, tx, rows); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Duplicate writes are silently ignored.
	tx, _ = db.BeginTx(ctx, nil)
	if err := writer.WriteEventBatch(ctx, tx, rows[:1]); err != nil {
		t.Fatalf("idempotent rewrite: %v", err)
	}
	tx.Commit()

	maxSeq, err := writer.MaxSequence(ctx)
	if err != nil {
		t.Fatalf("max sequence: %v", err)
	}
	if maxSeq != 3 {
		t.Errorf("max sequence = %d, want 3", maxSeq)
	}

	reader := NewReader(db)
	envs, err := reader.LoadEventsFrom(ctx, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(envs) != 3 {
		t.Fatalf("loaded %d events, want 3", len(envs))
	}
	for i, env := range envs {
		want := rows[i]
		if env.Sequence != want.Sequence || env.Tick != want.Tick || env.Principal != want.Principal {
			t.Errorf("row %d: got seq=%d tick=%d principal=%s", i, env.Sequence, env.Tick, env.Principal)
		}
		if env.StateHash[:][0] != want.StateHash[0] {
			t.Errorf("row %d: state hash mismatch", i)
		}
	}

	// Partial load resumes after the given sequence.
	envs, err = reader.LoadEventsFrom(ctx, 2)
	if err != nil {
		t.Fatalf("partial load: %v", err)
	}
	if len(envs) != 1 {
		t.Fatalf("partial load = %d events, want 1", len(envs))
	}
	if envs[0].Sequence != 3 {
		t.Errorf("partial load first seq = %d, want 3", envs[0].Sequence)
	}
}
