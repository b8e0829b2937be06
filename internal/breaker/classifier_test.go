package breaker

import (
	"testing"

	"github.com/google/uuid"
)

func TestClassifySameTickDeposit(t *testing.T) {
	m := NewApprovalMarkers()
	owner, vault := uuid.New(), uuid.New()

	m.Record(owner, vault, 7)

	tests := []struct {
		name string
		now  Tick
		want Classification
	}{
		{"same tick", 7, ClassificationOwnerDeposit},
		{"one tick later", 8, ClassificationSeizureAttempt},
		{"before the approval", 6, ClassificationSeizureAttempt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Classify(owner, vault, tt.now); got != tt.want {
				t.Errorf("classify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyNoMarker(t *testing.T) {
	m := NewApprovalMarkers()
	if got := m.Classify(uuid.New(), uuid.New(), 1); got != ClassificationSeizureAttempt {
		t.Errorf("classify without marker = %v, want seizure attempt", got)
	}
}

func TestClassifyPairIsolation(t *testing.T) {
	m := NewApprovalMarkers()
	owner, vault, other := uuid.New(), uuid.New(), uuid.New()
	m.Record(owner, vault, 5)

	// The marker binds one (owner, spender) pair only.
	if got := m.Classify(owner, other, 5); got != ClassificationSeizureAttempt {
		t.Errorf("unrelated spender classified as deposit")
	}
	if got := m.Classify(other, vault, 5); got != ClassificationSeizureAttempt {
		t.Errorf("unrelated owner classified as deposit")
	}
}

func TestMarkerOverwrite(t *testing.T) {
	m := NewApprovalMarkers()
	owner, vault := uuid.New(), uuid.New()

	m.Record(owner, vault, 3)
	m.Record(owner, vault, 9)

	if tick, ok := m.LastApproval(owner, vault); !ok || tick != 9 {
		t.Errorf("last approval = (%d, %v), want (9, true)", tick, ok)
	}
	if got := m.Classify(owner, vault, 3); got != ClassificationSeizureAttempt {
		t.Errorf("stale approval tick still classifies as deposit")
	}
	if got := m.Classify(owner, vault, 9); got != ClassificationOwnerDeposit {
		t.Errorf("latest approval tick not classified as deposit")
	}
}
