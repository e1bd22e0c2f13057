package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_LatestWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec, err := store.LatestSessionState(ctx, "sess")
	if err != nil {
		t.Fatalf("LatestSessionState() error = %v", err)
	}
	if rec != nil {
		t.Fatalf("LatestSessionState() on empty store = %+v, want nil", rec)
	}

	first := &SessionStateRecord{Type: RecordTypeBudgetState, ExpiredIDs: []string{"s1"}}
	second := &SessionStateRecord{Type: RecordTypeBudgetState, ExpiredIDs: []string{"s1", "s2"}}
	if err := store.AppendSessionState(ctx, "sess", first); err != nil {
		t.Fatalf("AppendSessionState() error = %v", err)
	}
	if err := store.AppendSessionState(ctx, "sess", second); err != nil {
		t.Fatalf("AppendSessionState() error = %v", err)
	}

	rec, err = store.LatestSessionState(ctx, "sess")
	if err != nil {
		t.Fatalf("LatestSessionState() error = %v", err)
	}
	if rec == nil || len(rec.ExpiredIDs) != 2 {
		t.Fatalf("latest record = %+v, want two expired ids", rec)
	}
	if rec.Timestamp.IsZero() {
		t.Error("append did not stamp the record")
	}
}

func TestMemoryStore_IgnoresOtherRecordTypes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	budget := &SessionStateRecord{Type: RecordTypeBudgetState, ExpiredIDs: []string{"s1"}}
	other := &SessionStateRecord{Type: "unrelated", ExpiredIDs: []string{"x"}}
	store.AppendSessionState(ctx, "sess", budget)
	store.AppendSessionState(ctx, "sess", other)

	rec, err := store.LatestSessionState(ctx, "sess")
	if err != nil {
		t.Fatalf("LatestSessionState() error = %v", err)
	}
	if rec == nil || rec.Type != RecordTypeBudgetState || rec.ExpiredIDs[0] != "s1" {
		t.Errorf("record = %+v, want the budget-state record", rec)
	}
}

func TestMemoryStore_DefensiveCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ids := []string{"s1"}
	record := &SessionStateRecord{Type: RecordTypeBudgetState, Timestamp: time.Now(), ExpiredIDs: ids}
	store.AppendSessionState(ctx, "sess", record)

	// Mutating the caller's slice must not reach the stored copy.
	ids[0] = "mutated"
	rec, _ := store.LatestSessionState(ctx, "sess")
	if rec.ExpiredIDs[0] != "s1" {
		t.Errorf("stored record aliased the caller's slice: %v", rec.ExpiredIDs)
	}

	// Mutating the returned slice must not reach the store.
	rec.ExpiredIDs[0] = "mutated"
	rec2, _ := store.LatestSessionState(ctx, "sess")
	if rec2.ExpiredIDs[0] != "s1" {
		t.Errorf("returned record aliased storage: %v", rec2.ExpiredIDs)
	}
}

func TestMemoryStore_SessionsIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.AppendSessionState(ctx, "a", &SessionStateRecord{Type: RecordTypeBudgetState, ExpiredIDs: []string{"s1"}})

	rec, err := store.LatestSessionState(ctx, "b")
	if err != nil {
		t.Fatalf("LatestSessionState() error = %v", err)
	}
	if rec != nil {
		t.Errorf("session b saw session a's record: %+v", rec)
	}
}
