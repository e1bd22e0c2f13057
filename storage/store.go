// Package storage defines the persistence boundary for session-scoped
// engine state. Writes are best-effort appends; only the most recent
// record of a given type matters on read.
package storage

import (
	"context"
	"sync"
	"time"
)

// RecordTypeBudgetState is the type discriminator for engine state
// records. Other record types sharing the same log are ignored on read.
const RecordTypeBudgetState = "context-budget-state"

// SessionStateRecord is one appended state entry for a session.
type SessionStateRecord struct {
	// Type is the record discriminator; the engine only reads records
	// whose type is RecordTypeBudgetState.
	Type string `json:"type"`

	// Timestamp is when the record was appended.
	Timestamp time.Time `json:"timestamp"`

	// ExpiredIDs is the monotonic set of snapshot artifact ids that have
	// ever been expired for this session.
	ExpiredIDs []string `json:"expired_ids"`
}

// Store persists session state records.
//
// AppendSessionState is fire-and-forget from the engine's point of view:
// a failed append is logged and dropped, never surfaced to the turn.
// LatestSessionState returns (nil, nil) when no record exists.
type Store interface {
	AppendSessionState(ctx context.Context, sessionID string, record *SessionStateRecord) error
	LatestSessionState(ctx context.Context, sessionID string) (*SessionStateRecord, error)
}

// MemoryStore is an in-process Store for tests and single-process hosts.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]*SessionStateRecord
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]*SessionStateRecord)}
}

// AppendSessionState appends a record to the session's log.
func (s *MemoryStore) AppendSessionState(_ context.Context, sessionID string, record *SessionStateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *record
	stored.ExpiredIDs = append([]string(nil), record.ExpiredIDs...)
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now()
	}
	s.records[sessionID] = append(s.records[sessionID], &stored)
	return nil
}

// LatestSessionState returns the most recently appended budget state
// record for the session, or (nil, nil) when none exists.
func (s *MemoryStore) LatestSessionState(_ context.Context, sessionID string) (*SessionStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.records[sessionID]
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].Type == RecordTypeBudgetState {
			rec := *log[i]
			rec.ExpiredIDs = append([]string(nil), log[i].ExpiredIDs...)
			return &rec, nil
		}
	}
	return nil, nil
}
