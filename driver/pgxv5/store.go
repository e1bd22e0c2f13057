package pgxv5

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/youssefsiam38/contextpg/storage"
)

// Store implements storage.Store using the pgxv5 driver.
type Store struct {
	driver *Driver
}

// NewStore creates a new pgxv5 Store.
func NewStore(d *Driver) *Store {
	return &Store{driver: d}
}

// AppendSessionState appends a session state record.
func (s *Store) AppendSessionState(ctx context.Context, sessionID string, record *storage.SessionStateRecord) error {
	if sessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if record == nil {
		return fmt.Errorf("record is required")
	}

	recordType := record.Type
	if recordType == "" {
		recordType = storage.RecordTypeBudgetState
	}
	createdAt := record.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO contextpg_session_state (id, session_id, record_type, expired_ids, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.driver.pool.Exec(ctx, query, uuid.New().String(), sessionID, recordType, record.ExpiredIDs, createdAt)
	if err != nil {
		return fmt.Errorf("failed to append session state: %w", err)
	}
	return nil
}

// LatestSessionState returns the most recent budget state record for the
// session, or (nil, nil) when none exists.
func (s *Store) LatestSessionState(ctx context.Context, sessionID string) (*storage.SessionStateRecord, error) {
	query := `
		SELECT record_type, expired_ids, created_at
		FROM contextpg_session_state
		WHERE session_id = $1 AND record_type = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var record storage.SessionStateRecord
	row := s.driver.pool.QueryRow(ctx, query, sessionID, storage.RecordTypeBudgetState)
	err := row.Scan(&record.Type, &record.ExpiredIDs, &record.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session state: %w", err)
	}
	return &record, nil
}
