// Package testutil provides test utilities for contextpg
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/youssefsiam38/contextpg/types"
)

// UserTurn builds a user turn with a single text block.
func UserTurn(text string) *types.Turn {
	return &types.Turn{
		Role:   types.RoleUser,
		Blocks: []types.Block{{Type: types.BlockTypeText, Text: text}},
	}
}

// AssistantTurn builds an assistant turn with a single text block.
func AssistantTurn(text string) *types.Turn {
	return &types.Turn{
		Role:   types.RoleAssistant,
		Blocks: []types.Block{{Type: types.BlockTypeText, Text: text}},
	}
}

// AssistantToolCall builds an assistant turn that issues one tool call.
func AssistantToolCall(id, name string, input map[string]any) *types.Turn {
	return &types.Turn{
		Role: types.RoleAssistant,
		Blocks: []types.Block{
			{Type: types.BlockTypeText, Text: "Using " + name},
			{Type: types.BlockTypeToolUse, ToolUseID: id, ToolName: name, ToolInput: input},
		},
	}
}

// ToolResultTurn builds a tool result turn with the given text.
func ToolResultTurn(id, name, text string) *types.Turn {
	return &types.Turn{
		Role:      types.RoleToolResult,
		Blocks:    []types.Block{{Type: types.BlockTypeText, Text: text}},
		ToolUseID: id,
		ToolName:  name,
	}
}

// SnapshotCall builds the assistant turn for a browser snapshot capture.
func SnapshotCall(id string) *types.Turn {
	return AssistantToolCall(id, "browser", map[string]any{"action": "snapshot"})
}

// SnapshotResult builds the tool result turn for a browser snapshot.
func SnapshotResult(id, text string) *types.Turn {
	return ToolResultTurn(id, "browser", text)
}

// TestDB wraps a PostgreSQL connection pool for testing
type TestDB struct {
	Pool *pgxpool.Pool
}

// NewTestDB creates a test database connection from DATABASE_URL env var.
// Skips the test if DATABASE_URL is not set.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	return &TestDB{Pool: pool}
}

// Close closes the database connection
func (db *TestDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// CleanTables truncates the engine's tables for test isolation
func (db *TestDB) CleanTables(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, "TRUNCATE TABLE contextpg_session_state")
	return err
}

// OpenTestSQLDB opens a database/sql connection from DATABASE_URL.
// Skips the test if DATABASE_URL is not set. The caller must have
// imported a postgres driver registered as "postgres".
func OpenTestSQLDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
		return nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}
	return db
}
