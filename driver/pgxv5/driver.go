// Package pgxv5 provides a pgx/v5 backed session state store.
//
// This is the primary/recommended driver, sharing a pgxpool with the rest
// of the host application.
//
// Usage:
//
//	pool, _ := pgxpool.New(ctx, databaseURL)
//	drv := pgxv5.New(pool)
//	engine := contextpg.New(drv.GetStore(), settings, logger)
//
// Required schema:
//
//	CREATE TABLE contextpg_session_state (
//	    id          UUID PRIMARY KEY,
//	    session_id  TEXT NOT NULL,
//	    record_type TEXT NOT NULL,
//	    expired_ids TEXT[] NOT NULL DEFAULT '{}',
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX contextpg_session_state_lookup
//	    ON contextpg_session_state (session_id, record_type, created_at DESC);
package pgxv5

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/youssefsiam38/contextpg/storage"
)

// Driver wraps a pgxpool connection pool.
type Driver struct {
	pool *pgxpool.Pool
}

// New creates a new pgx/v5 driver with the given connection pool.
func New(pool *pgxpool.Pool) *Driver {
	return &Driver{pool: pool}
}

// PoolIsSet returns true if the driver has a database pool configured.
func (d *Driver) PoolIsSet() bool {
	return d.pool != nil
}

// GetStore returns a storage.Store backed by this driver.
func (d *Driver) GetStore() storage.Store {
	return NewStore(d)
}

// Pool returns the underlying pgxpool.Pool for advanced usage.
func (d *Driver) Pool() *pgxpool.Pool {
	return d.pool
}
