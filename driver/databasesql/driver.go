// Package databasesql provides a database/sql backed session state store
// for hosts that cannot adopt pgx directly. It targets PostgreSQL and
// uses lib/pq array support for the expired-id column.
//
// See driver/pgxv5 for the required schema.
package databasesql

import (
	"database/sql"

	"github.com/youssefsiam38/contextpg/storage"
)

// Driver wraps a database/sql connection pool.
type Driver struct {
	db *sql.DB
}

// New creates a new database/sql driver using the provided connection.
func New(db *sql.DB) *Driver {
	return &Driver{db: db}
}

// PoolIsSet returns true if the driver has a database configured.
func (d *Driver) PoolIsSet() bool {
	return d.db != nil
}

// GetStore returns a storage.Store backed by this driver.
func (d *Driver) GetStore() storage.Store {
	return &Store{db: d.db}
}
