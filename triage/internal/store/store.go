// Package store provides the SQLite data access layer for the triage
// engine: items, inboxes, the feedback ledger, and the three item-state
// stores (saved, hidden, personal) with disjoint write ownership.
package store

import "database/sql"

// Store wraps the triage database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection.
// The caller is expected to have applied Schema (see ApplySchema).
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}
