// CLAUDE:SUMMARY SQLite schema for the triage store plus the legacy item_saved.hidden migration.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema creates all triage tables. Idempotent; pass to dbopen.WithSchema.
//
// feedback_events is append-only: rows are never updated, and deleted only
// by the ON DELETE CASCADE when an inbox is torn down. item_saved is keyed
// by item alone (saving is global), item_hidden by item and inbox (hiding
// is scoped), item_personal by item and user.
const Schema = `
CREATE TABLE IF NOT EXISTS items (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	body            TEXT NOT NULL DEFAULT '',
	authority       TEXT NOT NULL DEFAULT '',
	classification  TEXT NOT NULL DEFAULT '',
	value           REAL NOT NULL DEFAULT 0,
	published_at    INTEGER NOT NULL DEFAULT 0,
	embedded_at     INTEGER,
	created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS inboxes (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	query         TEXT NOT NULL DEFAULT '',
	filters_json  TEXT NOT NULL DEFAULT '{}',
	catch_all     INTEGER NOT NULL DEFAULT 0,
	policy_json   TEXT NOT NULL DEFAULT '',
	query_vector  BLOB,
	unread_count  INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback_events (
	id                TEXT PRIMARY KEY,
	inbox_id          TEXT NOT NULL REFERENCES inboxes(id) ON DELETE CASCADE,
	item_id           TEXT NOT NULL,
	action            TEXT NOT NULL,
	score             INTEGER NOT NULL,
	reason            TEXT NOT NULL DEFAULT '',
	view_duration_ms  INTEGER NOT NULL DEFAULT 0,
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_inbox_created ON feedback_events(inbox_id, created_at);

CREATE TABLE IF NOT EXISTS item_saved (
	item_id   TEXT PRIMARY KEY,
	saved_by  TEXT NOT NULL DEFAULT '',
	saved_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS item_hidden (
	item_id    TEXT NOT NULL,
	inbox_id   TEXT NOT NULL,
	hidden_by  TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	hidden_at  INTEGER NOT NULL,
	PRIMARY KEY (item_id, inbox_id)
);

CREATE TABLE IF NOT EXISTS item_personal (
	item_id     TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	is_read     INTEGER NOT NULL DEFAULT 0,
	is_new      INTEGER NOT NULL DEFAULT 1,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (item_id, user_id)
);
`

// Migrate upgrades databases written by older releases. Older schemas
// stored a global hidden flag on item_saved; hiding is now scoped per
// inbox. Rows with the legacy flag set are moved to item_hidden under the
// empty inbox id, which the hidden-state queries treat as hidden
// everywhere, then the column is dropped. Idempotent and safe on fresh
// databases.
func Migrate(ctx context.Context, db *sql.DB) error {
	var hasLegacy int
	err := db.QueryRowContext(ctx,
		`SELECT count(*) FROM pragma_table_info('item_saved') WHERE name = 'hidden'`,
	).Scan(&hasLegacy)
	if err != nil {
		return fmt.Errorf("store: inspect item_saved: %w", err)
	}
	if hasLegacy == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin migration: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`INSERT OR IGNORE INTO item_hidden (item_id, inbox_id, hidden_by, reason, hidden_at)
		 SELECT item_id, '', saved_by, 'migrated from legacy saved state', saved_at
		 FROM item_saved WHERE hidden != 0`,
		`DELETE FROM item_saved WHERE hidden != 0 AND saved_at = 0`,
		`ALTER TABLE item_saved DROP COLUMN hidden`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate item_saved.hidden: %w", err)
		}
	}
	return tx.Commit()
}
