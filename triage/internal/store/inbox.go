// CLAUDE:SUMMARY Inbox CRUD plus the cached policy and unread-count columns.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateInbox inserts a new inbox. Timestamps are filled in when unset.
func (s *Store) CreateInbox(ctx context.Context, in *Inbox) error {
	now := time.Now().Unix()
	if in.CreatedAt == 0 {
		in.CreatedAt = now
	}
	if in.UpdatedAt == 0 {
		in.UpdatedAt = now
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO inboxes (id, name, query, filters_json, catch_all, policy_json, query_vector, unread_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Name, in.Query, in.FiltersJSON, boolToInt(in.CatchAll),
		in.PolicyJSON, in.QueryVector, in.UnreadCount, in.CreatedAt, in.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create inbox %s: %w", in.ID, err)
	}
	return nil
}

// GetInbox returns the inbox or (nil, nil) when it does not exist.
func (s *Store) GetInbox(ctx context.Context, id string) (*Inbox, error) {
	row := s.DB.QueryRowContext(ctx, selectInbox+` WHERE id = ?`, id)
	return scanInbox(row)
}

// GetCatchAllInbox returns the catch-all inbox, or (nil, nil) when none
// has been created yet.
func (s *Store) GetCatchAllInbox(ctx context.Context) (*Inbox, error) {
	row := s.DB.QueryRowContext(ctx, selectInbox+` WHERE catch_all != 0 ORDER BY created_at ASC LIMIT 1`)
	return scanInbox(row)
}

// ListInboxes returns all inboxes, catch-all first, then by creation order.
func (s *Store) ListInboxes(ctx context.Context) ([]*Inbox, error) {
	rows, err := s.DB.QueryContext(ctx, selectInbox+` ORDER BY catch_all DESC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list inboxes: %w", err)
	}
	defer rows.Close()

	var out []*Inbox
	for rows.Next() {
		in, err := scanInbox(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// UpdateInbox rewrites the mutable descriptive fields. The policy cache
// and unread count have their own setters; catch_all is immutable.
func (s *Store) UpdateInbox(ctx context.Context, in *Inbox) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE inboxes SET name = ?, query = ?, filters_json = ?, query_vector = ?, updated_at = ?
		WHERE id = ?`,
		in.Name, in.Query, in.FiltersJSON, in.QueryVector, time.Now().Unix(), in.ID)
	if err != nil {
		return fmt.Errorf("store: update inbox %s: %w", in.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("store: update inbox %s: not found", in.ID)
	}
	return nil
}

// SavePolicy replaces the cached learning policy for an inbox.
func (s *Store) SavePolicy(ctx context.Context, inboxID, policyJSON string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE inboxes SET policy_json = ?, updated_at = ? WHERE id = ?`,
		policyJSON, time.Now().Unix(), inboxID)
	if err != nil {
		return fmt.Errorf("store: save policy for %s: %w", inboxID, err)
	}
	return nil
}

// SetUnreadCount updates the cached unread counter shown in inbox lists.
func (s *Store) SetUnreadCount(ctx context.Context, inboxID string, n int) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE inboxes SET unread_count = ? WHERE id = ?`, n, inboxID)
	if err != nil {
		return fmt.Errorf("store: set unread count for %s: %w", inboxID, err)
	}
	return nil
}

// DeleteInbox removes the inbox, its feedback ledger (via cascade) and
// its hidden-state rows. Saved and personal state are item-scoped and
// survive.
func (s *Store) DeleteInbox(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete inbox %s: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_hidden WHERE inbox_id = ?`, id); err != nil {
		return fmt.Errorf("store: delete inbox %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM inboxes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete inbox %s: %w", id, err)
	}
	return tx.Commit()
}

const selectInbox = `
	SELECT id, name, query, filters_json, catch_all, policy_json, query_vector, unread_count, created_at, updated_at
	FROM inboxes`

func scanInbox(row rowScanner) (*Inbox, error) {
	var in Inbox
	var catchAll int
	err := row.Scan(&in.ID, &in.Name, &in.Query, &in.FiltersJSON, &catchAll,
		&in.PolicyJSON, &in.QueryVector, &in.UnreadCount, &in.CreatedAt, &in.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan inbox: %w", err)
	}
	in.CatchAll = catchAll != 0
	return &in, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
