// CLAUDE:SUMMARY Item state: global saved flags, per-inbox hidden rows, per-user read/new rows.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveItem marks an item saved, globally. Saving twice is a no-op that
// keeps the original timestamp.
func (s *Store) SaveItem(ctx context.Context, itemID, savedBy string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO item_saved (item_id, saved_by, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(item_id) DO NOTHING`,
		itemID, savedBy, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: save item %s: %w", itemID, err)
	}
	return nil
}

// UnsaveItem clears the saved flag. Clearing an unsaved item is a no-op.
func (s *Store) UnsaveItem(ctx context.Context, itemID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM item_saved WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("store: unsave item %s: %w", itemID, err)
	}
	return nil
}

// IsSaved reports whether the item carries the global saved flag.
func (s *Store) IsSaved(ctx context.Context, itemID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM item_saved WHERE item_id = ?`, itemID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: is saved %s: %w", itemID, err)
	}
	return true, nil
}

// SavedItemIDs returns the set of saved items.
func (s *Store) SavedItemIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT item_id FROM item_saved`)
	if err != nil {
		return nil, fmt.Errorf("store: saved item ids: %w", err)
	}
	defer rows.Close()
	return collectIDSet(rows)
}

// HideItem hides an item within one inbox. Re-hiding updates who and why.
func (s *Store) HideItem(ctx context.Context, h *HiddenState) error {
	if h.HiddenAt == 0 {
		h.HiddenAt = time.Now().Unix()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO item_hidden (item_id, inbox_id, hidden_by, reason, hidden_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id, inbox_id) DO UPDATE SET
			hidden_by = excluded.hidden_by,
			reason = excluded.reason,
			hidden_at = excluded.hidden_at`,
		h.ItemID, h.InboxID, h.HiddenBy, h.Reason, h.HiddenAt)
	if err != nil {
		return fmt.Errorf("store: hide item %s in %s: %w", h.ItemID, h.InboxID, err)
	}
	return nil
}

// UnhideItem clears the hidden state for one inbox. Legacy global rows
// (empty inbox id, written by the schema migration) are cleared too, so
// unhiding anywhere releases a pre-migration hide.
func (s *Store) UnhideItem(ctx context.Context, itemID, inboxID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM item_hidden WHERE item_id = ? AND inbox_id IN (?, '')`,
		itemID, inboxID)
	if err != nil {
		return fmt.Errorf("store: unhide item %s in %s: %w", itemID, inboxID, err)
	}
	return nil
}

// IsHidden reports whether the item is hidden in the given inbox, either
// by a scoped row or by a legacy global one.
func (s *Store) IsHidden(ctx context.Context, itemID, inboxID string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx,
		`SELECT 1 FROM item_hidden WHERE item_id = ? AND inbox_id IN (?, '') LIMIT 1`,
		itemID, inboxID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: is hidden %s in %s: %w", itemID, inboxID, err)
	}
	return true, nil
}

// HiddenItemIDs returns the set of items hidden in the given inbox,
// including legacy global rows.
func (s *Store) HiddenItemIDs(ctx context.Context, inboxID string) (map[string]bool, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT item_id FROM item_hidden WHERE inbox_id IN (?, '')`, inboxID)
	if err != nil {
		return nil, fmt.Errorf("store: hidden item ids for %s: %w", inboxID, err)
	}
	defer rows.Close()
	return collectIDSet(rows)
}

// SetRead upserts the per-user read flag. Any touch clears is_new: once a
// user has interacted with an item it is no longer new to them.
func (s *Store) SetRead(ctx context.Context, itemID, userID string, read bool) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO item_personal (item_id, user_id, is_read, is_new, updated_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(item_id, user_id) DO UPDATE SET
			is_read = excluded.is_read,
			is_new = 0,
			updated_at = excluded.updated_at`,
		itemID, userID, boolToInt(read), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: set read %s for %s: %w", itemID, userID, err)
	}
	return nil
}

// Touch clears the is_new flag without changing is_read. Viewing an
// item makes it not-new; whether it counts as read is a separate,
// explicit action.
func (s *Store) Touch(ctx context.Context, itemID, userID string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO item_personal (item_id, user_id, is_read, is_new, updated_at)
		VALUES (?, ?, 0, 0, ?)
		ON CONFLICT(item_id, user_id) DO UPDATE SET
			is_new = 0,
			updated_at = excluded.updated_at`,
		itemID, userID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: touch %s for %s: %w", itemID, userID, err)
	}
	return nil
}

// GetPersonal returns a user's state for one item, or (nil, nil) when the
// user has never touched the item (callers treat that as new and unread).
func (s *Store) GetPersonal(ctx context.Context, itemID, userID string) (*PersonalState, error) {
	var ps PersonalState
	var isRead, isNew int
	err := s.DB.QueryRowContext(ctx, `
		SELECT item_id, user_id, is_read, is_new, updated_at
		FROM item_personal WHERE item_id = ? AND user_id = ?`,
		itemID, userID).Scan(&ps.ItemID, &ps.UserID, &isRead, &isNew, &ps.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get personal %s/%s: %w", itemID, userID, err)
	}
	ps.Read = isRead != 0
	ps.New = isNew != 0
	return &ps, nil
}

// ReadItemIDs returns the set of items the user has marked read.
func (s *Store) ReadItemIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT item_id FROM item_personal WHERE user_id = ? AND is_read != 0`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: read item ids for %s: %w", userID, err)
	}
	defer rows.Close()
	return collectIDSet(rows)
}

func collectIDSet(rows *sql.Rows) (map[string]bool, error) {
	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}
