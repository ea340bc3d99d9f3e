// CLAUDE:SUMMARY Append-only feedback ledger: append and ordered replay per inbox.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendFeedback appends one event to the ledger. There is deliberately
// no update or single-row delete: the ledger is the system of record the
// policy cache is rebuilt from.
func (s *Store) AppendFeedback(ctx context.Context, ev *FeedbackEvent) error {
	if ev.CreatedAt == 0 {
		ev.CreatedAt = time.Now().Unix()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO feedback_events (id, inbox_id, item_id, action, score, reason, view_duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.InboxID, ev.ItemID, ev.Action, ev.Score, ev.Reason, ev.ViewDurationMs, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: append feedback: %w", err)
	}
	return nil
}

// ListFeedback replays the ledger for one inbox, oldest-first. The id
// tiebreak keeps replay order deterministic for events sharing a second.
func (s *Store) ListFeedback(ctx context.Context, inboxID string) ([]*FeedbackEvent, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, inbox_id, item_id, action, score, reason, view_duration_ms, created_at
		FROM feedback_events WHERE inbox_id = ?
		ORDER BY created_at ASC, id ASC`, inboxID)
	if err != nil {
		return nil, fmt.Errorf("store: list feedback for %s: %w", inboxID, err)
	}
	defer rows.Close()

	var out []*FeedbackEvent
	for rows.Next() {
		var ev FeedbackEvent
		if err := rows.Scan(&ev.ID, &ev.InboxID, &ev.ItemID, &ev.Action, &ev.Score,
			&ev.Reason, &ev.ViewDurationMs, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan feedback: %w", err)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// CountFeedback returns ledger sizes grouped by action for one inbox.
func (s *Store) CountFeedback(ctx context.Context, inboxID string) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT action, count(*) FROM feedback_events WHERE inbox_id = ? GROUP BY action`, inboxID)
	if err != nil {
		return nil, fmt.Errorf("store: count feedback for %s: %w", inboxID, err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("store: scan feedback count: %w", err)
		}
		out[action] = n
	}
	return out, rows.Err()
}

// TotalFeedback returns the overall ledger size across all inboxes.
func (s *Store) TotalFeedback(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT count(*) FROM feedback_events`).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("store: total feedback: %w", err)
	}
	return n, nil
}
