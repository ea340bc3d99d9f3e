// CLAUDE:SUMMARY Item CRUD: upsert, lookup, embedding backlog listing.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertItem inserts or replaces an item. The embedded_at marker survives
// the upsert so re-ingesting an item does not force a re-embed unless its
// text changed (the caller clears it in that case).
func (s *Store) UpsertItem(ctx context.Context, it *Item) error {
	if it.CreatedAt == 0 {
		it.CreatedAt = time.Now().Unix()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO items (id, title, body, authority, classification, value, published_at, embedded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			authority = excluded.authority,
			classification = excluded.classification,
			value = excluded.value,
			published_at = excluded.published_at,
			embedded_at = COALESCE(excluded.embedded_at, items.embedded_at)`,
		it.ID, it.Title, it.Body, it.Authority, it.Classification,
		it.Value, it.PublishedAt, it.EmbeddedAt, it.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert item %s: %w", it.ID, err)
	}
	return nil
}

// GetItem returns the item or (nil, nil) when it does not exist.
func (s *Store) GetItem(ctx context.Context, id string) (*Item, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, title, body, authority, classification, value, published_at, embedded_at, created_at
		FROM items WHERE id = ?`, id)
	return scanItem(row)
}

// ListItems returns items newest-first.
func (s *Store) ListItems(ctx context.Context, limit, offset int) ([]*Item, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, title, body, authority, classification, value, published_at, embedded_at, created_at
		FROM items ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list items: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// ListPendingEmbedding returns items that do not have a vector yet,
// oldest-first so the backlog drains in ingestion order.
func (s *Store) ListPendingEmbedding(ctx context.Context, limit int) ([]*Item, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, title, body, authority, classification, value, published_at, embedded_at, created_at
		FROM items WHERE embedded_at IS NULL ORDER BY created_at ASC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list pending embedding: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// MarkEmbedded records that the item's vector has been stored.
func (s *Store) MarkEmbedded(ctx context.Context, id string, at int64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE items SET embedded_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("store: mark embedded %s: %w", id, err)
	}
	return nil
}

// ClearEmbedded drops the embedding marker so the item re-enters the
// backlog. Used when an item's text changes and its vector goes stale.
func (s *Store) ClearEmbedded(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE items SET embedded_at = NULL WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: clear embedded %s: %w", id, err)
	}
	return nil
}

// CountItems reports the catalog size and the embedding backlog.
func (s *Store) CountItems(ctx context.Context) (total, pending int, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT count(*), count(*) - count(embedded_at) FROM items`,
	).Scan(&total, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("store: count items: %w", err)
	}
	return total, pending, nil
}

// DeleteItem removes an item and its state rows. The feedback ledger
// keeps its entries: past feedback stays valid evidence even after the
// item itself is gone.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete item %s: %w", id, err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM item_saved WHERE item_id = ?`,
		`DELETE FROM item_hidden WHERE item_id = ?`,
		`DELETE FROM item_personal WHERE item_id = ?`,
		`DELETE FROM items WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("store: delete item %s: %w", id, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Title, &it.Body, &it.Authority, &it.Classification,
		&it.Value, &it.PublishedAt, &it.EmbeddedAt, &it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan item: %w", err)
	}
	return &it, nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var out []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
