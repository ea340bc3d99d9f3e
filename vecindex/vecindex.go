// Package vecindex stores item embeddings in SQLite and serves
// brute-force cosine similarity searches over them. Vectors are BLOBs of
// little-endian float32 with the Euclidean norm precomputed at write
// time, so a search is one table scan of dot products.
package vecindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrDimensionMismatch is returned when a vector's dimension disagrees
// with what the index already holds. Mixing embedding models corrupts
// every score, so the write is refused outright.
var ErrDimensionMismatch = errors.New("vecindex: dimension mismatch")

// Schema creates the vector table. Pass to dbopen.WithSchema alongside
// the store schema; both live in the same database file.
const Schema = `
CREATE TABLE IF NOT EXISTS item_vectors (
	item_id     TEXT PRIMARY KEY,
	vector      BLOB NOT NULL,
	dimension   INTEGER NOT NULL,
	norm        REAL NOT NULL,
	updated_at  INTEGER NOT NULL
);
`

// Index is a cosine-similarity index over one item_vectors table.
type Index struct {
	DB *sql.DB
}

// New creates an Index on an already-opened database.
func New(db *sql.DB) *Index {
	return &Index{DB: db}
}

// Hit is one search result, scored on the 0..100 scale.
type Hit struct {
	ItemID string `json:"item_id"`
	Score  int    `json:"score"`
}

// Upsert stores or replaces an item's vector. Returns
// ErrDimensionMismatch if the index already holds vectors of a different
// dimension.
func (x *Index) Upsert(ctx context.Context, itemID string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("vecindex: empty vector for %s", itemID)
	}
	dim, err := x.Dimension(ctx)
	if err != nil {
		return err
	}
	if dim != 0 && dim != len(vec) {
		return fmt.Errorf("%w: index holds %d-dim vectors, got %d", ErrDimensionMismatch, dim, len(vec))
	}

	_, err = x.DB.ExecContext(ctx, `
		INSERT INTO item_vectors (item_id, vector, dimension, norm, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			norm = excluded.norm,
			updated_at = excluded.updated_at`,
		itemID, Serialize(vec), len(vec), Norm(vec), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("vecindex: upsert %s: %w", itemID, err)
	}
	return nil
}

// Delete removes an item's vector. Deleting a missing vector is a no-op.
func (x *Index) Delete(ctx context.Context, itemID string) error {
	_, err := x.DB.ExecContext(ctx, `DELETE FROM item_vectors WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("vecindex: delete %s: %w", itemID, err)
	}
	return nil
}

// Vector returns an item's stored vector, or (nil, nil) when absent.
func (x *Index) Vector(ctx context.Context, itemID string) ([]float32, error) {
	var blob []byte
	err := x.DB.QueryRowContext(ctx,
		`SELECT vector FROM item_vectors WHERE item_id = ?`, itemID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vecindex: vector %s: %w", itemID, err)
	}
	return Deserialize(blob)
}

// Has reports whether the item has a stored vector.
func (x *Index) Has(ctx context.Context, itemID string) (bool, error) {
	var one int
	err := x.DB.QueryRowContext(ctx,
		`SELECT 1 FROM item_vectors WHERE item_id = ?`, itemID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vecindex: has %s: %w", itemID, err)
	}
	return true, nil
}

// Count returns the number of stored vectors.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.DB.QueryRowContext(ctx, `SELECT count(*) FROM item_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vecindex: count: %w", err)
	}
	return n, nil
}

// Dimension returns the stored vector dimension, or 0 when the index is
// empty.
func (x *Index) Dimension(ctx context.Context) (int, error) {
	var dim int
	err := x.DB.QueryRowContext(ctx,
		`SELECT dimension FROM item_vectors LIMIT 1`).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("vecindex: dimension: %w", err)
	}
	return dim, nil
}

// Search scans all vectors and returns items scoring at least minScore
// against the query, best-first. Ties break on item id so results are
// deterministic. limit <= 0 means unlimited.
func (x *Index) Search(ctx context.Context, query []float32, minScore, limit int) ([]Hit, error) {
	if len(query) == 0 {
		return nil, errors.New("vecindex: empty query vector")
	}
	qNorm := Norm(query)

	rows, err := x.DB.QueryContext(ctx,
		`SELECT item_id, vector, dimension, norm FROM item_vectors`)
	if err != nil {
		return nil, fmt.Errorf("vecindex: search: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var id string
		var blob []byte
		var dim int
		var norm float64
		if err := rows.Scan(&id, &blob, &dim, &norm); err != nil {
			return nil, fmt.Errorf("vecindex: scan: %w", err)
		}
		if dim != len(query) {
			return nil, fmt.Errorf("%w: query is %d-dim, index holds %d", ErrDimensionMismatch, len(query), dim)
		}
		vec, err := Deserialize(blob)
		if err != nil {
			return nil, err
		}
		score := Score(CosineWithNorms(query, vec, qNorm, norm))
		if score >= minScore {
			hits = append(hits, Hit{ItemID: id, Score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vecindex: search: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ItemID < hits[j].ItemID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
