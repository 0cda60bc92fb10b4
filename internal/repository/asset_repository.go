package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// AssetRepository answers which stored objects are still attached to a row.
type AssetRepository struct {
	db *sqlx.DB
}

// NewAssetRepository constructs the repository.
func NewAssetRepository(db *sqlx.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// ReferencedPaths returns the subset of paths referenced by any event flyer,
// announcement image, avatar or shop logo.
func (r *AssetRepository) ReferencedPaths(ctx context.Context, paths []string) (map[string]bool, error) {
	out := make(map[string]bool, len(paths))
	if len(paths) == 0 {
		return out, nil
	}
	const query = `SELECT flyer_path AS path FROM events WHERE flyer_path = ANY($1)
UNION
SELECT image_path FROM announcements WHERE image_path = ANY($1)
UNION
SELECT avatar_path FROM users WHERE avatar_path = ANY($1)
UNION
SELECT logo_path FROM shops WHERE logo_path = ANY($1)`
	var referenced []string
	if err := r.db.SelectContext(ctx, &referenced, query, pq.Array(paths)); err != nil {
		return nil, fmt.Errorf("referenced asset paths: %w", err)
	}
	for _, p := range referenced {
		out[p] = true
	}
	return out, nil
}
