package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"brokerlink/internal/domain/holdings"
)

// CategoryRepository implements the holdings.CategoryRepository interface for PostgreSQL
type CategoryRepository struct {
	db *DB
}

var _ holdings.CategoryRepository = (*CategoryRepository)(nil)

// NewCategoryRepository creates a new PostgreSQL asset category repository
func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetIDByName looks up an asset category id
func (r *CategoryRepository) GetIDByName(ctx context.Context, name string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM asset_categories WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", holdings.ErrCategoryNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get asset category: %w", err)
	}
	return id, nil
}
