package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"brokerlink/internal/domain/holdings"
)

// AssetRepository implements the holdings.AssetRepository interface for PostgreSQL
type AssetRepository struct {
	db *DB
}

var _ holdings.AssetRepository = (*AssetRepository)(nil)

// NewAssetRepository creates a new PostgreSQL asset repository
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// Insert appends one asset row. A missing category surfaces as holdings.ErrCategoryNotFound.
func (r *AssetRepository) Insert(ctx context.Context, asset *holdings.Asset) error {
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}

	metadata, err := marshalJSONB(asset.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assets (
			id, user_id, name, value, description, account,
			acquisition_date, acquisition_value, category_id, is_liability,
			sync_run_id, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb)
	`

	_, err = r.db.ExecContext(ctx, query,
		asset.ID, asset.UserID, asset.Name, asset.Value,
		nullString(asset.Description), nullString(asset.Account),
		nullTime(asset.AcquisitionDate), asset.AcquisitionValue,
		asset.CategoryID, asset.IsLiability,
		nullString(asset.SyncRunID), string(metadata),
	)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("failed to insert asset %s: %w", asset.Name, holdings.ErrCategoryNotFound)
		}
		return fmt.Errorf("failed to insert asset %s: %w", asset.Name, err)
	}
	return nil
}
