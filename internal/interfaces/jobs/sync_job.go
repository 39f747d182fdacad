package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"brokerlink/internal/domain/holdings"
)

// AssetSyncer runs the holdings write path for one user.
type AssetSyncer interface {
	SyncAssets(ctx context.Context, userID string) (*holdings.SyncResult, error)
}

// HoldingsSyncJob imports the current holdings of one user.
type HoldingsSyncJob struct {
	userID   string
	syncer   AssetSyncer
	onResult func(*holdings.SyncResult)
}

// NewHoldingsSyncJob creates a sync job. onResult, when set, receives every
// successful result.
func NewHoldingsSyncJob(userID string, syncer AssetSyncer, onResult func(*holdings.SyncResult)) *HoldingsSyncJob {
	return &HoldingsSyncJob{userID: userID, syncer: syncer, onResult: onResult}
}

// Execute runs the sync. Rows that failed to insert make the job fail so the
// operator sees them, although the other rows are kept.
func (j *HoldingsSyncJob) Execute(ctx context.Context) error {
	result, err := j.syncer.SyncAssets(ctx, j.userID)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if j.onResult != nil {
		j.onResult(result)
	}

	if result.Failed > 0 {
		zerolog.Ctx(ctx).Warn().
			Int("inserted", result.Inserted).
			Int("failed", result.Failed).
			Strs("errors", result.Errors).
			Msg("Holdings sync completed with errors")
		return fmt.Errorf("sync completed with %d failed rows", result.Failed)
	}
	return nil
}

// UserID returns the user ID associated with this job
func (j *HoldingsSyncJob) UserID() string {
	return j.userID
}

// Description returns a human-readable description of the job
func (j *HoldingsSyncJob) Description() string {
	return "Holdings sync for user " + j.userID
}
