package brokerage

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"brokerlink/internal/domain/connection"
	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/shared/auth"
)

// AssetSyncer runs the holdings write path.
type AssetSyncer interface {
	SyncAssets(ctx context.Context, userID string) (*holdings.SyncResult, error)
}

// CallbackParams is what the aggregator sends back after the portal.
type CallbackParams struct {
	UserID          string
	Success         bool
	Brokerage       string
	AuthorizationID string
}

// CallbackService activates a connection and imports its holdings.
type CallbackService struct {
	secrets *connection.SecretStore
	syncer  AssetSyncer
	now     func() time.Time
}

// NewCallbackService creates a new callback service
func NewCallbackService(secrets *connection.SecretStore, syncer AssetSyncer) *CallbackService {
	return &CallbackService{secrets: secrets, syncer: syncer, now: time.Now}
}

// Complete handles a portal return. Every failure is a *CallbackError; a
// declared failure from the portal writes nothing.
func (s *CallbackService) Complete(ctx context.Context, p CallbackParams) (*holdings.SyncResult, error) {
	if !p.Success || p.UserID == "" {
		return nil, &CallbackError{Code: CodeConnectionFailed}
	}

	if _, err := auth.Verify(ctx, p.UserID); err != nil {
		code := CodeUnauthorized
		if errors.Is(err, auth.ErrIdentityMismatch) {
			code = CodeIdentityMismatch
		}
		return nil, &CallbackError{Code: code, Err: err}
	}

	logger := zerolog.Ctx(ctx).With().Str("user_id", p.UserID).Logger()

	patch := connection.Metadata{connection.KeyConnectedAt: connection.Timestamp(s.now())}
	if p.Brokerage != "" {
		patch[connection.KeyBrokerage] = p.Brokerage
	}
	if p.AuthorizationID != "" {
		patch[connection.KeyAuthorizationID] = p.AuthorizationID
	}
	if err := s.secrets.MergeMetadata(ctx, p.UserID, patch, true); err != nil {
		logger.Error().Err(err).Msg("Failed to activate broker connection")
		return nil, &CallbackError{Code: CodeActivationFailed, Err: err}
	}

	result, err := s.syncer.SyncAssets(ctx, p.UserID)
	if err != nil {
		logger.Error().Err(err).Msg("Holdings sync after callback failed")
		return nil, &CallbackError{Code: CodeSyncFailed, Err: err}
	}

	// The import already happened; a failed bookkeeping write is only logged.
	if err := s.secrets.MergeMetadata(ctx, p.UserID, connection.Metadata{
		connection.KeyLastSyncAt:    connection.Timestamp(s.now()),
		connection.KeyLastSyncRunID: result.RunID,
	}, false); err != nil {
		logger.Warn().Err(err).Msg("Failed to record last sync")
	}

	logger.Info().
		Str("brokerage", p.Brokerage).
		Int("inserted", result.Inserted).
		Int("failed", result.Failed).
		Msg("Broker connection activated")
	return result, nil
}
