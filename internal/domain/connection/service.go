package connection

import (
	"context"
	"errors"
	"fmt"
)

// SecretStore persists the per-user aggregator secret inside the
// broker_connections table. All persistence failures are wrapped with
// ErrDatastore.
type SecretStore struct {
	repo     Repository
	provider string
}

// NewSecretStore creates a secret store for the aggregator provider
func NewSecretStore(repo Repository) *SecretStore {
	return &SecretStore{repo: repo, provider: Provider}
}

// Get returns the stored secret or ErrNotRegistered.
func (s *SecretStore) Get(ctx context.Context, userID string) (string, error) {
	conn, err := s.repo.GetByUser(ctx, userID, s.provider)
	if errors.Is(err, ErrConnectionNotFound) {
		return "", ErrNotRegistered
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to load secret: %w", ErrDatastore, err)
	}
	if conn.UserSecret == "" {
		return "", ErrNotRegistered
	}
	return conn.UserSecret, nil
}

// Put stores secret for userID, merging md into existing metadata.
func (s *SecretStore) Put(ctx context.Context, userID, secret string, md Metadata) error {
	params := UpsertParams{
		UserID:     userID,
		BrokerID:   s.provider,
		UserSecret: secret,
		Metadata:   md,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	if _, err := s.repo.Upsert(ctx, params); err != nil {
		return fmt.Errorf("%w: failed to store secret: %w", ErrDatastore, err)
	}
	return nil
}

// MergeMetadata is the only metadata write path. It never drops fields the
// caller did not name.
func (s *SecretStore) MergeMetadata(ctx context.Context, userID string, patch Metadata, activate bool) error {
	err := s.repo.MergeMetadata(ctx, userID, s.provider, patch, activate)
	if errors.Is(err, ErrConnectionNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: failed to merge metadata: %w", ErrDatastore, err)
	}
	return nil
}

// ForUser returns the user's connection row for the provider.
func (s *SecretStore) ForUser(ctx context.Context, userID string) (*BrokerConnection, error) {
	conn, err := s.repo.GetByUser(ctx, userID, s.provider)
	if errors.Is(err, ErrConnectionNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load connection: %w", ErrDatastore, err)
	}
	return conn, nil
}

// Connection returns the caller's connection row with id.
func (s *SecretStore) Connection(ctx context.Context, userID, id string) (*BrokerConnection, error) {
	conn, err := s.repo.GetByID(ctx, userID, id)
	if errors.Is(err, ErrConnectionNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load connection: %w", ErrDatastore, err)
	}
	return conn, nil
}

// Remove deletes the caller's connection row with id.
func (s *SecretStore) Remove(ctx context.Context, userID, id string) error {
	err := s.repo.Delete(ctx, userID, id)
	if errors.Is(err, ErrConnectionNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete connection: %w", ErrDatastore, err)
	}
	return nil
}

// ListActive returns every active connection for the provider, with secrets.
func (s *SecretStore) ListActive(ctx context.Context) ([]*BrokerConnection, error) {
	conns, err := s.repo.ListActive(ctx, s.provider)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list connections: %w", ErrDatastore, err)
	}
	return conns, nil
}
