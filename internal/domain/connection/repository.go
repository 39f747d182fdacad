package connection

import "context"

// Repository defines the interface for broker connection data access
type Repository interface {
	// GetByUser returns the connection for (userID, brokerID) or ErrConnectionNotFound.
	GetByUser(ctx context.Context, userID, brokerID string) (*BrokerConnection, error)

	// GetByID returns the connection with id owned by userID or ErrConnectionNotFound.
	GetByID(ctx context.Context, userID, id string) (*BrokerConnection, error)

	// Upsert writes the secret keyed by (user, broker). Metadata is merged and
	// is_active is left untouched on conflict.
	Upsert(ctx context.Context, params UpsertParams) (*BrokerConnection, error)

	// MergeMetadata merges patch into the stored metadata in a single statement.
	// When activate is true the row is also marked active.
	MergeMetadata(ctx context.Context, userID, brokerID string, patch Metadata, activate bool) error

	// Delete removes the connection with id owned by userID.
	Delete(ctx context.Context, userID, id string) error

	// ListActive returns every active connection for brokerID.
	ListActive(ctx context.Context, brokerID string) ([]*BrokerConnection, error)
}
