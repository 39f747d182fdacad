package connection

import (
	"errors"
	"time"
)

// Provider is the broker_id stored for connections made through the aggregator.
const Provider = "snaptrade"

// Domain errors
var (
	ErrNotRegistered      = errors.New("user is not registered with the aggregator")
	ErrConnectionNotFound = errors.New("broker connection not found")
	ErrDatastore          = errors.New("datastore error")
)

// Metadata keys written by this service.
const (
	KeyRegisteredAt     = "registeredAt"
	KeyReregisteredAt   = "reregisteredAt"
	KeyRecoveredAt      = "recoveredAt"
	KeyRecoveryMethod   = "recoveryMethod"
	KeyAttemptStartedAt = "connectionAttemptStartedAt"
	KeyRequestedBroker  = "requestedBroker"
	KeyConnectedAt      = "connectedAt"
	KeyBrokerage        = "brokerage"
	KeyAuthorizationID  = "authorizationId"
	KeyLastSyncAt       = "lastSyncAt"
	KeyLastSyncRunID    = "lastSyncRunId"
)

// Recovery methods recorded under KeyRecoveryMethod.
const (
	RecoveryUserDetails = "user_details"
	RecoveryRecreate    = "recreate"
)

// Metadata is the free-form JSON blob on a connection row. Writes are always
// merged into the stored value, never replace it.
type Metadata map[string]any

// String returns the value at key when it is a non-empty string.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Timestamp formats t the way metadata timestamps are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// BrokerConnection is one row per (user, provider).
type BrokerConnection struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	BrokerID   string    `json:"brokerId"`
	UserSecret string    `json:"-"`
	IsActive   bool      `json:"isActive"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AuthorizationID returns the vendor authorization recorded by the last callback.
func (c *BrokerConnection) AuthorizationID() string {
	return c.Metadata.String(KeyAuthorizationID)
}

// UpsertParams contains parameters for writing a connection secret
type UpsertParams struct {
	UserID     string
	BrokerID   string
	UserSecret string
	Metadata   Metadata
}

// Validate validates the upsert parameters
func (p UpsertParams) Validate() error {
	if p.UserID == "" {
		return errors.New("user ID is required")
	}
	if p.BrokerID == "" {
		return errors.New("broker ID is required")
	}
	if p.UserSecret == "" {
		return errors.New("user secret is required")
	}
	return nil
}
