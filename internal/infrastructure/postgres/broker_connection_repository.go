package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"brokerlink/internal/domain/connection"
)

// SecretCipher encrypts connection secrets at rest.
type SecretCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// BrokerConnectionRepository implements the connection.Repository interface for PostgreSQL
type BrokerConnectionRepository struct {
	db     *DB
	cipher SecretCipher
}

var _ connection.Repository = (*BrokerConnectionRepository)(nil)

// NewBrokerConnectionRepository creates a new PostgreSQL broker connection repository
func NewBrokerConnectionRepository(db *DB, cipher SecretCipher) *BrokerConnectionRepository {
	return &BrokerConnectionRepository{db: db, cipher: cipher}
}

const connectionColumns = `id, user_id, broker_id, user_secret, is_active, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *BrokerConnectionRepository) scan(row rowScanner) (*connection.BrokerConnection, error) {
	var conn connection.BrokerConnection
	var secret string
	var metadata []byte

	err := row.Scan(
		&conn.ID, &conn.UserID, &conn.BrokerID, &secret,
		&conn.IsActive, &metadata, &conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conn.UserSecret, err = r.cipher.Decrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret for connection %s: %w", conn.ID, err)
	}

	md, err := unmarshalJSONB(metadata)
	if err != nil {
		return nil, err
	}
	conn.Metadata = md

	return &conn, nil
}

// GetByUser retrieves the connection for a user and broker
func (r *BrokerConnectionRepository) GetByUser(ctx context.Context, userID, brokerID string) (*connection.BrokerConnection, error) {
	query := `SELECT ` + connectionColumns + `
		FROM broker_connections
		WHERE user_id = $1 AND broker_id = $2`

	conn, err := r.scan(r.db.QueryRowContext(ctx, query, userID, brokerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, connection.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broker connection: %w", err)
	}
	return conn, nil
}

// GetByID retrieves a connection by id, scoped to its owner
func (r *BrokerConnectionRepository) GetByID(ctx context.Context, userID, id string) (*connection.BrokerConnection, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, connection.ErrConnectionNotFound
	}

	query := `SELECT ` + connectionColumns + `
		FROM broker_connections
		WHERE id = $1 AND user_id = $2`

	conn, err := r.scan(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, connection.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get broker connection: %w", err)
	}
	return conn, nil
}

// Upsert creates the connection or replaces its secret. Metadata is merged
// with the stored value and is_active is never touched on conflict.
func (r *BrokerConnectionRepository) Upsert(ctx context.Context, params connection.UpsertParams) (*connection.BrokerConnection, error) {
	secret, err := r.cipher.Encrypt(params.UserSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secret: %w", err)
	}

	metadata, err := marshalJSONB(params.Metadata)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO broker_connections (id, user_id, broker_id, user_secret, metadata)
		VALUES ($1, $2, $3, $4, $5::jsonb)
		ON CONFLICT (user_id, broker_id) DO UPDATE SET
			user_secret = EXCLUDED.user_secret,
			metadata = broker_connections.metadata || EXCLUDED.metadata,
			updated_at = NOW()
		RETURNING ` + connectionColumns

	conn, err := r.scan(r.db.QueryRowContext(ctx, query,
		uuid.NewString(), params.UserID, params.BrokerID, secret, string(metadata),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert broker connection: %w", err)
	}
	return conn, nil
}

// MergeMetadata merges patch into the stored metadata and optionally activates the row
func (r *BrokerConnectionRepository) MergeMetadata(ctx context.Context, userID, brokerID string, patch connection.Metadata, activate bool) error {
	metadata, err := marshalJSONB(patch)
	if err != nil {
		return err
	}

	query := `
		UPDATE broker_connections
		SET metadata = metadata || $3::jsonb,
			is_active = is_active OR $4,
			updated_at = NOW()
		WHERE user_id = $1 AND broker_id = $2`

	result, err := r.db.ExecContext(ctx, query, userID, brokerID, string(metadata), activate)
	if err != nil {
		return fmt.Errorf("failed to merge broker connection metadata: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return connection.ErrConnectionNotFound
	}
	return nil
}

// Delete removes a connection owned by userID
func (r *BrokerConnectionRepository) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return connection.ErrConnectionNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM broker_connections WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete broker connection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return connection.ErrConnectionNotFound
	}
	return nil
}

// ListActive retrieves every active connection for a broker
func (r *BrokerConnectionRepository) ListActive(ctx context.Context, brokerID string) ([]*connection.BrokerConnection, error) {
	query := `SELECT ` + connectionColumns + `
		FROM broker_connections
		WHERE broker_id = $1 AND is_active
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, brokerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list broker connections: %w", err)
	}
	defer rows.Close()

	var conns []*connection.BrokerConnection
	for rows.Next() {
		conn, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan broker connection: %w", err)
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate broker connections: %w", err)
	}

	return conns, nil
}
