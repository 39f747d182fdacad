package brokerage

import (
	"context"

	"github.com/rs/zerolog"

	"brokerlink/internal/domain/connection"
	"brokerlink/internal/infrastructure/aggregator"
	"brokerlink/internal/shared/auth"
)

// DisconnectService removes a broker connection remotely and locally.
type DisconnectService struct {
	client  aggregator.ClientInterface
	secrets *connection.SecretStore
}

// NewDisconnectService creates a new disconnect service
func NewDisconnectService(client aggregator.ClientInterface, secrets *connection.SecretStore) *DisconnectService {
	return &DisconnectService{client: client, secrets: secrets}
}

// Disconnect deletes the connection. The remote delete is best-effort; the
// result reflects the local delete only.
func (s *DisconnectService) Disconnect(ctx context.Context, userID, connectionID string) error {
	if _, err := auth.Verify(ctx, userID); err != nil {
		return err
	}

	conn, err := s.secrets.Connection(ctx, userID, connectionID)
	if err != nil {
		return err
	}

	s.revokeRemote(ctx, conn)

	return s.secrets.Remove(ctx, userID, connectionID)
}

func (s *DisconnectService) revokeRemote(ctx context.Context, conn *connection.BrokerConnection) {
	logger := zerolog.Ctx(ctx).With().Str("user_id", conn.UserID).Str("connection_id", conn.ID).Logger()

	var err error
	if authID := conn.AuthorizationID(); authID != "" {
		err = s.client.DeleteConnection(ctx, conn.UserID, conn.UserSecret, authID)
	} else {
		err = s.client.DeleteUser(ctx, conn.UserID)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Remote disconnect failed, deleting local connection anyway")
		return
	}
	logger.Info().Msg("Remote connection revoked")
}
