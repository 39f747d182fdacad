package brokerage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"brokerlink/internal/domain/connection"
	"brokerlink/internal/infrastructure/aggregator"
	"brokerlink/internal/infrastructure/lock"
	"brokerlink/internal/shared/auth"
)

// maxLinkAttempts caps how many times the secret is re-derived per request.
const maxLinkAttempts = 2

// Orchestrator ensures a user has a remote identity and issues connection portals.
type Orchestrator struct {
	client  aggregator.ClientInterface
	secrets *connection.SecretStore
	locker  lock.Locker
	now     func() time.Time
}

// NewOrchestrator creates a new connection orchestrator
func NewOrchestrator(client aggregator.ClientInterface, secrets *connection.SecretStore, locker lock.Locker) *Orchestrator {
	return &Orchestrator{
		client:  client,
		secrets: secrets,
		locker:  locker,
		now:     time.Now,
	}
}

// GetConnectionLink returns a portal URL for userID. Calls for the same user
// are serialized.
func (o *Orchestrator) GetConnectionLink(ctx context.Context, userID, redirectURI, brokerID string) (string, error) {
	if _, err := auth.Verify(ctx, userID); err != nil {
		return "", err
	}

	unlock, err := o.locker.Lock(ctx, "connect:"+userID)
	if err != nil {
		return "", fmt.Errorf("failed to acquire connection lock: %w", err)
	}
	defer unlock()

	logger := zerolog.Ctx(ctx).With().Str("user_id", userID).Logger()

	for attempt := 1; attempt <= maxLinkAttempts; attempt++ {
		secret, err := o.secrets.Get(ctx, userID)
		if err == nil {
			return o.issuePortal(ctx, userID, secret, redirectURI, brokerID)
		}
		if !errors.Is(err, connection.ErrNotRegistered) {
			return "", err
		}
		if attempt == maxLinkAttempts {
			break
		}

		logger.Info().Int("attempt", attempt).Msg("No stored aggregator secret, registering user")
		if err := o.register(ctx, userID); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w: no usable secret after %d attempts", ErrLinkGenerationFailed, maxLinkAttempts)
}

func (o *Orchestrator) issuePortal(ctx context.Context, userID, secret, redirectURI, brokerID string) (string, error) {
	portal, err := o.client.Login(ctx, userID, secret, aggregator.LoginOptions{
		BrokerID:    brokerID,
		RedirectURI: redirectURI,
	})
	if err != nil {
		return "", linkFailed(err)
	}

	patch := connection.Metadata{connection.KeyAttemptStartedAt: connection.Timestamp(o.now())}
	if brokerID != "" {
		patch[connection.KeyRequestedBroker] = brokerID
	}
	if err := o.secrets.MergeMetadata(ctx, userID, patch, false); err != nil {
		return "", err
	}

	return portal.RedirectURI, nil
}

// register creates the remote user, falling back to recovery when the
// aggregator already knows it.
func (o *Orchestrator) register(ctx context.Context, userID string) error {
	identity, err := o.client.RegisterUser(ctx, userID)
	if errors.Is(err, aggregator.ErrAlreadyRegistered) {
		return o.recoverSecret(ctx, userID, err)
	}
	if err != nil {
		return linkFailed(err)
	}
	if identity.UserSecret == "" {
		return fmt.Errorf("%w: aggregator registered the user without a secret", ErrLinkGenerationFailed)
	}

	return o.secrets.Put(ctx, userID, identity.UserSecret, connection.Metadata{
		connection.KeyRegisteredAt: connection.Timestamp(o.now()),
	})
}

// recoverSecret re-derives a secret for a user the aggregator already has.
// The user details lookup is tried first, then delete and re-register.
func (o *Orchestrator) recoverSecret(ctx context.Context, userID string, cause error) error {
	logger := zerolog.Ctx(ctx).With().Str("user_id", userID).Logger()
	logger.Warn().Str("detail", aggregator.Detail(cause)).Msg("Aggregator user already exists without a local secret, recovering")

	details, detailsErr := o.client.GetUserDetails(ctx, userID)
	if detailsErr == nil && details.UserSecret != "" {
		logger.Info().Str("method", connection.RecoveryUserDetails).Msg("Recovered aggregator secret")
		return o.secrets.Put(ctx, userID, details.UserSecret, connection.Metadata{
			connection.KeyRecoveredAt:    connection.Timestamp(o.now()),
			connection.KeyRecoveryMethod: connection.RecoveryUserDetails,
		})
	}
	if detailsErr != nil {
		logger.Warn().Err(detailsErr).Msg("User details lookup failed, recreating aggregator user")
	}

	deleteErr := o.client.DeleteUser(ctx, userID)
	if deleteErr != nil {
		logger.Warn().Err(deleteErr).Msg("Failed to delete aggregator user, re-registering anyway")
	}

	identity, registerErr := o.client.RegisterUser(ctx, userID)
	if registerErr == nil && identity.UserSecret != "" {
		logger.Info().Str("method", connection.RecoveryRecreate).Msg("Recovered aggregator secret")
		return o.secrets.Put(ctx, userID, identity.UserSecret, connection.Metadata{
			connection.KeyReregisteredAt: connection.Timestamp(o.now()),
			connection.KeyRecoveryMethod: connection.RecoveryRecreate,
		})
	}

	last := mostSpecific(cause, detailsErr, deleteErr, registerErr)
	return fmt.Errorf("%w: %s", ErrRecoveryExhausted, aggregator.Detail(last))
}

func linkFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrLinkGenerationFailed, err)
}
