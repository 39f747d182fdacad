package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"brokerlink/internal/domain/brokerage"
	"brokerlink/internal/domain/connection"
	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/infrastructure/aggregator"
	"brokerlink/internal/infrastructure/crypto"
	"brokerlink/internal/infrastructure/lock"
	"brokerlink/internal/infrastructure/postgres"
	httphandlers "brokerlink/internal/interfaces/http"
	"brokerlink/internal/shared/auth"
	"brokerlink/internal/shared/config"
	"brokerlink/internal/shared/messages"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB    *postgres.DB
	Redis *redis.Client

	// Handlers
	HealthHandler    *httphandlers.HealthHandler
	BrokerageHandler *httphandlers.BrokerageHandler
	CallbackHandler  *httphandlers.CallbackHandler
	HoldingsHandler  *httphandlers.HoldingsHandler

	// Auth
	JWT *auth.JWT
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.Pool{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("Connected to database")

	deps := &Dependencies{DB: db}

	if cfg.Database.MigrateOnStartup {
		if err := postgres.Migrate(db.DB); err != nil {
			deps.Close()
			return nil, err
		}
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		deps.Close()
		return nil, err
	}

	locker, err := deps.newLocker(ctx, cfg.Redis)
	if err != nil {
		deps.Close()
		return nil, err
	}

	msgs, err := messages.Load(cfg.Brokerage.MessagesFile)
	if err != nil {
		deps.Close()
		return nil, err
	}

	client := newAggregatorClient(cfg.Aggregator)

	// Repositories
	connectionRepo := postgres.NewBrokerConnectionRepository(db, encryptor)
	assetRepo := postgres.NewAssetRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)

	// Domain services
	secrets := connection.NewSecretStore(connectionRepo)
	syncService := holdings.NewSyncService(client, secrets, assetRepo, categoryRepo, holdings.Options{
		Concurrency: cfg.Brokerage.SyncConcurrency,
		CategoryTTL: cfg.Brokerage.CategoryCacheTTL,
	})
	orchestrator := brokerage.NewOrchestrator(client, secrets, locker)
	callbackService := brokerage.NewCallbackService(secrets, syncService)
	disconnectService := brokerage.NewDisconnectService(client, secrets)

	deps.JWT = auth.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	deps.HealthHandler = httphandlers.NewHealthHandler(db)
	deps.BrokerageHandler = httphandlers.NewBrokerageHandler(orchestrator, disconnectService)
	deps.CallbackHandler = httphandlers.NewCallbackHandler(callbackService, msgs, cfg.Brokerage.DashboardPath)
	deps.HoldingsHandler = httphandlers.NewHoldingsHandler(syncService)

	return deps, nil
}

// newLocker returns a Redis lock when REDIS_URL is set and an in-process lock
// otherwise.
func (d *Dependencies) newLocker(ctx context.Context, cfg config.RedisConfig) (lock.Locker, error) {
	if cfg.URL == "" {
		log.Info().Msg("REDIS_URL not set, using in-process connection lock")
		return lock.NewMemory(), nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	d.Redis = client
	log.Info().Str("addr", opts.Addr).Msg("Connected to redis, using distributed connection lock")
	return lock.NewRedis(client, "brokerlink"), nil
}

func newAggregatorClient(cfg config.AggregatorConfig) aggregator.ClientInterface {
	if !cfg.Configured() {
		log.Warn().Msg("Aggregator credentials missing, brokerage calls will fail until configured")
	}
	return aggregator.New(aggregator.Config{
		BaseURL:     cfg.BaseURL,
		ClientID:    cfg.ClientID,
		ConsumerKey: cfg.ConsumerKey,
		Timeout:     cfg.Timeout,
	})
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		d.Redis.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
