package main

import (
	"fmt"
	"strings"

	"brokerlink/internal/domain/connection"
	"brokerlink/internal/domain/holdings"
	"brokerlink/internal/infrastructure/aggregator"
	"brokerlink/internal/infrastructure/crypto"
	"brokerlink/internal/infrastructure/postgres"
	"brokerlink/internal/shared/config"
	"brokerlink/internal/shared/logger"
)

// env is what every database-backed command needs.
type env struct {
	cfg     *config.Config
	db      *postgres.DB
	secrets *connection.SecretStore
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, true); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDB keeps the admin pool small; commands run one at a time.
func openDB(cfg *config.Config) (*postgres.DB, error) {
	return postgres.New(cfg.Database.ConnectionString(), postgres.Pool{
		MaxOpenConns:    min(cfg.Database.MaxOpenConns, 5),
		MaxIdleConns:    min(cfg.Database.MaxIdleConns, 2),
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &env{
		cfg:     cfg,
		db:      db,
		secrets: connection.NewSecretStore(postgres.NewBrokerConnectionRepository(db, encryptor)),
	}, nil
}

func (e *env) syncService() *holdings.SyncService {
	client := aggregator.New(aggregator.Config{
		BaseURL:     e.cfg.Aggregator.BaseURL,
		ClientID:    e.cfg.Aggregator.ClientID,
		ConsumerKey: e.cfg.Aggregator.ConsumerKey,
		Timeout:     e.cfg.Aggregator.Timeout,
	})
	return holdings.NewSyncService(client, e.secrets,
		postgres.NewAssetRepository(e.db),
		postgres.NewCategoryRepository(e.db),
		holdings.Options{
			Concurrency: e.cfg.Brokerage.SyncConcurrency,
			CategoryTTL: e.cfg.Brokerage.CategoryCacheTTL,
		},
	)
}

func (e *env) Close() {
	e.db.Close()
}

// splitIDs parses a comma-separated id list, dropping blanks and duplicates.
func splitIDs(s string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		ids = append(ids, p)
	}
	return ids
}
