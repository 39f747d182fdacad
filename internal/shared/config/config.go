package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	Aggregator AggregatorConfig
	Brokerage  BrokerageConfig
	TLS        TLSConfig
	Telemetry  TelemetryConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	AllowedHosts   []string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	DBName           string
	SSLMode          string
	MigrateOnStartup bool
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// RedisConfig is optional. An empty URL keeps per-user locking in process.
type RedisConfig struct {
	URL string
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type EncryptionConfig struct {
	Key string
}

// AggregatorConfig holds the vendor credentials. Missing credentials leave the
// adapter unconfigured instead of failing startup.
type AggregatorConfig struct {
	BaseURL     string
	ClientID    string
	ConsumerKey string
	Timeout     time.Duration
}

// Configured reports whether both vendor credentials are present.
func (c AggregatorConfig) Configured() bool {
	return c.ClientID != "" && c.ConsumerKey != ""
}

type BrokerageConfig struct {
	DashboardPath        string
	SyncConcurrency      int
	CategoryCacheTTL     time.Duration
	ConnectRatePerMinute int
	MessagesFile         string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
	SampleRatio  float64
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	requestTimeout, err := getDurationEnv("REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	aggregatorTimeout, err := getDurationEnv("AGGREGATOR_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	categoryTTL, err := getDurationEnv("CATEGORY_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	maxOpenConns, err := getIntEnv("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, err
	}
	maxIdleConns, err := getIntEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	connMaxLifetime, err := getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	sampleRatio, err := getFloatEnv("OTEL_SAMPLE_RATIO", 1)
	if err != nil {
		return nil, err
	}
	syncConcurrency, err := getIntEnv("SYNC_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	connectRate, err := getIntEnv("CONNECT_RATE_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}

	// Parse allowed hosts (comma-separated list)
	var allowedHosts []string
	for _, host := range strings.Split(getEnv("ALLOWED_HOSTS", ""), ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			allowedHosts = append(allowedHosts, host)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Host:           getEnv("HOST", "0.0.0.0"),
			AllowedHosts:   allowedHosts,
			RequestTimeout: requestTimeout,
		},
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             dbPort,
			User:             getEnv("DB_USER", "brokerlink"),
			Password:         getEnv("DB_PASSWORD", ""),
			DBName:           getEnv("DB_NAME", "brokerlink"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MigrateOnStartup: getBoolEnv("MIGRATE_ON_STARTUP", false),
			MaxOpenConns:     maxOpenConns,
			MaxIdleConns:     maxIdleConns,
			ConnMaxLifetime:  connMaxLifetime,
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			Issuer:   getEnv("JWT_ISSUER", ""),
			Audience: getEnv("JWT_AUDIENCE", ""),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Aggregator: AggregatorConfig{
			BaseURL:     getEnv("AGGREGATOR_BASE_URL", "https://api.snaptrade.com/api/v1"),
			ClientID:    getEnv("AGGREGATOR_CLIENT_ID", ""),
			ConsumerKey: getEnv("AGGREGATOR_CONSUMER_KEY", ""),
			Timeout:     aggregatorTimeout,
		},
		Brokerage: BrokerageConfig{
			DashboardPath:        getEnv("DASHBOARD_PATH", "/dashboard/assets"),
			SyncConcurrency:      syncConcurrency,
			CategoryCacheTTL:     categoryTTL,
			ConnectRatePerMinute: connectRate,
			MessagesFile:         getEnv("CALLBACK_MESSAGES_FILE", ""),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "brokerlink-api"),
			Environment:  getEnv("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
			SampleRatio:  sampleRatio,
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getBoolEnv("LOG_PRETTY", false),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if cfg.Brokerage.SyncConcurrency < 1 {
		return nil, fmt.Errorf("SYNC_CONCURRENCY must be at least 1")
	}
	if cfg.Brokerage.ConnectRatePerMinute < 1 {
		return nil, fmt.Errorf("CONNECT_RATE_PER_MINUTE must be at least 1")
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects it.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// loadDotEnv never overrides variables already set in the environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getFloatEnv(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
