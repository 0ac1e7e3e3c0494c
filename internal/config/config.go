package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/PoojiKatru/local-business-finder/pkg/config"
	"github.com/PoojiKatru/local-business-finder/pkg/database"
	"github.com/PoojiKatru/local-business-finder/pkg/tracing"
)

// Backend names accepted by the *_STORE and CATALOG_SOURCE variables.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

const developmentSecret = "localboost-dev-secret"

// Config holds all configuration for the service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Challenges
	ChallengeStore         string        `env:"CHALLENGE_STORE" envDefault:"memory"`
	ChallengeTTL           time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"`
	ChallengeGrace         time.Duration `env:"CHALLENGE_GRACE" envDefault:"5m"`
	ChallengeSecret        string        `env:"CHALLENGE_SECRET" envDefault:"localboost-dev-secret"`
	ChallengeSweepInterval time.Duration `env:"CHALLENGE_SWEEP_INTERVAL" envDefault:"1m"`

	// Storage backends
	AggregateStore string `env:"AGGREGATE_STORE" envDefault:"memory"`
	ReviewStore    string `env:"REVIEW_STORE" envDefault:"memory"`
	CatalogSource  string `env:"CATALOG_SOURCE" envDefault:"memory"`
	CatalogURL     string `env:"CATALOG_URL" envDefault:""`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"localboost"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"localboost"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"localboost"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"local-business-finder"`

	// Review bounds
	ReviewTitleMax   int `env:"REVIEW_TITLE_MAX" envDefault:"200"`
	ReviewContentMin int `env:"REVIEW_CONTENT_MIN" envDefault:"1"`
	ReviewContentMax int `env:"REVIEW_CONTENT_MAX" envDefault:"5000"`

	// Reconciliation
	ReconcileQueueSize int  `env:"RECONCILE_QUEUE_SIZE" envDefault:"1024"`
	ReconcileOnStart   bool `env:"RECONCILE_ON_START" envDefault:"false"`

	// Rate limiting, per session or client IP
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	SeedSampleData bool `env:"SEED_SAMPLE_DATA" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load service config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// validate checks configuration invariants and returns every violation.
func (c *Config) validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port: %d", c.HTTPPort))
	}
	if c.ChallengeTTL <= 0 {
		errs = append(errs, fmt.Errorf("CHALLENGE_TTL must be positive, got %s", c.ChallengeTTL))
	}
	if c.ChallengeGrace < 0 {
		errs = append(errs, fmt.Errorf("CHALLENGE_GRACE must not be negative, got %s", c.ChallengeGrace))
	}
	if c.ChallengeSweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("CHALLENGE_SWEEP_INTERVAL must be positive, got %s", c.ChallengeSweepInterval))
	}
	if c.ChallengeSecret == "" {
		errs = append(errs, errors.New("CHALLENGE_SECRET is required"))
	} else if !c.IsDevelopment() && c.ChallengeSecret == developmentSecret {
		errs = append(errs, errors.New("CHALLENGE_SECRET must be explicitly set outside development"))
	}

	errs = append(errs,
		pkgconfig.OneOf("CHALLENGE_STORE", c.ChallengeStore, BackendMemory, BackendRedis),
		pkgconfig.OneOf("AGGREGATE_STORE", c.AggregateStore, BackendMemory, BackendPostgres),
		pkgconfig.OneOf("REVIEW_STORE", c.ReviewStore, BackendMemory, BackendPostgres),
		pkgconfig.OneOf("CATALOG_SOURCE", c.CatalogSource, BackendMemory, BackendPostgres, BackendRemote),
	)
	if c.AggregateStore == BackendPostgres && c.ReviewStore != BackendPostgres {
		errs = append(errs, errors.New("AGGREGATE_STORE=postgres requires REVIEW_STORE=postgres"))
	}
	if c.ReviewStore == BackendPostgres && c.CatalogSource != BackendPostgres {
		errs = append(errs, errors.New("REVIEW_STORE=postgres requires CATALOG_SOURCE=postgres"))
	}
	if c.CatalogSource == BackendRemote && c.CatalogURL == "" {
		errs = append(errs, errors.New("CATALOG_URL is required when CATALOG_SOURCE=remote"))
	}
	if c.UsesPostgres() && c.PostgresHost == "" {
		errs = append(errs, errors.New("POSTGRES_HOST is required"))
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true"))
	}

	if c.ReviewTitleMax < 1 {
		errs = append(errs, fmt.Errorf("REVIEW_TITLE_MAX must be positive, got %d", c.ReviewTitleMax))
	}
	if c.ReviewContentMin < 1 || c.ReviewContentMin > c.ReviewContentMax {
		errs = append(errs, fmt.Errorf("review content bounds must satisfy 1 <= min <= max, got %d..%d",
			c.ReviewContentMin, c.ReviewContentMax))
	}
	if c.ReconcileQueueSize < 1 {
		errs = append(errs, fmt.Errorf("RECONCILE_QUEUE_SIZE must be positive, got %d", c.ReconcileQueueSize))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got %g rps burst %d", c.RateLimitRPS, c.RateLimitBurst))
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate))
	}
	return errors.Join(errs...)
}

// UsesPostgres reports whether any backend is PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.AggregateStore == BackendPostgres ||
		c.ReviewStore == BackendPostgres ||
		c.CatalogSource == BackendPostgres
}

// Postgres returns the connection settings for the pool.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the connection settings for the challenge store.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPass, DB: c.RedisDB}
}

// Tracing returns the OpenTelemetry settings.
func (c *Config) Tracing(serviceName string) tracing.Config {
	t := tracing.DefaultConfig(serviceName)
	t.Environment = c.Environment
	t.OTLPEndpoint = c.OTELEndpoint
	t.SampleRate = c.OTELSampleRate
	t.Enabled = c.OTELEnabled
	return t
}
