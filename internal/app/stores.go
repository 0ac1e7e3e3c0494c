package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/PoojiKatru/local-business-finder/internal/catalog"
	"github.com/PoojiKatru/local-business-finder/internal/config"
	"github.com/PoojiKatru/local-business-finder/internal/repository"
	"github.com/PoojiKatru/local-business-finder/internal/repository/memory"
	"github.com/PoojiKatru/local-business-finder/internal/repository/postgres"
	"github.com/PoojiKatru/local-business-finder/internal/repository/postgres/migrations"
	redisrepo "github.com/PoojiKatru/local-business-finder/internal/repository/redis"
	"github.com/PoojiKatru/local-business-finder/pkg/database"
	"github.com/PoojiKatru/local-business-finder/pkg/health"
	"github.com/PoojiKatru/local-business-finder/pkg/httpclient"
)

// stores holds the repositories selected by configuration together with the
// connections backing them.
type stores struct {
	challenges repository.ChallengeRepository
	aggregates repository.AggregateRepository
	reviews    repository.ReviewRepository
	businesses repository.BusinessRepository

	pool  *pgxpool.Pool
	redis *goredis.Client
}

func (s *stores) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// openStores connects the configured backends and registers their readiness
// checks. On error every connection opened so far is closed.
func openStores(ctx context.Context, cfg *config.Config, hh *health.Handler, logger *slog.Logger) (_ *stores, err error) {
	s := &stores{}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	if cfg.UsesPostgres() {
		pgCfg := cfg.Postgres()
		s.pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, s.pool, serviceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}
		if err := database.RunMigrations(ctx, s.pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if cfg.SlowQueryThresholdMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
		}
		pool := s.pool
		hh.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	}

	switch cfg.ChallengeStore {
	case config.BackendRedis:
		s.redis, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.RedisAddr))
		client := s.redis
		hh.RegisterCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		s.challenges = redisrepo.NewChallengeRepository(s.redis, cfg.ChallengeGrace)
	default:
		s.challenges = memory.NewChallengeRepository(cfg.ChallengeGrace)
	}

	switch cfg.AggregateStore {
	case config.BackendPostgres:
		s.aggregates = postgres.NewAggregateRepository(s.pool)
	default:
		s.aggregates = memory.NewAggregateRepository()
	}

	switch cfg.ReviewStore {
	case config.BackendPostgres:
		s.reviews = postgres.NewReviewRepository(s.pool)
	default:
		s.reviews = memory.NewReviewRepository()
	}

	switch cfg.CatalogSource {
	case config.BackendPostgres:
		s.businesses = postgres.NewBusinessRepository(s.pool)
	case config.BackendRemote:
		client := catalog.NewRemoteCatalogClient(httpclient.DefaultConfig(), logger)
		s.businesses = catalog.NewRemoteCatalog(client, cfg.CatalogURL, logger)
		logger.Info("using remote catalog", slog.String("url", cfg.CatalogURL))
	default:
		s.businesses = memory.NewBusinessRepository()
	}

	return s, nil
}
