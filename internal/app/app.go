package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PoojiKatru/local-business-finder/internal/catalog"
	"github.com/PoojiKatru/local-business-finder/internal/config"
	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/event"
	handler "github.com/PoojiKatru/local-business-finder/internal/handler/http"
	"github.com/PoojiKatru/local-business-finder/internal/repository"
	"github.com/PoojiKatru/local-business-finder/internal/service"
	"github.com/PoojiKatru/local-business-finder/pkg/health"
	pkgkafka "github.com/PoojiKatru/local-business-finder/pkg/kafka"
	"github.com/PoojiKatru/local-business-finder/pkg/middleware"
	"github.com/PoojiKatru/local-business-finder/pkg/tracing"
)

const serviceName = "local-business-finder"

// rateLimiterTTL is how long an idle session keeps its token bucket.
const rateLimiterTTL = 10 * time.Minute

// App wires together all dependencies and runs the service.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	stores     *stores
	producer   *pkgkafka.Producer
	consumer   *pkgkafka.Consumer
	memQueue   *service.MemoryReconcileQueue
	limiter    *middleware.RateLimiter
	httpServer *http.Server

	challenges *service.ChallengeService
	reconciler *service.Reconciler

	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()
	st, err := openStores(ctx, cfg, healthHandler, logger)
	if err != nil {
		_ = tracerShutdown(ctx)
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		logger:         logger,
		stores:         st,
		tracerShutdown: tracerShutdown,
	}
	defer func() {
		if err != nil {
			a.closeResources(context.Background())
		}
	}()

	// Build the dependency graph.
	challenges := service.NewChallengeService(st.challenges, service.ChallengeConfig{
		TTL:    cfg.ChallengeTTL,
		Secret: cfg.ChallengeSecret,
	}, logger)
	ratings := service.NewRatingService(st.aggregates, st.reviews, logger)
	reconciler := service.NewReconciler(ratings, st.businesses, logger)

	var (
		queue     service.ReconcileQueue
		publisher service.ReviewPublisher
	)
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := a.producer.Ping(ctx); err != nil {
			logger.Warn("kafka ping failed, continuing in degraded mode", slog.String("error", err.Error()))
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		producer := a.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})

		publisher = event.NewProducer(a.producer, logger)
		queue = event.NewReconcileQueue(a.producer, logger)

		eventConsumer := event.NewConsumer(reconciler, logger)
		a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.KafkaGroupID,
			Topic:    event.TopicReconcileRequested,
			MinBytes: 1,
			MaxBytes: 10e6,
		}, pkgkafka.IdempotentHandler(
			event.TopicReconcileRequested,
			pkgkafka.NewMemoryIdempotencyStore(24*time.Hour),
			eventConsumer.Handle,
			logger,
		), logger)
	} else {
		a.memQueue = service.NewMemoryReconcileQueue(cfg.ReconcileQueueSize)
		queue = a.memQueue
	}

	bounds := domain.ReviewBounds{
		TitleMax:   cfg.ReviewTitleMax,
		ContentMin: cfg.ReviewContentMin,
		ContentMax: cfg.ReviewContentMax,
	}
	reviews := service.NewReviewService(challenges, ratings, st.reviews, st.businesses, queue, publisher, bounds, logger)
	discovery := service.NewDiscoveryService(st.businesses, ratings, logger)

	if cfg.SeedSampleData {
		if err := seed(ctx, st, logger); err != nil {
			return nil, err
		}
	}
	if cfg.SeedSampleData || cfg.ReconcileOnStart {
		n, err := reconciler.ReconcileAll(ctx)
		if err != nil {
			logger.Warn("startup reconciliation incomplete", slog.String("error", err.Error()))
		} else {
			logger.Info("startup reconciliation completed", slog.Int("businesses", n))
		}
	}

	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, rateLimiterTTL, logger)
	router := handler.NewRouter(handler.Services{
		Challenges: challenges,
		Reviews:    reviews,
		Ratings:    ratings,
		Discovery:  discovery,
		Reports:    service.NewReportService(discovery, logger),
		Reconciler: reconciler,
	}, a.limiter, healthHandler, cfg.CORSAllowedOrigins, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.challenges = challenges
	a.reconciler = reconciler

	return a, nil
}

// seed loads the sample catalog into a writable catalog.
func seed(ctx context.Context, st *stores, logger *slog.Logger) error {
	writer, ok := st.businesses.(repository.BusinessWriter)
	if !ok {
		logger.Warn("catalog is read-only, sample data not seeded")
		return nil
	}
	seeded, err := catalog.Seed(ctx, writer, st.reviews, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seed sample data: %w", err)
	}
	logger.Info("sample data seeded", slog.Int("businesses", len(seeded)))
	return nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server, the challenge sweeper, the reconciler and the
// rate limiter janitor, then blocks until ctx is canceled or one of them
// fails. Everything is shut down before Run returns.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return a.challenges.RunSweeper(gctx, a.cfg.ChallengeSweepInterval)
	})
	g.Go(func() error {
		return a.limiter.Run(gctx)
	})
	if a.memQueue != nil {
		g.Go(func() error {
			return a.reconciler.Run(gctx, a.memQueue)
		})
	}
	if a.consumer != nil {
		g.Go(func() error {
			if err := a.consumer.Start(gctx); err != nil {
				return fmt.Errorf("reconcile consumer: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, a.closeResources(closeCtx))
}

// closeResources releases everything NewApp opened, in dependency order:
// tracer (flush spans from drained requests), Kafka, then storage.
func (a *App) closeResources(ctx context.Context) error {
	a.logger.Info("shutting down application...")

	var errs []error
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.stores.close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
