package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PoojiKatru/local-business-finder/internal/service"
	"github.com/PoojiKatru/local-business-finder/pkg/health"
	"github.com/PoojiKatru/local-business-finder/pkg/middleware"
)

const serviceName = "local-business-finder"

// Services groups the application services served over HTTP.
type Services struct {
	Challenges *service.ChallengeService
	Reviews    *service.ReviewService
	Ratings    *service.RatingService
	Discovery  *service.DiscoveryService
	Reports    *service.ReportService
	Reconciler *service.Reconciler
}

// NewRouter creates a chi router with all routes registered. The limiter
// guards the endpoints that issue, verify or consume challenges.
func NewRouter(
	svcs Services,
	limiter *middleware.RateLimiter,
	healthHandler *health.Handler,
	corsOrigins []string,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(corsOrigins)))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	challengeHandler := NewChallengeHandler(svcs.Challenges, logger)
	reviewHandler := NewReviewHandler(svcs.Reviews, logger)
	businessHandler := NewBusinessHandler(svcs.Discovery, svcs.Ratings, logger)
	reportHandler := NewReportHandler(svcs.Reports, logger)
	adminHandler := NewAdminHandler(svcs.Reconciler, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/challenges", func(r chi.Router) {
			// issuing mints a session for first-time visitors
			r.With(
				middleware.Session(true),
				middleware.RequestLogger(logger),
				limiter.Middleware(middleware.SessionOrIP),
			).Post("/", challengeHandler.IssueChallenge)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Session(false))
				r.Use(middleware.RequestLogger(logger))

				r.Get("/current", challengeHandler.GetCurrentChallenge)
				r.Get("/{id}", challengeHandler.GetChallenge)
				r.With(limiter.Middleware(middleware.SessionOrIP)).
					Post("/{id}/verify", challengeHandler.VerifyChallenge)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(false))
			r.Use(middleware.RequestLogger(logger))

			r.With(limiter.Middleware(middleware.SessionOrIP)).
				Post("/reviews", reviewHandler.SubmitReview)

			r.Get("/businesses", businessHandler.ListBusinesses)
			r.Get("/businesses/{id}", businessHandler.GetBusiness)
			r.Get("/businesses/{id}/rating", businessHandler.GetRating)
			r.Get("/categories", businessHandler.ListCategories)

			r.Post("/reports", reportHandler.GenerateReport)

			r.Post("/admin/reconcile", adminHandler.ReconcileAll)
			r.Post("/admin/businesses/{id}/reconcile", adminHandler.ReconcileBusiness)
		})
	})

	return r
}
