package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/repository"
	apperrors "github.com/PoojiKatru/local-business-finder/pkg/errors"
	"github.com/PoojiKatru/local-business-finder/pkg/logger"
)

// ReconcileRequest asks for one business's aggregate to be rebuilt from its
// persisted reviews.
type ReconcileRequest struct {
	BusinessID    string    `json:"business_id"`
	ReviewID      string    `json:"review_id,omitempty"`
	Reason        string    `json:"reason"`
	RequestedAt   time.Time `json:"requested_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// ReconcileQueue accepts reconcile requests for asynchronous processing.
type ReconcileQueue interface {
	Enqueue(ctx context.Context, req ReconcileRequest) error
}

// ErrQueueFull is returned by MemoryReconcileQueue when its buffer is full.
var ErrQueueFull = errors.New("reconcile queue full")

// MemoryReconcileQueue is a bounded in-process queue. A business that is
// already waiting is not queued a second time.
type MemoryReconcileQueue struct {
	ch      chan ReconcileRequest
	mu      sync.Mutex
	pending map[string]struct{}
}

// NewMemoryReconcileQueue creates a queue holding at most size requests.
func NewMemoryReconcileQueue(size int) *MemoryReconcileQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryReconcileQueue{
		ch:      make(chan ReconcileRequest, size),
		pending: make(map[string]struct{}),
	}
}

func (q *MemoryReconcileQueue) Enqueue(_ context.Context, req ReconcileRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[req.BusinessID]; ok {
		return nil
	}
	select {
	case q.ch <- req:
		q.pending[req.BusinessID] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

// Consume hands each queued request to handle until ctx is done. A business
// may be queued again as soon as its request has been dequeued.
func (q *MemoryReconcileQueue) Consume(ctx context.Context, handle func(context.Context, ReconcileRequest) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-q.ch:
			q.mu.Lock()
			delete(q.pending, req.BusinessID)
			q.mu.Unlock()
			// Failures are logged by the handler; the next full pass retries.
			_ = handle(ctx, req)
		}
	}
}

// Len returns the number of queued requests.
func (q *MemoryReconcileQueue) Len() int {
	return len(q.ch)
}

// Reconciler rebuilds aggregates from persisted reviews.
type Reconciler struct {
	ratings    *RatingService
	businesses repository.BusinessRepository
	logger     *slog.Logger
}

// NewReconciler creates a new reconciler.
func NewReconciler(ratings *RatingService, businesses repository.BusinessRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		ratings:    ratings,
		businesses: businesses,
		logger:     logger,
	}
}

// Handle processes one queued request.
func (r *Reconciler) Handle(ctx context.Context, req ReconcileRequest) error {
	if req.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, req.CorrelationID)
	}

	agg, err := r.ratings.Recompute(ctx, req.BusinessID)
	if err != nil {
		reconciliations.WithLabelValues("error").Inc()
		r.logger.ErrorContext(ctx, "aggregate reconciliation failed",
			slog.String("business_id", req.BusinessID),
			slog.String("review_id", req.ReviewID),
			slog.String("error", err.Error()),
		)
		return err
	}

	reconciliations.WithLabelValues("ok").Inc()
	r.logger.InfoContext(ctx, "aggregate reconciled",
		slog.String("business_id", req.BusinessID),
		slog.String("review_id", req.ReviewID),
		slog.Int64("review_count", agg.Count),
	)
	return nil
}

// Run drains q until ctx is done.
func (r *Reconciler) Run(ctx context.Context, q *MemoryReconcileQueue) error {
	return q.Consume(ctx, r.Handle)
}

// ReconcileBusiness recomputes one business's aggregate on demand.
func (r *Reconciler) ReconcileBusiness(ctx context.Context, businessID string) (domain.RatingAggregate, error) {
	if _, err := r.businesses.Get(ctx, businessID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.RatingAggregate{}, apperrors.NotFound("business", businessID)
		}
		return domain.RatingAggregate{}, fmt.Errorf("get business: %w", err)
	}

	agg, err := r.ratings.Recompute(ctx, businessID)
	if err != nil {
		reconciliations.WithLabelValues("error").Inc()
		return domain.RatingAggregate{}, err
	}
	reconciliations.WithLabelValues("ok").Inc()
	return agg, nil
}

// ReconcileAll recomputes every business in the catalog and returns how many
// were processed. It keeps going past individual failures and reports them
// joined.
func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	businesses, err := r.businesses.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list businesses: %w", err)
	}

	var errs []error
	done := 0
	for _, b := range businesses {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := r.ratings.Recompute(ctx, b.ID); err != nil {
			reconciliations.WithLabelValues("error").Inc()
			errs = append(errs, fmt.Errorf("business %s: %w", b.ID, err))
			continue
		}
		reconciliations.WithLabelValues("ok").Inc()
		done++
	}

	r.logger.InfoContext(ctx, "full reconciliation finished",
		slog.Int("businesses", len(businesses)),
		slog.Int("reconciled", done),
		slog.Int("failed", len(businesses)-done),
	)
	return done, errors.Join(errs...)
}
