package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PoojiKatru/local-business-finder/internal/domain"
	"github.com/PoojiKatru/local-business-finder/internal/service"
	pkgkafka "github.com/PoojiKatru/local-business-finder/pkg/kafka"
	"github.com/PoojiKatru/local-business-finder/pkg/logger"
)

// Kafka topics owned by this service. Event types equal their topic names.
var (
	TopicReviewAdmitted     = pkgkafka.Topic("review", "admitted")
	TopicReconcileRequested = pkgkafka.Topic("rating", "reconcile_requested")
)

// Aggregate type constants.
const (
	AggregateTypeReview   = "review"
	AggregateTypeBusiness = "business"
)

// SourceService identifies events published by this service.
const SourceService = "local-business-finder"

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// ReviewAdmittedData is the payload for a review.admitted event.
type ReviewAdmittedData struct {
	ReviewID         string    `json:"review_id"`
	BusinessID       string    `json:"business_id"`
	Rating           int       `json:"rating"`
	ReviewCount      int64     `json:"review_count"`
	RatingSum        int64     `json:"rating_sum"`
	AggregatePending bool      `json:"aggregate_pending"`
	CreatedAt        time.Time `json:"created_at"`
}

// Producer publishes review domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewAdmitted publishes a review.admitted event. When the aggregate
// update is pending the count and sum are omitted from the payload as zero.
func (p *Producer) PublishReviewAdmitted(ctx context.Context, review *domain.Review, agg domain.RatingAggregate, pending bool) error {
	data := ReviewAdmittedData{
		ReviewID:         review.ID,
		BusinessID:       review.BusinessID,
		Rating:           review.Rating,
		AggregatePending: pending,
		CreatedAt:        review.CreatedAt,
	}
	if !pending {
		data.ReviewCount = agg.Count
		data.RatingSum = agg.Sum
	}

	event, err := pkgkafka.NewEvent(TopicReviewAdmitted, review.ID, AggregateTypeReview, SourceService, data)
	if err != nil {
		return fmt.Errorf("create review.admitted event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, TopicReviewAdmitted, event); err != nil {
		return fmt.Errorf("publish review.admitted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.admitted event",
		slog.String("review_id", review.ID),
		slog.String("business_id", review.BusinessID),
	)
	return nil
}

// ReconcileQueue sends reconcile requests through Kafka so any instance can
// process them. Requests are keyed by business id.
type ReconcileQueue struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewReconcileQueue creates a Kafka-backed reconcile queue.
func NewReconcileQueue(kafka Publisher, logger *slog.Logger) *ReconcileQueue {
	return &ReconcileQueue{
		kafka:  kafka,
		logger: logger,
	}
}

// Enqueue publishes a rating.reconcile_requested event.
func (q *ReconcileQueue) Enqueue(ctx context.Context, req service.ReconcileRequest) error {
	event, err := pkgkafka.NewEvent(TopicReconcileRequested, req.BusinessID, AggregateTypeBusiness, SourceService, req)
	if err != nil {
		return fmt.Errorf("create rating.reconcile_requested event: %w", err)
	}
	event.WithCorrelationID(req.CorrelationID)

	if err := q.kafka.Publish(ctx, TopicReconcileRequested, event); err != nil {
		return fmt.Errorf("publish rating.reconcile_requested event: %w", err)
	}

	q.logger.DebugContext(ctx, "published rating.reconcile_requested event",
		slog.String("business_id", req.BusinessID),
		slog.String("review_id", req.ReviewID),
	)
	return nil
}
