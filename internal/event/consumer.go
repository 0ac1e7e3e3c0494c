package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PoojiKatru/local-business-finder/internal/service"
	pkgkafka "github.com/PoojiKatru/local-business-finder/pkg/kafka"
)

// ReconcileHandler processes one reconcile request.
type ReconcileHandler interface {
	Handle(ctx context.Context, req service.ReconcileRequest) error
}

// Consumer handles rating events consumed from Kafka.
type Consumer struct {
	reconciler ReconcileHandler
	logger     *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(reconciler ReconcileHandler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reconciler: reconciler,
		logger:     logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicReconcileRequested:
		return c.handleReconcileRequested(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleReconcileRequested(ctx context.Context, event *pkgkafka.Event) error {
	var req service.ReconcileRequest
	if err := event.UnmarshalData(&req); err != nil {
		return fmt.Errorf("unmarshal rating.reconcile_requested data: %w", err)
	}
	if req.BusinessID == "" {
		req.BusinessID = event.AggregateID
	}
	if req.CorrelationID == "" {
		req.CorrelationID = event.CorrelationID
	}

	if err := c.reconciler.Handle(ctx, req); err != nil {
		return fmt.Errorf("reconcile business %s: %w", req.BusinessID, err)
	}
	return nil
}
