package events

import (
	"context"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
)

// eventPublisher is the part of messaging.Publisher used here
type eventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// KitchenEventPublisher publishes kitchen events. A nil publisher drops them.
type KitchenEventPublisher struct {
	publisher eventPublisher
	logger    *logger.Logger
}

// NewKitchenEventPublisher creates a new kitchen event publisher
func NewKitchenEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*KitchenEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeKitchenEvents, "kitchen-service", log)
	if err != nil {
		return nil, err
	}

	return newKitchenEventPublisher(publisher, log), nil
}

func newKitchenEventPublisher(publisher eventPublisher, log *logger.Logger) *KitchenEventPublisher {
	return &KitchenEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishBatchCreated publishes a batch created event
func (p *KitchenEventPublisher) PublishBatchCreated(ctx context.Context, evt messaging.BatchCreatedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventBatchCreated, evt); err != nil {
		p.logger.Error().Err(err).Str("batch_code", evt.BatchCode).Msg("failed to publish batch created event")
	}
}

// PublishStockAdjusted publishes a stock adjusted event
func (p *KitchenEventPublisher) PublishStockAdjusted(ctx context.Context, evt messaging.StockAdjustedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, evt); err != nil {
		p.logger.Error().Err(err).Str("product", evt.Product).Msg("failed to publish stock adjusted event")
	}
}

// PublishStockClassified publishes a stock classified event
func (p *KitchenEventPublisher) PublishStockClassified(ctx context.Context, evt messaging.StockClassifiedEvent) {
	if p == nil {
		return
	}
	if err := p.publisher.Publish(ctx, messaging.EventStockClassified, evt); err != nil {
		p.logger.Error().Err(err).Str("product", evt.Product).Msg("failed to publish stock classified event")
	}
}
