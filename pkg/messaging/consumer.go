package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MaxRetries is how many times a failed delivery is redelivered before it
// is dead-lettered.
const MaxRetries = 3

// MessageHandler is a function that handles a message
type MessageHandler func(ctx context.Context, event *Event) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error that retrying cannot fix. The delivery is
// dead-lettered straight away.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// outcome is what happens to a delivery after handling
type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeReject
)

// Consumer handles consuming events from RabbitMQ
type Consumer struct {
	rmq       *RabbitMQ
	queueName string
	mu        sync.RWMutex
	handlers  map[string]MessageHandler
	bindings  [][2]string
	logger    *logger.Logger
}

// NewConsumer creates a new consumer for the given queue
func NewConsumer(rmq *RabbitMQ, queueName string, log *logger.Logger) (*Consumer, error) {
	if _, err := rmq.DeclareQueue(queueName); err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &Consumer{
		rmq:       rmq,
		queueName: queueName,
		handlers:  make(map[string]MessageHandler),
		logger:    log,
	}, nil
}

// Subscribe subscribes to an exchange with a routing key pattern
func (c *Consumer) Subscribe(exchange, routingKeyPattern string) error {
	if err := c.rmq.DeclareExchange(exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := c.rmq.BindQueue(c.queueName, exchange, routingKeyPattern); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	c.mu.Lock()
	c.bindings = append(c.bindings, [2]string{exchange, routingKeyPattern})
	c.mu.Unlock()

	c.logger.Info().
		Str("queue", c.queueName).
		Str("exchange", exchange).
		Str("routing_key", routingKeyPattern).
		Msg("subscribed to exchange")

	return nil
}

// RegisterHandler registers a handler for a specific event type
func (c *Consumer) RegisterHandler(eventType string, handler MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = handler
}

// Start starts consuming messages from the queue
func (c *Consumer) Start(ctx context.Context) error {
	msgs, err := c.rmq.Channel().Consume(
		c.queueName, // queue
		"",          // consumer tag (auto-generated)
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info().Str("queue", c.queueName).Msg("consumer started")

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info().Str("queue", c.queueName).Msg("consumer stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn().Msg("message channel closed")
					return
				}
				c.handleMessage(ctx, msg)
			}
		}
	}()

	return nil
}

// Restart redeclares the queue and its bindings on a fresh channel and
// resumes consuming. Use it as the reconnect hook of RabbitMQ.Watch.
func (c *Consumer) Restart(ctx context.Context) error {
	if _, err := c.rmq.DeclareQueue(c.queueName); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queueName, err)
	}
	c.mu.RLock()
	bindings := append([][2]string(nil), c.bindings...)
	c.mu.RUnlock()
	for _, b := range bindings {
		if err := c.rmq.BindQueue(c.queueName, b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind queue: %w", err)
		}
	}
	return c.Start(ctx)
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	switch c.process(ctx, msg.Body, getRetryCount(msg)) {
	case outcomeAck:
		msg.Ack(false)
	case outcomeRequeue:
		msg.Nack(false, true)
	case outcomeReject:
		msg.Reject(false)
	}
}

func (c *Consumer) process(ctx context.Context, body []byte, retryCount int) outcome {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error().Err(err).Msg("failed to unmarshal event")
		// Reject without requeue for malformed messages
		return outcomeReject
	}

	ctx = WithCorrelationID(ctx, event.CorrelationID)

	c.mu.RLock()
	handler, ok := c.handlers[event.Type]
	c.mu.RUnlock()
	if !ok {
		c.logger.Debug().
			Str("event_type", event.Type).
			Msg("no handler registered for event type")
		return outcomeAck
	}

	c.logger.Debug().
		Str("event_type", event.Type).
		Str("event_id", event.ID).
		Str("correlation_id", event.CorrelationID).
		Msg("processing event")

	if err := handler(ctx, &event); err != nil {
		c.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("event_id", event.ID).
			Msg("failed to process event")

		if IsPermanent(err) {
			return outcomeReject
		}

		if retryCount >= MaxRetries {
			c.logger.Warn().
				Str("event_id", event.ID).
				Int("retry_count", retryCount).
				Msg("max retries exceeded, sending to DLQ")
			return outcomeReject
		}

		return outcomeRequeue
	}

	return outcomeAck
}

func getRetryCount(msg amqp.Delivery) int {
	if msg.Headers == nil {
		return 0
	}

	if deaths, ok := msg.Headers["x-death"].([]interface{}); ok {
		for _, death := range deaths {
			if d, ok := death.(amqp.Table); ok {
				if count, ok := d["count"].(int64); ok {
					return int(count)
				}
			}
		}
	}

	return 0
}
