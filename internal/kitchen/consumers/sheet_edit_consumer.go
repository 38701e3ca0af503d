package consumers

import (
	"context"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/service"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/httputil"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
)

// QueueSheetEdits is the queue sheet edits are consumed from
const QueueSheetEdits = "kitchen-service.sheet-edits"

// EditHandler applies a single cell edit
type EditHandler interface {
	HandleEdit(ctx context.Context, edit messaging.SheetEditEvent) (*service.EditResult, error)
}

// SheetEditConsumer consumes cell edits relayed by the host spreadsheet
type SheetEditConsumer struct {
	consumer *messaging.Consumer
	edits    EditHandler
	logger   *logger.Logger
}

// NewSheetEditConsumer creates a new sheet edit consumer
func NewSheetEditConsumer(rmq *messaging.RabbitMQ, edits EditHandler, log *logger.Logger) (*SheetEditConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, QueueSheetEdits, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeSheetEvents, "sheet.edit.#"); err != nil {
		return nil, err
	}

	c := &SheetEditConsumer{
		consumer: consumer,
		edits:    edits,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventSheetEditReceived, c.handleSheetEdit)

	return c, nil
}

// Start starts consuming messages
func (c *SheetEditConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Restart resumes consuming after the broker connection was replaced
func (c *SheetEditConsumer) Restart(ctx context.Context) error {
	return c.consumer.Restart(ctx)
}

func (c *SheetEditConsumer) handleSheetEdit(ctx context.Context, event *messaging.Event) error {
	var edit messaging.SheetEditEvent
	if err := event.UnmarshalData(&edit); err != nil {
		return messaging.Permanent(err)
	}
	if err := httputil.Validate(edit); err != nil {
		return messaging.Permanent(err)
	}

	result, err := c.edits.HandleEdit(ctx, edit)
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("sheet", edit.Sheet).
		Int("row", edit.Row).
		Int("column", edit.Column).
		Str("handled", result.Handled).
		Str("correlation_id", messaging.CorrelationID(ctx)).
		Msg("received sheet edit")

	return nil
}
