package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	// Kitchen events
	EventBatchCreated    = "kitchen.batch.created"
	EventStockAdjusted   = "kitchen.stock.adjusted"
	EventStockClassified = "kitchen.stock.classified"

	// Sheet events
	EventSheetEditReceived = "sheet.edit.received"
)

// Exchange names
const (
	ExchangeKitchenEvents = "kitchen.events"
	ExchangeSheetEvents   = "sheet.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Kitchen Events

// BatchCreatedEvent is published when a production row gets its batch code
type BatchCreatedEvent struct {
	Row       int       `json:"row"`
	Product   string    `json:"product"`
	ChannelID string    `json:"channel_id"`
	BatchCode string    `json:"batch_code"`
	Sequence  int       `json:"sequence"`
	MadeOn    time.Time `json:"made_on"`
}

// Stock adjustment sources
const (
	StockSourceProduction = "production"
	StockSourceOrder      = "order"
)

// StockAdjustedEvent is published when an inventory running total changes
type StockAdjustedEvent struct {
	Product   string          `json:"product"`
	Row       int             `json:"row"`
	Delta     decimal.Decimal `json:"delta"`
	Previous  decimal.Decimal `json:"previous"`
	Quantity  decimal.Decimal `json:"quantity"`
	Created   bool            `json:"created"`
	Source    string          `json:"source"`
	SourceRow int             `json:"source_row"`
}

// StockClassifiedEvent is published when an inventory row is restyled
type StockClassifiedEvent struct {
	Product    string          `json:"product"`
	Row        int             `json:"row"`
	Quantity   decimal.Decimal `json:"quantity"`
	Par        decimal.Decimal `json:"par"`
	Tier       string          `json:"tier"`
	Background string          `json:"background"`
	FontColor  string          `json:"font_color"`
}

// Sheet Events

// SheetEditEvent carries one cell edit from the host spreadsheet. Row and
// column are 1-based.
type SheetEditEvent struct {
	Sheet    string `json:"sheet" validate:"required"`
	Row      int    `json:"row" validate:"required,min=1"`
	Column   int    `json:"column" validate:"required,min=1"`
	Value    string `json:"value"`
	OldValue string `json:"old_value,omitempty"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
