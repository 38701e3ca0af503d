package service

import (
	"context"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/config"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
)

// Options tune the kitchen rules
type Options struct {
	Location           *time.Location
	CompleteStatus     string
	RecentBatchOptions int
	GuardOrderRedebit  bool
}

// DefaultOptions matches the kitchen workbook
func DefaultOptions() Options {
	return Options{
		Location:           time.UTC,
		CompleteStatus:     "Complete",
		RecentBatchOptions: 3,
	}
}

// OptionsFromConfig builds Options from the kitchen configuration section
func OptionsFromConfig(cfg config.KitchenConfig) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}

	opts := DefaultOptions()
	opts.Location = loc
	opts.GuardOrderRedebit = cfg.GuardOrderRedebit
	if cfg.CompleteStatus != "" {
		opts.CompleteStatus = cfg.CompleteStatus
	}
	if cfg.RecentBatchOptions > 0 {
		opts.RecentBatchOptions = cfg.RecentBatchOptions
	}
	return opts, nil
}

// Clock returns the current time
type Clock func() time.Time

// Publisher receives kitchen events. Implementations must not block the
// edit that produced them.
type Publisher interface {
	PublishBatchCreated(ctx context.Context, evt messaging.BatchCreatedEvent)
	PublishStockAdjusted(ctx context.Context, evt messaging.StockAdjustedEvent)
	PublishStockClassified(ctx context.Context, evt messaging.StockClassifiedEvent)
}

type noopPublisher struct{}

func (noopPublisher) PublishBatchCreated(context.Context, messaging.BatchCreatedEvent)       {}
func (noopPublisher) PublishStockAdjusted(context.Context, messaging.StockAdjustedEvent)     {}
func (noopPublisher) PublishStockClassified(context.Context, messaging.StockClassifiedEvent) {}
