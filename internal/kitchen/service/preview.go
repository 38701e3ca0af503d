package service

import (
	"context"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/rules"
)

// SlotOptions are the channel choices offered in one drop-down slot
type SlotOptions struct {
	Slot     int      `json:"slot"`
	DoseCode string   `json:"dose_code,omitempty"`
	Options  []string `json:"options"`
}

// BatchPreview is a batch code that would be assigned, without assigning it
type BatchPreview struct {
	BatchCode string    `json:"batch_code"`
	ChannelID string    `json:"channel_id"`
	Sequence  int       `json:"sequence"`
	Date      time.Time `json:"date"`
}

// PreviewOptions resolves the channel drop-downs a product would get.
func (s *SheetService) PreviewOptions(ctx context.Context, product string) ([]SlotOptions, error) {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	codes := rules.ExtractSlotCodes(product, s.layout.Slots)
	slots := make([]SlotOptions, 0, s.layout.Slots)
	for slot := 1; slot <= s.layout.Slots; slot++ {
		so := SlotOptions{Slot: slot, Options: []string{}}
		if slot <= len(codes) {
			so.DoseCode = codes[slot-1]
			if opts := rules.ResolveOptions(so.DoseCode, channels); opts != nil {
				so.Options = opts
			}
		}
		slots = append(slots, so)
	}
	return slots, nil
}

// PreviewBatchCode numbers a batch of product on selection's channel made
// at date against the production sheet. A zero date means now.
func (s *SheetService) PreviewBatchCode(ctx context.Context, product, selection string, date time.Time) (*BatchPreview, error) {
	if date.IsZero() {
		date = s.now()
	}
	date = date.In(s.opts.Location)

	history, err := s.batchHistory(ctx)
	if err != nil {
		return nil, err
	}

	channelID := rules.ChannelID(selection)
	seq := s.batches.Sequence(history, 0, product, channelID, date)
	return &BatchPreview{
		BatchCode: s.batches.Format(product, date, channelID, seq),
		ChannelID: channelID,
		Sequence:  seq,
		Date:      date,
	}, nil
}

// Inventory lists the inventory rows with their current styling.
func (s *SheetService) Inventory(ctx context.Context) ([]*repository.InventoryEntry, error) {
	return s.store.ListInventory(ctx)
}

// Health reports the store's health when it can tell.
func (s *SheetService) Health(ctx context.Context) map[string]string {
	if hc, ok := s.store.(repository.HealthChecker); ok {
		return hc.Health(ctx)
	}
	return map[string]string{"status": "up"}
}
