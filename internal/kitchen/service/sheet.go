package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/rules"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/lock"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
)

// SheetService reacts to edits of the kitchen workbook. Every event runs
// under the locker and is flushed to the store before the lock is released.
type SheetService struct {
	store     repository.Store
	layout    repository.Layout
	opts      Options
	batches   *rules.BatchCodeGenerator
	ledger    *InventoryLedger
	locker    lock.Locker
	publisher Publisher
	now       Clock
	logger    *logger.Logger
}

// NewSheetService creates the service. A nil locker serialises events in
// process; a nil publisher drops events.
func NewSheetService(
	store repository.Store,
	layout repository.Layout,
	opts Options,
	locker lock.Locker,
	publisher Publisher,
	log *logger.Logger,
) *SheetService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &SheetService{
		store:     store,
		layout:    layout,
		opts:      opts,
		batches:   rules.NewBatchCodeGenerator(opts.Location),
		ledger:    NewInventoryLedger(store, publisher, log),
		locker:    locker,
		publisher: publisher,
		now:       time.Now,
		logger:    log.WithComponent("sheet"),
	}
}

// WithClock replaces the clock used for date stamps.
func (s *SheetService) WithClock(now Clock) *SheetService {
	s.now = now
	return s
}

// Layout returns the sheet layout the service routes edits with.
func (s *SheetService) Layout() repository.Layout {
	return s.layout
}

// Ledger returns the inventory ledger.
func (s *SheetService) Ledger() *InventoryLedger {
	return s.ledger
}

// OnProductSelected stamps the production row's date and rebuilds its
// channel drop-downs from the dose codes in the product name.
func (s *SheetService) OnProductSelected(ctx context.Context, row int) error {
	return s.lockedRow(ctx, row, func(ctx context.Context) error {
		return s.productSelected(ctx, row)
	})
}

// OnChannelSelected generates the batch code of a production row when its
// first channel slot is picked and credits the quantity made.
func (s *SheetService) OnChannelSelected(ctx context.Context, row, slot int) error {
	return s.lockedRow(ctx, row, func(ctx context.Context) error {
		return s.channelSelected(ctx, row, slot)
	})
}

// OnInventoryManuallyEdited restyles an inventory row after its quantity
// was typed in by hand.
func (s *SheetService) OnInventoryManuallyEdited(ctx context.Context, row int) error {
	return s.lockedRow(ctx, row, func(ctx context.Context) error {
		return s.inventoryEdited(ctx, row)
	})
}

// OnOrderProductSelected stamps the order date and offers the most recent
// batch codes of the product.
func (s *SheetService) OnOrderProductSelected(ctx context.Context, row int) error {
	return s.lockedRow(ctx, row, func(ctx context.Context) error {
		return s.orderProductSelected(ctx, row)
	})
}

// OnOrderStatusChanged debits the quantity sold when status is the
// completion status.
func (s *SheetService) OnOrderStatusChanged(ctx context.Context, row int, status string) error {
	return s.lockedRow(ctx, row, func(ctx context.Context) error {
		return s.orderStatusChanged(ctx, row, status)
	})
}

// OnLoad restyles every inventory row against its par level and returns
// how many rows were styled.
func (s *SheetService) OnLoad(ctx context.Context) (int, error) {
	var styled int
	err := s.locked(ctx, func(ctx context.Context) error {
		entries, err := s.store.ListInventory(ctx)
		if err != nil {
			return fmt.Errorf("load: list inventory: %w", err)
		}
		for _, e := range entries {
			qty, ok := rules.ParseQuantity(e.Quantity)
			if !ok {
				continue
			}
			c, err := s.ledger.Restyle(ctx, e.Row, e.Product, qty)
			if err != nil {
				return err
			}
			if c.Styled() {
				styled++
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Info().Int("styled", styled).Msg("inventory restyled")
	}
	return styled, err
}

// headerRow holds the column titles on every sheet and is never processed.
const headerRow = 1

// lockedRow runs fn as one event for a data row. Header rows are ignored.
func (s *SheetService) lockedRow(ctx context.Context, row int, fn func(context.Context) error) error {
	if row <= headerRow {
		return nil
	}
	return s.locked(ctx, fn)
}

// locked runs fn as one event: under the lock, then flushed.
func (s *SheetService) locked(ctx context.Context, fn func(context.Context) error) error {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		if lock.IsNotObtained(err) {
			return errors.Unavailable("another edit is being processed")
		}
		return fmt.Errorf("acquire event lock: %w", err)
	}
	defer unlock()

	if err := fn(ctx); err != nil {
		return err
	}

	if f, ok := s.store.(repository.Flusher); ok {
		if err := f.Flush(ctx); err != nil {
			return fmt.Errorf("flush store: %w", err)
		}
	}
	return nil
}

func (s *SheetService) productSelected(ctx context.Context, row int) error {
	rec, err := s.store.GetProduction(ctx, row)
	if errors.IsNotFound(err) || (err == nil && rec.Product == "") {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.StampProductionDate(ctx, row, s.now().In(s.opts.Location)); err != nil {
		return err
	}

	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return err
	}

	codes := rules.ExtractSlotCodes(rec.Product, s.layout.Slots)
	for slot := 1; slot <= s.layout.Slots; slot++ {
		var options []string
		if slot <= len(codes) {
			options = rules.ResolveOptions(codes[slot-1], channels)
			if err := s.store.SetSelection(ctx, row, slot, ""); err != nil {
				return err
			}
		}
		if err := s.store.SetSelectionOptions(ctx, row, slot, options); err != nil {
			return err
		}
	}

	s.logger.Debug().Int("row", row).Str("product", rec.Product).Strs("dose_codes", codes).Msg("channel options rebuilt")
	return nil
}

func (s *SheetService) channelSelected(ctx context.Context, row, slot int) error {
	// Only the first slot carries the channel of the batch.
	if slot != 1 {
		return nil
	}

	rec, err := s.store.GetProduction(ctx, row)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	log := s.logger.With().Int("row", row).Str("product", rec.Product).Logger()
	switch {
	case rec.Selection1 == "":
		return nil
	case rec.BatchCode != "":
		log.Debug().Str("batch_code", rec.BatchCode).Msg("batch code already assigned")
		return nil
	case rec.Date == nil:
		log.Debug().Msg("no date stamped, batch code skipped")
		return nil
	}

	made, ok := rules.ParseQuantity(rec.QuantityMade)
	if !ok {
		log.Debug().Str("quantity_made", rec.QuantityMade).Msg("quantity made is not a number, batch code skipped")
		return nil
	}

	history, err := s.batchHistory(ctx)
	if err != nil {
		return err
	}

	channelID := rules.ChannelID(rec.Selection1)
	seq := s.batches.Sequence(history, row, rec.Product, channelID, *rec.Date)
	code := s.batches.Format(rec.Product, *rec.Date, channelID, seq)
	if err := s.store.SetBatchCode(ctx, row, code); err != nil {
		return err
	}
	log.Info().Str("batch_code", code).Msg("batch code generated")

	s.publisher.PublishBatchCreated(ctx, messaging.BatchCreatedEvent{
		Row:       row,
		Product:   rec.Product,
		ChannelID: channelID,
		BatchCode: code,
		Sequence:  seq,
		MadeOn:    *rec.Date,
	})

	_, err = s.ledger.ApplyDelta(ctx, rec.Product, made, Source{Kind: messaging.StockSourceProduction, Row: row})
	return err
}

func (s *SheetService) inventoryEdited(ctx context.Context, row int) error {
	entry, err := s.store.GetInventory(ctx, row)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	qty, ok := rules.ParseQuantity(entry.Quantity)
	if !ok {
		s.logger.Debug().Int("row", row).Str("quantity", entry.Quantity).Msg("quantity is not a number, row left as is")
		return nil
	}
	_, err = s.ledger.Restyle(ctx, row, entry.Product, qty)
	return err
}

func (s *SheetService) orderProductSelected(ctx context.Context, row int) error {
	order, err := s.store.GetOrder(ctx, row)
	if errors.IsNotFound(err) || (err == nil && order.Product == "") {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.StampOrderDate(ctx, row, s.now().In(s.opts.Location)); err != nil {
		return err
	}
	if err := s.store.SetOrderBatchCode(ctx, row, ""); err != nil {
		return err
	}

	history, err := s.batchHistory(ctx)
	if err != nil {
		return err
	}
	recent := rules.RecentBatchCodes(history, order.Product, s.opts.RecentBatchOptions)
	return s.store.SetOrderBatchOptions(ctx, row, recent)
}

func (s *SheetService) orderStatusChanged(ctx context.Context, row int, status string) error {
	if status != s.opts.CompleteStatus {
		return nil
	}

	order, err := s.store.GetOrder(ctx, row)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	log := s.logger.With().Int("row", row).Str("product", order.Product).Logger()
	if s.opts.GuardOrderRedebit && order.Debited {
		log.Info().Msg("order already debited, skipped")
		return nil
	}

	sold, ok := rules.ParseQuantity(order.QuantitySold)
	if !ok {
		log.Debug().Str("quantity_sold", order.QuantitySold).Msg("quantity sold is not a number, debit skipped")
		return nil
	}

	adj, err := s.ledger.Debit(ctx, order.Product, sold, Source{Kind: messaging.StockSourceOrder, Row: row})
	if err != nil || adj == nil {
		return err
	}
	return s.store.MarkOrderDebited(ctx, row, true)
}

func (s *SheetService) batchHistory(ctx context.Context) ([]rules.BatchHistoryEntry, error) {
	rows, err := s.store.ListProduction(ctx)
	if err != nil {
		return nil, fmt.Errorf("list production: %w", err)
	}
	history := make([]rules.BatchHistoryEntry, 0, len(rows))
	for _, r := range rows {
		history = append(history, r.History())
	}
	return history, nil
}
