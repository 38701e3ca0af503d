package service

import (
	"context"
	"fmt"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/rules"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
	"github.com/shopspring/decimal"
)

// LedgerStore is the part of the store the ledger touches
type LedgerStore interface {
	repository.InventoryTable
	repository.ParLevelTable
}

// Adjustment describes one applied delta
type Adjustment struct {
	Product        string               `json:"product"`
	Row            int                  `json:"row"`
	Delta          decimal.Decimal      `json:"delta"`
	Previous       decimal.Decimal      `json:"previous"`
	Quantity       decimal.Decimal      `json:"quantity"`
	Created        bool                 `json:"created"`
	Classification rules.Classification `json:"classification"`
}

// Source identifies the row that caused an adjustment
type Source struct {
	Kind string
	Row  int
}

// InventoryLedger keeps the running stock total per product and restyles
// the inventory row after every change.
type InventoryLedger struct {
	store     LedgerStore
	publisher Publisher
	logger    *logger.Logger
}

// NewInventoryLedger creates a ledger. A nil publisher drops events.
func NewInventoryLedger(store LedgerStore, publisher Publisher, log *logger.Logger) *InventoryLedger {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &InventoryLedger{
		store:     store,
		publisher: publisher,
		logger:    log.WithComponent("ledger"),
	}
}

// ApplyDelta adds delta to product's entry. Credits against an unknown
// product open a new entry; debits against one are dropped and return nil.
func (l *InventoryLedger) ApplyDelta(ctx context.Context, product string, delta decimal.Decimal, src Source) (*Adjustment, error) {
	return l.apply(ctx, product, delta, src, rules.CreatesEntry(delta))
}

// Debit subtracts quantity from an existing entry, floored at zero.
// It never opens an entry.
func (l *InventoryLedger) Debit(ctx context.Context, product string, quantity decimal.Decimal, src Source) (*Adjustment, error) {
	return l.apply(ctx, product, quantity.Neg(), src, false)
}

func (l *InventoryLedger) apply(ctx context.Context, product string, delta decimal.Decimal, src Source, create bool) (*Adjustment, error) {
	entry, err := l.store.FindInventory(ctx, product)
	if err != nil && !errors.IsNotFound(err) {
		return nil, fmt.Errorf("apply delta: find %q: %w", product, err)
	}

	adj := &Adjustment{Product: product, Delta: delta}

	if entry == nil {
		if !create {
			l.logger.Debug().Str("product", product).Str("delta", delta.String()).Msg("no inventory entry, delta dropped")
			return nil, nil
		}
		entry, err = l.store.AppendInventory(ctx, product, delta)
		if err != nil {
			return nil, fmt.Errorf("apply delta: append %q: %w", product, err)
		}
		adj.Created = true
		adj.Quantity = delta
	} else {
		// A non-numeric cell counts as empty stock.
		adj.Previous = rules.QuantityOrZero(entry.Quantity)
		adj.Quantity = rules.ApplyDelta(adj.Previous, delta)
		if err := l.store.SetInventoryQuantity(ctx, entry.Row, adj.Quantity); err != nil {
			return nil, fmt.Errorf("apply delta: update %q: %w", product, err)
		}
	}
	adj.Row = entry.Row

	l.logger.Info().
		Str("product", product).
		Int("row", adj.Row).
		Str("delta", delta.String()).
		Str("quantity", adj.Quantity.String()).
		Bool("created", adj.Created).
		Msg("inventory adjusted")

	l.publisher.PublishStockAdjusted(ctx, messaging.StockAdjustedEvent{
		Product:   product,
		Row:       adj.Row,
		Delta:     delta,
		Previous:  adj.Previous,
		Quantity:  adj.Quantity,
		Created:   adj.Created,
		Source:    src.Kind,
		SourceRow: src.Row,
	})

	adj.Classification, err = l.Restyle(ctx, adj.Row, product, adj.Quantity)
	return adj, err
}

// Restyle classifies quantity against product's par level and styles the
// inventory row. Without a usable par level the row is left as it is.
func (l *InventoryLedger) Restyle(ctx context.Context, row int, product string, quantity decimal.Decimal) (rules.Classification, error) {
	par, err := l.store.FindParLevel(ctx, product)
	if errors.IsNotFound(err) {
		return rules.Unstyled, nil
	}
	if err != nil {
		return rules.Unstyled, fmt.Errorf("restyle: par level %q: %w", product, err)
	}

	c := rules.ClassifyRaw(quantity, par.ParQuantity)
	if !c.Styled() {
		l.logger.Debug().Str("product", product).Str("par", par.ParQuantity).Msg("par level unusable, row left unstyled")
		return c, nil
	}

	if err := l.store.SetInventoryStyle(ctx, row, c.Style); err != nil {
		return c, fmt.Errorf("restyle: row %d: %w", row, err)
	}

	l.publisher.PublishStockClassified(ctx, messaging.StockClassifiedEvent{
		Product:    product,
		Row:        row,
		Quantity:   quantity,
		Par:        rules.QuantityOrZero(par.ParQuantity),
		Tier:       c.Tier.String(),
		Background: c.Style.Background,
		FontColor:  c.Style.FontColor,
	})
	return c, nil
}
