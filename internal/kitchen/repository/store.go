package repository

import (
	"context"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/rules"
	"github.com/shopspring/decimal"
)

// MaxSlots is the largest number of distribution-channel slots a
// production row can carry.
const MaxSlots = 2

// ProductionRecord is one row of the production sheet
type ProductionRecord struct {
	Row          int        `db:"row_num" json:"row"`
	Date         *time.Time `db:"made_on" json:"date,omitempty"`
	Product      string     `db:"product" json:"product"`
	QuantityMade string     `db:"quantity_made" json:"quantity_made"`
	Selection1   string     `db:"channel_1" json:"selection_1"`
	Selection2   string     `db:"channel_2" json:"selection_2,omitempty"`
	BatchCode    string     `db:"batch_code" json:"batch_code,omitempty"`
}

// Selection returns the drop-down value of a 1-based slot.
func (p *ProductionRecord) Selection(slot int) string {
	switch slot {
	case 1:
		return p.Selection1
	case 2:
		return p.Selection2
	default:
		return ""
	}
}

// History converts the record into what batch numbering needs.
func (p *ProductionRecord) History() rules.BatchHistoryEntry {
	return rules.BatchHistoryEntry{
		Row:       p.Row,
		Product:   p.Product,
		Selection: p.Selection1,
		Date:      p.Date,
		Code:      p.BatchCode,
	}
}

// InventoryEntry is one row of the inventory sheet. Quantity is kept as the
// raw cell text.
type InventoryEntry struct {
	Row        int    `db:"row_num" json:"row"`
	Product    string `db:"product" json:"product"`
	Quantity   string `db:"quantity" json:"quantity"`
	Background string `db:"background" json:"background,omitempty"`
	FontColor  string `db:"font_color" json:"font_color,omitempty"`
}

// Style returns the styling currently on the quantity cell.
func (e *InventoryEntry) Style() rules.Style {
	return rules.Style{Background: e.Background, FontColor: e.FontColor}
}

// ParLevelEntry is one row of the par-level sheet
type ParLevelEntry struct {
	Row         int    `db:"row_num" json:"row"`
	Product     string `db:"product" json:"product"`
	ParQuantity string `db:"par_quantity" json:"par_quantity"`
}

// OrderRecord is one row of the orders sheet
type OrderRecord struct {
	Row          int        `db:"row_num" json:"row"`
	Product      string     `db:"product" json:"product"`
	OrderDate    *time.Time `db:"ordered_on" json:"order_date,omitempty"`
	QuantitySold string     `db:"quantity_sold" json:"quantity_sold"`
	BatchCode    string     `db:"batch_code" json:"batch_code,omitempty"`
	Status       string     `db:"status" json:"status"`
	Debited      bool       `db:"debited" json:"debited"`
}

// ProductionTable reads and writes the production sheet
type ProductionTable interface {
	GetProduction(ctx context.Context, row int) (*ProductionRecord, error)
	ListProduction(ctx context.Context) ([]*ProductionRecord, error)
	StampProductionDate(ctx context.Context, row int, at time.Time) error
	SetSelection(ctx context.Context, row, slot int, value string) error
	SetSelectionOptions(ctx context.Context, row, slot int, options []string) error
	SetBatchCode(ctx context.Context, row int, code string) error
}

// InventoryTable reads and writes the inventory sheet
type InventoryTable interface {
	GetInventory(ctx context.Context, row int) (*InventoryEntry, error)
	FindInventory(ctx context.Context, product string) (*InventoryEntry, error)
	ListInventory(ctx context.Context) ([]*InventoryEntry, error)
	SetInventoryQuantity(ctx context.Context, row int, quantity decimal.Decimal) error
	AppendInventory(ctx context.Context, product string, quantity decimal.Decimal) (*InventoryEntry, error)
	SetInventoryStyle(ctx context.Context, row int, style rules.Style) error
}

// ParLevelTable reads the par-level sheet
type ParLevelTable interface {
	FindParLevel(ctx context.Context, product string) (*ParLevelEntry, error)
}

// ChannelTable reads the distribution-channel reference sheet
type ChannelTable interface {
	ListChannels(ctx context.Context) ([]rules.ChannelEntry, error)
}

// OrderTable reads and writes the orders sheet
type OrderTable interface {
	GetOrder(ctx context.Context, row int) (*OrderRecord, error)
	StampOrderDate(ctx context.Context, row int, at time.Time) error
	SetOrderBatchCode(ctx context.Context, row int, code string) error
	SetOrderBatchOptions(ctx context.Context, row int, options []string) error
	MarkOrderDebited(ctx context.Context, row int, debited bool) error
}

// CellWriter mirrors a raw host edit into the store.
type CellWriter interface {
	SetCell(ctx context.Context, table Table, row int, field Field, value string) error
}

// Store is the whole tabular store the kitchen rules run against.
// Lookups of rows that do not exist return errors.NotFound.
type Store interface {
	ProductionTable
	InventoryTable
	ParLevelTable
	ChannelTable
	OrderTable
	CellWriter
}

// Flusher is implemented by stores that buffer writes, such as a workbook
// that must be saved after each event.
type Flusher interface {
	Flush(ctx context.Context) error
}

// HealthChecker is implemented by stores backed by a remote resource.
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}
