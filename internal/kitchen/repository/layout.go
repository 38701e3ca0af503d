package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/pkg/config"
)

// Table names a sheet in the host workbook
type Table string

const (
	TableProduction Table = "production"
	TableInventory  Table = "inventory"
	TableParLevels  Table = "par_levels"
	TableChannels   Table = "channels"
	TableOrders     Table = "orders"
)

// Field names a column within a table
type Field string

const (
	FieldDate         Field = "date"
	FieldProduct      Field = "product"
	FieldQuantity     Field = "quantity"
	FieldSelection1   Field = "selection_1"
	FieldSelection2   Field = "selection_2"
	FieldBatchCode    Field = "batch_code"
	FieldParQuantity  Field = "par_quantity"
	FieldChannelID    Field = "channel_id"
	FieldDoseCode     Field = "dose_code"
	FieldOrderDate    Field = "order_date"
	FieldQuantitySold Field = "quantity_sold"
	FieldStatus       Field = "status"
)

// SelectionField returns the field of a 1-based channel slot.
func SelectionField(slot int) Field {
	if slot == 2 {
		return FieldSelection2
	}
	return FieldSelection1
}

// Layout maps tables and fields onto host sheet names and 1-based columns.
type Layout struct {
	Slots  int
	Sheets map[Table]string
	// Columns holds the 1-based column of each field per table.
	Columns map[Table]map[Field]int
}

// DefaultLayout mirrors the kitchen workbook. With two slots the second
// channel drop-down sits in E and the batch code moves to F.
func DefaultLayout(slots int) Layout {
	if slots < 1 {
		slots = 1
	}
	if slots > MaxSlots {
		slots = MaxSlots
	}

	production := map[Field]int{
		FieldDate:       1,
		FieldProduct:    2,
		FieldQuantity:   3,
		FieldSelection1: 4,
		FieldBatchCode:  5,
	}
	if slots == 2 {
		production[FieldSelection2] = 5
		production[FieldBatchCode] = 6
	}

	return Layout{
		Slots: slots,
		Sheets: map[Table]string{
			TableProduction: "Kitchen Production",
			TableInventory:  "Current Inventory",
			TableParLevels:  "Par Level",
			TableChannels:   "DC-Cannabinoid",
			TableOrders:     "Orders & Retail",
		},
		Columns: map[Table]map[Field]int{
			TableProduction: production,
			TableInventory: {
				FieldProduct:  1,
				FieldQuantity: 2,
			},
			TableParLevels: {
				FieldProduct:     1,
				FieldParQuantity: 2,
			},
			TableChannels: {
				FieldChannelID: 2,
				FieldDoseCode:  3,
			},
			TableOrders: {
				FieldProduct:      2,
				FieldOrderDate:    3,
				FieldQuantitySold: 4,
				FieldBatchCode:    5,
				FieldStatus:       8,
			},
		},
	}
}

var allTables = []Table{TableProduction, TableInventory, TableParLevels, TableChannels, TableOrders}

// LayoutFromConfig starts from DefaultLayout and applies the sheet name and
// column overrides in cfg. Unknown tables or fields are rejected.
func LayoutFromConfig(cfg config.KitchenConfig) (Layout, error) {
	l := DefaultLayout(cfg.Slots)
	l.Slots = cfg.Slots

	for name, sheet := range cfg.Sheets {
		t, err := knownTable(name)
		if err != nil {
			return Layout{}, err
		}
		l.Sheets[t] = sheet
	}

	for name, cols := range cfg.Columns {
		t, err := knownTable(name)
		if err != nil {
			return Layout{}, err
		}
		for field, col := range cols {
			f := Field(strings.ToLower(field))
			if _, ok := l.Columns[t][f]; !ok {
				return Layout{}, fmt.Errorf("%s has no column %q", t, field)
			}
			l.Columns[t][f] = col
		}
	}

	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func knownTable(name string) (Table, error) {
	for _, t := range allTables {
		if string(t) == strings.ToLower(name) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown table %q", name)
}

// SheetName returns the host sheet name of a table.
func (l Layout) SheetName(t Table) string {
	return l.Sheets[t]
}

// TableFor resolves a host sheet name.
func (l Layout) TableFor(sheet string) (Table, bool) {
	for t, name := range l.Sheets {
		if name == sheet {
			return t, true
		}
	}
	return "", false
}

// Column returns the 1-based column of a field.
func (l Layout) Column(t Table, f Field) (int, bool) {
	col, ok := l.Columns[t][f]
	return col, ok
}

// FieldAt resolves a host cell position to a table field.
func (l Layout) FieldAt(sheet string, col int) (Table, Field, bool) {
	t, ok := l.TableFor(sheet)
	if !ok {
		return "", "", false
	}
	for f, c := range l.Columns[t] {
		if c == col {
			return t, f, true
		}
	}
	return t, "", false
}

// Validate checks that every sheet is named and no two fields share a column.
func (l Layout) Validate() error {
	if l.Slots < 1 || l.Slots > MaxSlots {
		return fmt.Errorf("slots must be 1 or %d, got %d", MaxSlots, l.Slots)
	}
	for _, t := range allTables {
		if strings.TrimSpace(l.Sheets[t]) == "" {
			return fmt.Errorf("sheet name for %s is empty", t)
		}
		seen := make(map[int]Field)
		for f, c := range l.Columns[t] {
			if c < 1 {
				return fmt.Errorf("%s.%s: column must be positive", t, f)
			}
			if other, dup := seen[c]; dup {
				return fmt.Errorf("%s: %s and %s share column %d", t, f, other, c)
			}
			seen[c] = f
		}
	}
	return nil
}

var cellDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// ParseCellDate reads a date typed into a cell. Values without a zone are
// taken as wall-clock time in loc. Anything else is not a date.
func ParseCellDate(value string, loc *time.Location) *time.Time {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range cellDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t
		}
	}
	return nil
}
