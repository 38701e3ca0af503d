package repository

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/rules"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// stateSheet is a hidden sheet holding per-order flags the visible sheets
// have no column for. Column A of row r is set once order row r is debited.
const stateSheet = "_kitchen_state"

// dateTimeNumFmt is the built-in "m/d/yy h:mm" format.
const dateTimeNumFmt = 22

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var headers = map[Field]string{
	FieldDate:         "Date",
	FieldProduct:      "Product",
	FieldQuantity:     "Quantity",
	FieldSelection1:   "Channel",
	FieldSelection2:   "Channel 2",
	FieldBatchCode:    "Batch Code",
	FieldParQuantity:  "Par",
	FieldChannelID:    "Channel ID",
	FieldDoseCode:     "Dose Code",
	FieldOrderDate:    "Date",
	FieldQuantitySold: "Qty Sold",
	FieldStatus:       "Status",
}

var numericFields = map[Field]bool{
	FieldQuantity:     true,
	FieldQuantitySold: true,
	FieldParQuantity:  true,
}

// WorkbookStore keeps the kitchen tables in an .xlsx file laid out like the
// host workbook. Writes are buffered until Flush.
type WorkbookStore struct {
	mu     sync.Mutex
	f      *excelize.File
	path   string
	layout Layout
	loc    *time.Location

	styles      map[rules.Style]int
	styleByID   map[int]rules.Style
	dateStyleID int
	dirty       bool
}

// OpenWorkbook opens the workbook at path, creating it with header rows if
// it does not exist. Missing sheets are added.
func OpenWorkbook(path string, layout Layout, loc *time.Location) (*WorkbookStore, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	var (
		f       *excelize.File
		err     error
		created bool
	)
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
	} else if os.IsNotExist(statErr) {
		f = excelize.NewFile()
		created = true
	} else {
		return nil, statErr
	}

	w := &WorkbookStore{
		f:         f,
		path:      path,
		layout:    layout,
		loc:       loc,
		styles:    make(map[rules.Style]int),
		styleByID: make(map[int]rules.Style),
	}

	w.dateStyleID, err = f.NewStyle(&excelize.Style{NumFmt: dateTimeNumFmt})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := w.ensureSheets(); err != nil {
		f.Close()
		return nil, err
	}
	if created {
		f.DeleteSheet("Sheet1")
		w.dirty = true
	}
	return w, nil
}

func (w *WorkbookStore) ensureSheets() error {
	bold, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for _, t := range []Table{TableProduction, TableInventory, TableParLevels, TableChannels, TableOrders} {
		sheet := w.layout.SheetName(t)
		idx, err := w.f.GetSheetIndex(sheet)
		if err != nil {
			return err
		}
		if idx >= 0 {
			continue
		}
		if _, err := w.f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", sheet, err)
		}
		for field, col := range w.layout.Columns[t] {
			cell, _ := excelize.CoordinatesToCellName(col, 1)
			w.f.SetCellValue(sheet, cell, headers[field])
			w.f.SetCellStyle(sheet, cell, cell, bold)
		}
		w.dirty = true
	}

	idx, err := w.f.GetSheetIndex(stateSheet)
	if err != nil {
		return err
	}
	if idx < 0 {
		if _, err := w.f.NewSheet(stateSheet); err != nil {
			return err
		}
		w.f.SetCellValue(stateSheet, "A1", "Debited")
		w.dirty = true
	}
	return w.f.SetSheetVisible(stateSheet, false)
}

// Flush saves the workbook if anything changed since the last save.
func (w *WorkbookStore) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirty {
		return nil
	}
	if err := w.f.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	w.dirty = false
	return nil
}

// Close releases the underlying file without saving.
func (w *WorkbookStore) Close() error {
	return w.f.Close()
}

// Health reports whether the workbook path is still reachable.
func (w *WorkbookStore) Health(ctx context.Context) map[string]string {
	status := map[string]string{"status": "up", "path": w.path}
	w.mu.Lock()
	dirty := w.dirty
	w.mu.Unlock()
	if _, err := os.Stat(w.path); err != nil && !dirty {
		status["status"] = "down"
		status["error"] = err.Error()
	}
	return status
}

// Production

func (w *WorkbookStore) GetProduction(ctx context.Context, row int) (*ProductionRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, err := w.readProduction(row)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.RowNotFound(string(TableProduction), row)
	}
	return rec, nil
}

func (w *WorkbookStore) ListProduction(ctx context.Context) ([]*ProductionRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, err := w.lastRow(TableProduction)
	if err != nil {
		return nil, err
	}
	var out []*ProductionRecord
	for row := firstDataRow; row <= last; row++ {
		rec, err := w.readProduction(row)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (w *WorkbookStore) readProduction(row int) (*ProductionRecord, error) {
	vals, err := w.readRow(TableProduction, row)
	if err != nil || vals == nil {
		return nil, err
	}
	return &ProductionRecord{
		Row:          row,
		Date:         w.parseDate(vals[FieldDate]),
		Product:      vals[FieldProduct],
		QuantityMade: vals[FieldQuantity],
		Selection1:   vals[FieldSelection1],
		Selection2:   vals[FieldSelection2],
		BatchCode:    vals[FieldBatchCode],
	}, nil
}

func (w *WorkbookStore) StampProductionDate(ctx context.Context, row int, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeDate(TableProduction, FieldDate, row, at)
}

func (w *WorkbookStore) SetSelection(ctx context.Context, row, slot int, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeString(TableProduction, SelectionField(slot), row, value)
}

// SetSelectionOptions replaces the drop-down on a slot cell. An empty list
// removes it.
func (w *WorkbookStore) SetSelectionOptions(ctx context.Context, row, slot int, options []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.setDropList(TableProduction, SelectionField(slot), row, options)
}

func (w *WorkbookStore) SetBatchCode(ctx context.Context, row int, code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeString(TableProduction, FieldBatchCode, row, code)
}

// Inventory

func (w *WorkbookStore) GetInventory(ctx context.Context, row int) (*InventoryEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, err := w.readInventory(row)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errors.RowNotFound(string(TableInventory), row)
	}
	return entry, nil
}

func (w *WorkbookStore) FindInventory(ctx context.Context, product string) (*InventoryEntry, error) {
	entries, err := w.ListInventory(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Product == product {
			return e, nil
		}
	}
	return nil, errors.NotFound("inventory entry")
}

func (w *WorkbookStore) ListInventory(ctx context.Context) ([]*InventoryEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, err := w.lastRow(TableInventory)
	if err != nil {
		return nil, err
	}
	var out []*InventoryEntry
	for row := firstDataRow; row <= last; row++ {
		entry, err := w.readInventory(row)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (w *WorkbookStore) readInventory(row int) (*InventoryEntry, error) {
	vals, err := w.readRow(TableInventory, row)
	if err != nil || vals == nil {
		return nil, err
	}
	entry := &InventoryEntry{
		Row:      row,
		Product:  vals[FieldProduct],
		Quantity: vals[FieldQuantity],
	}
	cell, err := w.cell(TableInventory, FieldQuantity, row)
	if err != nil {
		return nil, err
	}
	if id, err := w.f.GetCellStyle(w.layout.SheetName(TableInventory), cell); err == nil {
		style := w.styleOf(id)
		entry.Background = style.Background
		entry.FontColor = style.FontColor
	}
	return entry, nil
}

// styleOf maps a cell style id back to a stock style. Ids written by an
// earlier session are decoded from the workbook and cached.
func (w *WorkbookStore) styleOf(id int) rules.Style {
	if style, ok := w.styleByID[id]; ok {
		return style
	}
	if id == 0 || id == w.dateStyleID {
		return rules.Style{}
	}
	xs, err := w.f.GetStyle(id)
	if err != nil || xs == nil {
		return rules.Style{}
	}
	var style rules.Style
	if xs.Fill.Type == "pattern" && len(xs.Fill.Color) > 0 {
		style.Background = hexColor(xs.Fill.Color[0])
	}
	if xs.Font != nil {
		style.FontColor = hexColor(xs.Font.Color)
	}
	w.styleByID[id] = style
	if _, ok := w.styles[style]; !ok && !style.IsZero() {
		w.styles[style] = id
	}
	return style
}

func hexColor(rgb string) string {
	if rgb == "" {
		return ""
	}
	return "#" + strings.ToUpper(strings.TrimPrefix(rgb, "#"))
}

func (w *WorkbookStore) SetInventoryQuantity(ctx context.Context, row int, quantity decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, err := w.readInventory(row)
	if err != nil {
		return err
	}
	if entry == nil {
		return errors.RowNotFound(string(TableInventory), row)
	}
	return w.writeNumber(TableInventory, FieldQuantity, row, quantity)
}

func (w *WorkbookStore) AppendInventory(ctx context.Context, product string, quantity decimal.Decimal) (*InventoryEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, err := w.lastRow(TableInventory)
	if err != nil {
		return nil, err
	}
	row := last + 1
	if row < firstDataRow {
		row = firstDataRow
	}
	if err := w.writeString(TableInventory, FieldProduct, row, product); err != nil {
		return nil, err
	}
	if err := w.writeNumber(TableInventory, FieldQuantity, row, quantity); err != nil {
		return nil, err
	}
	return &InventoryEntry{Row: row, Product: product, Quantity: quantity.String()}, nil
}

func (w *WorkbookStore) SetInventoryStyle(ctx context.Context, row int, style rules.Style) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cell, err := w.cell(TableInventory, FieldQuantity, row)
	if err != nil {
		return err
	}
	id, err := w.styleID(style)
	if err != nil {
		return err
	}
	w.dirty = true
	return w.f.SetCellStyle(w.layout.SheetName(TableInventory), cell, cell, id)
}

func (w *WorkbookStore) styleID(style rules.Style) (int, error) {
	if id, ok := w.styles[style]; ok {
		return id, nil
	}
	s := &excelize.Style{}
	if style.Background != "" {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{style.Background}}
	}
	if style.FontColor != "" {
		s.Font = &excelize.Font{Color: style.FontColor}
	}
	id, err := w.f.NewStyle(s)
	if err != nil {
		return 0, fmt.Errorf("failed to create style: %w", err)
	}
	w.styles[style] = id
	w.styleByID[id] = style
	return id, nil
}

// Par levels and channels

func (w *WorkbookStore) FindParLevel(ctx context.Context, product string) (*ParLevelEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, err := w.lastRow(TableParLevels)
	if err != nil {
		return nil, err
	}
	for row := firstDataRow; row <= last; row++ {
		vals, err := w.readRow(TableParLevels, row)
		if err != nil {
			return nil, err
		}
		if vals != nil && vals[FieldProduct] == product {
			return &ParLevelEntry{Row: row, Product: product, ParQuantity: vals[FieldParQuantity]}, nil
		}
	}
	return nil, errors.NotFound("par level")
}

func (w *WorkbookStore) ListChannels(ctx context.Context) ([]rules.ChannelEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, err := w.lastRow(TableChannels)
	if err != nil {
		return nil, err
	}
	var out []rules.ChannelEntry
	for row := firstDataRow; row <= last; row++ {
		vals, err := w.readRow(TableChannels, row)
		if err != nil {
			return nil, err
		}
		if vals == nil {
			continue
		}
		out = append(out, rules.ChannelEntry{ChannelID: vals[FieldChannelID], DoseCode: vals[FieldDoseCode]})
	}
	return out, nil
}

// Orders

func (w *WorkbookStore) GetOrder(ctx context.Context, row int) (*OrderRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	vals, err := w.readRow(TableOrders, row)
	if err != nil {
		return nil, err
	}
	if vals == nil {
		return nil, errors.RowNotFound(string(TableOrders), row)
	}
	flag, err := w.f.GetCellValue(stateSheet, fmt.Sprintf("A%d", row))
	if err != nil {
		return nil, err
	}
	return &OrderRecord{
		Row:          row,
		Product:      vals[FieldProduct],
		OrderDate:    w.parseDate(vals[FieldOrderDate]),
		QuantitySold: vals[FieldQuantitySold],
		BatchCode:    vals[FieldBatchCode],
		Status:       vals[FieldStatus],
		Debited:      flag != "",
	}, nil
}

func (w *WorkbookStore) StampOrderDate(ctx context.Context, row int, at time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeDate(TableOrders, FieldOrderDate, row, at)
}

func (w *WorkbookStore) SetOrderBatchCode(ctx context.Context, row int, code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeString(TableOrders, FieldBatchCode, row, code)
}

func (w *WorkbookStore) SetOrderBatchOptions(ctx context.Context, row int, options []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.setDropList(TableOrders, FieldBatchCode, row, options)
}

func (w *WorkbookStore) MarkOrderDebited(ctx context.Context, row int, debited bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	value := ""
	if debited {
		value = "TRUE"
	}
	w.dirty = true
	return w.f.SetCellValue(stateSheet, fmt.Sprintf("A%d", row), value)
}

// SetCell mirrors a raw host edit. Fields a table does not carry are ignored.
func (w *WorkbookStore) SetCell(ctx context.Context, table Table, row int, field Field, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.layout.Columns[table]; !ok {
		return errors.BadRequest("unknown table " + string(table))
	}
	if _, ok := w.layout.Column(table, field); !ok {
		return nil
	}

	switch {
	case field == FieldDate || field == FieldOrderDate:
		if t := ParseCellDate(value, w.loc); t != nil {
			return w.writeDate(table, field, row, *t)
		}
	case numericFields[field]:
		if q, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return w.writeNumber(table, field, row, q)
		}
	}
	return w.writeString(table, field, row, value)
}

// Cell helpers

func (w *WorkbookStore) cell(t Table, f Field, row int) (string, error) {
	col, ok := w.layout.Column(t, f)
	if !ok {
		return "", errors.BadRequest(fmt.Sprintf("%s has no %s column", t, f))
	}
	return excelize.CoordinatesToCellName(col, row)
}

// readRow returns the raw values of a row keyed by field, or nil when every
// mapped cell is empty.
func (w *WorkbookStore) readRow(t Table, row int) (map[Field]string, error) {
	sheet := w.layout.SheetName(t)
	vals := make(map[Field]string, len(w.layout.Columns[t]))
	empty := true
	for f, col := range w.layout.Columns[t] {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return nil, err
		}
		v, err := w.f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		if v != "" {
			empty = false
		}
		vals[f] = v
	}
	if empty {
		return nil, nil
	}
	return vals, nil
}

func (w *WorkbookStore) lastRow(t Table) (int, error) {
	rows, err := w.f.GetRows(w.layout.SheetName(t))
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (w *WorkbookStore) writeString(t Table, f Field, row int, value string) error {
	cell, err := w.cell(t, f, row)
	if err != nil {
		return err
	}
	w.dirty = true
	return w.f.SetCellValue(w.layout.SheetName(t), cell, value)
}

func (w *WorkbookStore) writeNumber(t Table, f Field, row int, value decimal.Decimal) error {
	cell, err := w.cell(t, f, row)
	if err != nil {
		return err
	}
	w.dirty = true
	sheet := w.layout.SheetName(t)
	if value.Equal(value.Truncate(0)) && value.BigInt().IsInt64() {
		return w.f.SetCellValue(sheet, cell, value.IntPart())
	}
	return w.f.SetCellFloat(sheet, cell, value.InexactFloat64(), -1, 64)
}

// writeDate stores the wall-clock time in the store zone as a serial with a
// date-time format, the way a spreadsheet keeps dates.
func (w *WorkbookStore) writeDate(t Table, f Field, row int, at time.Time) error {
	cell, err := w.cell(t, f, row)
	if err != nil {
		return err
	}
	sheet := w.layout.SheetName(t)
	w.dirty = true
	if err := w.f.SetCellFloat(sheet, cell, toSerial(at, w.loc), -1, 64); err != nil {
		return err
	}
	return w.f.SetCellStyle(sheet, cell, cell, w.dateStyleID)
}

func (w *WorkbookStore) parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if serial <= 0 {
			return nil
		}
		t := fromSerial(serial, w.loc)
		return &t
	}
	return ParseCellDate(raw, w.loc)
}

func (w *WorkbookStore) setDropList(t Table, f Field, row int, options []string) error {
	cell, err := w.cell(t, f, row)
	if err != nil {
		return err
	}
	sheet := w.layout.SheetName(t)
	w.dirty = true
	if err := w.f.DeleteDataValidation(sheet, cell); err != nil {
		return err
	}
	if len(options) == 0 {
		return nil
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = cell
	if err := dv.SetDropList(options); err != nil {
		return fmt.Errorf("failed to build drop-down for %s: %w", cell, err)
	}
	return w.f.AddDataValidation(sheet, dv)
}

func toSerial(at time.Time, loc *time.Location) float64 {
	l := at.In(loc)
	wall := time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), l.Nanosecond(), time.UTC)
	return wall.Sub(excelEpoch).Hours() / 24
}

func fromSerial(serial float64, loc *time.Location) time.Time {
	days := math.Floor(serial)
	// Round to the millisecond to undo float drift.
	ms := math.Round((serial - days) * 24 * 60 * 60 * 1000)
	wall := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), loc)
}
