package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/rules"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/shopspring/decimal"
)

// firstDataRow is the first row below the header.
const firstDataRow = 2

// MemoryStore keeps every table in process memory.
type MemoryStore struct {
	mu sync.RWMutex

	loc *time.Location

	production       map[int]*ProductionRecord
	selectionOptions map[int]map[int][]string
	inventory        map[int]*InventoryEntry
	parLevels        map[int]*ParLevelEntry
	channels         map[int]rules.ChannelEntry
	orders           map[int]*OrderRecord
	orderOptions     map[int][]string
}

// NewMemoryStore creates an empty store. Dates typed into cells are read in loc.
func NewMemoryStore(loc *time.Location) *MemoryStore {
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryStore{
		loc:              loc,
		production:       make(map[int]*ProductionRecord),
		selectionOptions: make(map[int]map[int][]string),
		inventory:        make(map[int]*InventoryEntry),
		parLevels:        make(map[int]*ParLevelEntry),
		channels:         make(map[int]rules.ChannelEntry),
		orders:           make(map[int]*OrderRecord),
		orderOptions:     make(map[int][]string),
	}
}

// Seeding

func (s *MemoryStore) PutProduction(rec ProductionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.production[rec.Row] = &rec
}

func (s *MemoryStore) PutInventory(entry InventoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[entry.Row] = &entry
}

func (s *MemoryStore) PutParLevel(entry ParLevelEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parLevels[entry.Row] = &entry
}

// AddChannel appends a reference row below the existing ones.
func (s *MemoryStore) AddChannel(entry rules.ChannelEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[nextRow(len(s.channels), maxKey(s.channels))] = entry
}

func (s *MemoryStore) PutOrder(rec OrderRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[rec.Row] = &rec
}

// SelectionOptions returns the drop-down list currently set on a slot.
func (s *MemoryStore) SelectionOptions(row, slot int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectionOptions[row][slot]
}

// OrderBatchOptions returns the drop-down list currently set on an order row.
func (s *MemoryStore) OrderBatchOptions(row int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderOptions[row]
}

// Production

func (s *MemoryStore) GetProduction(ctx context.Context, row int) (*ProductionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.production[row]
	if !ok {
		return nil, errors.RowNotFound(string(TableProduction), row)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListProduction(ctx context.Context) ([]*ProductionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ProductionRecord, 0, len(s.production))
	for _, row := range sortedKeys(s.production) {
		cp := *s.production[row]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) StampProductionDate(ctx context.Context, row int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.productionRow(row)
	rec.Date = &at
	return nil
}

func (s *MemoryStore) SetSelection(ctx context.Context, row, slot int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.productionRow(row)
	switch slot {
	case 1:
		rec.Selection1 = value
	case 2:
		rec.Selection2 = value
	}
	return nil
}

func (s *MemoryStore) SetSelectionOptions(ctx context.Context, row, slot int, options []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectionOptions[row] == nil {
		s.selectionOptions[row] = make(map[int][]string)
	}
	if len(options) == 0 {
		delete(s.selectionOptions[row], slot)
		return nil
	}
	s.selectionOptions[row][slot] = append([]string(nil), options...)
	return nil
}

func (s *MemoryStore) SetBatchCode(ctx context.Context, row int, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.productionRow(row).BatchCode = code
	return nil
}

func (s *MemoryStore) productionRow(row int) *ProductionRecord {
	rec, ok := s.production[row]
	if !ok {
		rec = &ProductionRecord{Row: row}
		s.production[row] = rec
	}
	return rec
}

// Inventory

func (s *MemoryStore) GetInventory(ctx context.Context, row int) (*InventoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.inventory[row]
	if !ok {
		return nil, errors.RowNotFound(string(TableInventory), row)
	}
	cp := *entry
	return &cp, nil
}

// FindInventory returns the first row whose product matches exactly.
func (s *MemoryStore) FindInventory(ctx context.Context, product string) (*InventoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range sortedKeys(s.inventory) {
		if e := s.inventory[row]; e.Product == product {
			cp := *e
			return &cp, nil
		}
	}
	return nil, errors.NotFound("inventory entry")
}

func (s *MemoryStore) ListInventory(ctx context.Context) ([]*InventoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*InventoryEntry, 0, len(s.inventory))
	for _, row := range sortedKeys(s.inventory) {
		cp := *s.inventory[row]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) SetInventoryQuantity(ctx context.Context, row int, quantity decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.inventory[row]
	if !ok {
		return errors.RowNotFound(string(TableInventory), row)
	}
	entry.Quantity = quantity.String()
	return nil
}

func (s *MemoryStore) AppendInventory(ctx context.Context, product string, quantity decimal.Decimal) (*InventoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := &InventoryEntry{
		Row:      nextRow(len(s.inventory), maxKey(s.inventory)),
		Product:  product,
		Quantity: quantity.String(),
	}
	s.inventory[entry.Row] = entry
	cp := *entry
	return &cp, nil
}

func (s *MemoryStore) SetInventoryStyle(ctx context.Context, row int, style rules.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.inventory[row]
	if !ok {
		return errors.RowNotFound(string(TableInventory), row)
	}
	entry.Background = style.Background
	entry.FontColor = style.FontColor
	return nil
}

// Par levels and channels

func (s *MemoryStore) FindParLevel(ctx context.Context, product string) (*ParLevelEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range sortedKeys(s.parLevels) {
		if e := s.parLevels[row]; e.Product == product {
			cp := *e
			return &cp, nil
		}
	}
	return nil, errors.NotFound("par level")
}

func (s *MemoryStore) ListChannels(ctx context.Context) ([]rules.ChannelEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]rules.ChannelEntry, 0, len(s.channels))
	for _, row := range sortedKeys(s.channels) {
		out = append(out, s.channels[row])
	}
	return out, nil
}

// Orders

func (s *MemoryStore) GetOrder(ctx context.Context, row int) (*OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.orders[row]
	if !ok {
		return nil, errors.RowNotFound(string(TableOrders), row)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) StampOrderDate(ctx context.Context, row int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderRow(row).OrderDate = &at
	return nil
}

func (s *MemoryStore) SetOrderBatchCode(ctx context.Context, row int, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderRow(row).BatchCode = code
	return nil
}

func (s *MemoryStore) SetOrderBatchOptions(ctx context.Context, row int, options []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(options) == 0 {
		delete(s.orderOptions, row)
		return nil
	}
	s.orderOptions[row] = append([]string(nil), options...)
	return nil
}

func (s *MemoryStore) MarkOrderDebited(ctx context.Context, row int, debited bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderRow(row).Debited = debited
	return nil
}

func (s *MemoryStore) orderRow(row int) *OrderRecord {
	rec, ok := s.orders[row]
	if !ok {
		rec = &OrderRecord{Row: row}
		s.orders[row] = rec
	}
	return rec
}

// SetCell mirrors a raw host edit. Fields a table does not carry are ignored.
func (s *MemoryStore) SetCell(ctx context.Context, table Table, row int, field Field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch table {
	case TableProduction:
		rec := s.productionRow(row)
		switch field {
		case FieldDate:
			rec.Date = ParseCellDate(value, s.loc)
		case FieldProduct:
			rec.Product = value
		case FieldQuantity:
			rec.QuantityMade = value
		case FieldSelection1:
			rec.Selection1 = value
		case FieldSelection2:
			rec.Selection2 = value
		case FieldBatchCode:
			rec.BatchCode = value
		}
	case TableInventory:
		entry, ok := s.inventory[row]
		if !ok {
			entry = &InventoryEntry{Row: row}
			s.inventory[row] = entry
		}
		switch field {
		case FieldProduct:
			entry.Product = value
		case FieldQuantity:
			entry.Quantity = value
		}
	case TableParLevels:
		entry, ok := s.parLevels[row]
		if !ok {
			entry = &ParLevelEntry{Row: row}
			s.parLevels[row] = entry
		}
		switch field {
		case FieldProduct:
			entry.Product = value
		case FieldParQuantity:
			entry.ParQuantity = value
		}
	case TableChannels:
		entry := s.channels[row]
		switch field {
		case FieldChannelID:
			entry.ChannelID = value
		case FieldDoseCode:
			entry.DoseCode = value
		}
		s.channels[row] = entry
	case TableOrders:
		rec := s.orderRow(row)
		switch field {
		case FieldProduct:
			rec.Product = value
		case FieldOrderDate:
			rec.OrderDate = ParseCellDate(value, s.loc)
		case FieldQuantitySold:
			rec.QuantitySold = value
		case FieldBatchCode:
			rec.BatchCode = value
		case FieldStatus:
			rec.Status = value
		}
	default:
		return errors.BadRequest("unknown table " + string(table))
	}
	return nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func maxKey[V any](m map[int]V) int {
	last := 0
	for k := range m {
		if k > last {
			last = k
		}
	}
	return last
}

func nextRow(n, last int) int {
	if n == 0 || last < firstDataRow {
		return firstDataRow
	}
	return last + 1
}
