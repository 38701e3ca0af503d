package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/rules"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/database"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the kitchen schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *database.DB) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, name := range files {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

type pgTable struct {
	name  string
	touch bool
}

var pgTables = map[Table]pgTable{
	TableProduction: {"kitchen_production", true},
	TableInventory:  {"kitchen_inventory", true},
	TableParLevels:  {"kitchen_par_levels", false},
	TableChannels:   {"kitchen_channels", false},
	TableOrders:     {"kitchen_orders", true},
}

// pgColumns whitelists the columns a host edit may write.
var pgColumns = map[Table]map[Field]string{
	TableProduction: {
		FieldDate:       "made_on",
		FieldProduct:    "product",
		FieldQuantity:   "quantity_made",
		FieldSelection1: "channel_1",
		FieldSelection2: "channel_2",
		FieldBatchCode:  "batch_code",
	},
	TableInventory: {
		FieldProduct:  "product",
		FieldQuantity: "quantity",
	},
	TableParLevels: {
		FieldProduct:     "product",
		FieldParQuantity: "par_quantity",
	},
	TableChannels: {
		FieldChannelID: "channel_id",
		FieldDoseCode:  "dose_code",
	},
	TableOrders: {
		FieldProduct:      "product",
		FieldOrderDate:    "ordered_on",
		FieldQuantitySold: "quantity_sold",
		FieldBatchCode:    "batch_code",
		FieldStatus:       "status",
	},
}

var dateColumns = map[string]bool{"made_on": true, "ordered_on": true}

// PostgresStore keeps the kitchen tables in PostgreSQL.
type PostgresStore struct {
	db  *database.DB
	loc *time.Location
}

// NewPostgresStore creates a store on db. Dates typed into cells are read in loc.
func NewPostgresStore(db *database.DB, loc *time.Location) *PostgresStore {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresStore{db: db, loc: loc}
}

// Health reports database reachability.
func (s *PostgresStore) Health(ctx context.Context) map[string]string {
	return s.db.Health(ctx)
}

// Production

const productionColumns = `row_num, made_on, product, quantity_made, channel_1, channel_2, batch_code`

func (s *PostgresStore) GetProduction(ctx context.Context, row int) (*ProductionRecord, error) {
	var rec ProductionRecord
	query := `SELECT ` + productionColumns + ` FROM kitchen_production WHERE row_num = $1`
	err := s.db.GetContext(ctx, &rec, query, row)
	if err == sql.ErrNoRows {
		return nil, errors.RowNotFound(string(TableProduction), row)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListProduction(ctx context.Context) ([]*ProductionRecord, error) {
	var recs []*ProductionRecord
	query := `SELECT ` + productionColumns + ` FROM kitchen_production ORDER BY row_num`
	if err := s.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, mapErr(err)
	}
	return recs, nil
}

func (s *PostgresStore) StampProductionDate(ctx context.Context, row int, at time.Time) error {
	return s.upsert(ctx, TableProduction, row, "made_on", at)
}

func (s *PostgresStore) SetSelection(ctx context.Context, row, slot int, value string) error {
	col, err := selectionColumn(slot, "")
	if err != nil {
		return err
	}
	return s.upsert(ctx, TableProduction, row, col, value)
}

func (s *PostgresStore) SetSelectionOptions(ctx context.Context, row, slot int, options []string) error {
	col, err := selectionColumn(slot, "_options")
	if err != nil {
		return err
	}
	return s.upsert(ctx, TableProduction, row, col, pq.Array(nonNil(options)))
}

// SelectionOptions returns the drop-down list stored for a slot.
func (s *PostgresStore) SelectionOptions(ctx context.Context, row, slot int) ([]string, error) {
	col, err := selectionColumn(slot, "_options")
	if err != nil {
		return nil, err
	}
	var options pq.StringArray
	query := fmt.Sprintf(`SELECT %s FROM kitchen_production WHERE row_num = $1`, col)
	err = s.db.QueryRowxContext(ctx, query, row).Scan(&options)
	if err == sql.ErrNoRows {
		return nil, errors.RowNotFound(string(TableProduction), row)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return []string(options), nil
}

func (s *PostgresStore) SetBatchCode(ctx context.Context, row int, code string) error {
	return s.upsert(ctx, TableProduction, row, "batch_code", code)
}

// Inventory

const inventoryColumns = `row_num, product, quantity, background, font_color`

func (s *PostgresStore) GetInventory(ctx context.Context, row int) (*InventoryEntry, error) {
	var entry InventoryEntry
	query := `SELECT ` + inventoryColumns + ` FROM kitchen_inventory WHERE row_num = $1`
	err := s.db.GetContext(ctx, &entry, query, row)
	if err == sql.ErrNoRows {
		return nil, errors.RowNotFound(string(TableInventory), row)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &entry, nil
}

// FindInventory returns the first row whose product matches exactly.
func (s *PostgresStore) FindInventory(ctx context.Context, product string) (*InventoryEntry, error) {
	var entry InventoryEntry
	query := `SELECT ` + inventoryColumns + ` FROM kitchen_inventory WHERE product = $1 ORDER BY row_num LIMIT 1`
	err := s.db.GetContext(ctx, &entry, query, product)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("inventory entry")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &entry, nil
}

func (s *PostgresStore) ListInventory(ctx context.Context) ([]*InventoryEntry, error) {
	var entries []*InventoryEntry
	query := `SELECT ` + inventoryColumns + ` FROM kitchen_inventory ORDER BY row_num`
	if err := s.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, mapErr(err)
	}
	return entries, nil
}

func (s *PostgresStore) SetInventoryQuantity(ctx context.Context, row int, quantity decimal.Decimal) error {
	query := `UPDATE kitchen_inventory SET quantity = $2, updated_at = NOW() WHERE row_num = $1`
	return s.update(ctx, TableInventory, row, query, row, quantity.String())
}

// AppendInventory adds a row below the last one. The table is locked so
// concurrent appends cannot take the same row.
func (s *PostgresStore) AppendInventory(ctx context.Context, product string, quantity decimal.Decimal) (*InventoryEntry, error) {
	var entry InventoryEntry
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `LOCK TABLE kitchen_inventory IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}
		query := `
			INSERT INTO kitchen_inventory (row_num, product, quantity)
			SELECT GREATEST(COALESCE(MAX(row_num), 1) + 1, 2), $1, $2 FROM kitchen_inventory
			RETURNING ` + inventoryColumns
		return tx.GetContext(ctx, &entry, query, product, quantity.String())
	})
	if err != nil {
		return nil, mapErr(err)
	}
	return &entry, nil
}

func (s *PostgresStore) SetInventoryStyle(ctx context.Context, row int, style rules.Style) error {
	query := `UPDATE kitchen_inventory SET background = $2, font_color = $3, updated_at = NOW() WHERE row_num = $1`
	return s.update(ctx, TableInventory, row, query, row, style.Background, style.FontColor)
}

// Par levels and channels

func (s *PostgresStore) FindParLevel(ctx context.Context, product string) (*ParLevelEntry, error) {
	var entry ParLevelEntry
	query := `SELECT row_num, product, par_quantity FROM kitchen_par_levels WHERE product = $1 ORDER BY row_num LIMIT 1`
	err := s.db.GetContext(ctx, &entry, query, product)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("par level")
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &entry, nil
}

func (s *PostgresStore) ListChannels(ctx context.Context) ([]rules.ChannelEntry, error) {
	var entries []rules.ChannelEntry
	query := `SELECT channel_id, dose_code FROM kitchen_channels ORDER BY row_num`
	if err := s.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, mapErr(err)
	}
	return entries, nil
}

// Orders

func (s *PostgresStore) GetOrder(ctx context.Context, row int) (*OrderRecord, error) {
	var rec OrderRecord
	query := `
		SELECT row_num, product, ordered_on, quantity_sold, batch_code, status, debited
		FROM kitchen_orders WHERE row_num = $1
	`
	err := s.db.GetContext(ctx, &rec, query, row)
	if err == sql.ErrNoRows {
		return nil, errors.RowNotFound(string(TableOrders), row)
	}
	if err != nil {
		return nil, mapErr(err)
	}
	return &rec, nil
}

func (s *PostgresStore) StampOrderDate(ctx context.Context, row int, at time.Time) error {
	return s.upsert(ctx, TableOrders, row, "ordered_on", at)
}

func (s *PostgresStore) SetOrderBatchCode(ctx context.Context, row int, code string) error {
	return s.upsert(ctx, TableOrders, row, "batch_code", code)
}

func (s *PostgresStore) SetOrderBatchOptions(ctx context.Context, row int, options []string) error {
	return s.upsert(ctx, TableOrders, row, "batch_options", pq.Array(nonNil(options)))
}

func (s *PostgresStore) MarkOrderDebited(ctx context.Context, row int, debited bool) error {
	return s.upsert(ctx, TableOrders, row, "debited", debited)
}

// SetCell mirrors a raw host edit. Fields a table does not carry are ignored.
func (s *PostgresStore) SetCell(ctx context.Context, table Table, row int, field Field, value string) error {
	cols, ok := pgColumns[table]
	if !ok {
		return errors.BadRequest("unknown table " + string(table))
	}
	col, ok := cols[field]
	if !ok {
		return nil
	}

	var arg any = value
	if dateColumns[col] {
		if t := ParseCellDate(value, s.loc); t != nil {
			arg = *t
		} else {
			arg = nil
		}
	}
	return s.upsert(ctx, table, row, col, arg)
}

// upsert writes one column of a row, creating the row if needed. col must
// come from a whitelist.
func (s *PostgresStore) upsert(ctx context.Context, table Table, row int, col string, value any) error {
	t := pgTables[table]
	set := fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	if t.touch {
		set += ", updated_at = NOW()"
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (row_num, %s) VALUES ($1, $2) ON CONFLICT (row_num) DO UPDATE SET %s`,
		t.name, col, set,
	)
	if _, err := s.db.ExecContext(ctx, query, row, value); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *PostgresStore) update(ctx context.Context, table Table, row int, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.RowNotFound(string(table), row)
	}
	return nil
}

func selectionColumn(slot int, suffix string) (string, error) {
	switch slot {
	case 1:
		return "channel_1" + suffix, nil
	case 2:
		return "channel_2" + suffix, nil
	default:
		return "", errors.BadRequest(fmt.Sprintf("channel slot %d out of range", slot))
	}
}

func nonNil(options []string) []string {
	if options == nil {
		return []string{}
	}
	return options
}

func mapErr(err error) error {
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}
