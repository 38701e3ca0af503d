package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/rules"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/database"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/errors"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/testutil"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*repository.PostgresStore, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })
	return repository.NewPostgresStore(database.Wrap(mockDB.DB, logger.Nop()), time.UTC), mockDB
}

func TestPostgresStore_GetProduction(t *testing.T) {
	store, mockDB := newMockStore(t)
	made := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	mockDB.Mock.ExpectQuery(`SELECT row_num, made_on, (.+) FROM kitchen_production WHERE row_num = \$1`).
		WithArgs(4).
		WillReturnRows(testutil.MockRows("row_num", "made_on", "product", "quantity_made", "channel_1", "channel_2", "batch_code").
			AddRow(4, made, "Gummies", "24", "Shop1-D9", "", ""))

	rec, err := store.GetProduction(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Gummies", rec.Product)
	assert.Equal(t, "Shop1-D9", rec.Selection1)
	require.NotNil(t, rec.Date)
	assert.True(t, made.Equal(*rec.Date))

	mockDB.ExpectationsWereMet(t)
}

func TestPostgresStore_GetProduction_NotFound(t *testing.T) {
	store, mockDB := newMockStore(t)

	mockDB.Mock.ExpectQuery(`FROM kitchen_production WHERE row_num = \$1`).
		WithArgs(9).
		WillReturnRows(testutil.MockRows("row_num"))

	_, err := store.GetProduction(context.Background(), 9)
	assert.True(t, errors.IsNotFound(err))

	mockDB.ExpectationsWereMet(t)
}

func TestPostgresStore_SetSelectionOptions(t *testing.T) {
	store, mockDB := newMockStore(t)

	mockDB.ExpectExec(`INSERT INTO kitchen_production (row_num, channel_2_options) VALUES ($1, $2) ON CONFLICT (row_num) DO UPDATE SET channel_2_options = EXCLUDED.channel_2_options, updated_at = NOW()`).
		WithArgs(3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SetSelectionOptions(context.Background(), 3, 2, []string{"Shop1-D9"})
	require.NoError(t, err)

	err = store.SetSelectionOptions(context.Background(), 3, 3, nil)
	assert.True(t, errors.Is(err, errors.ErrBadRequest))

	mockDB.ExpectationsWereMet(t)
}

func TestPostgresStore_SetInventoryQuantity_MissingRow(t *testing.T) {
	store, mockDB := newMockStore(t)

	mockDB.ExpectExec(`UPDATE kitchen_inventory SET quantity = $2, updated_at = NOW() WHERE row_num = $1`).
		WithArgs(7, "12.5").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SetInventoryQuantity(context.Background(), 7, decimal.RequireFromString("12.5"))
	assert.True(t, errors.IsNotFound(err))

	mockDB.ExpectationsWereMet(t)
}

func TestPostgresStore_AppendInventory(t *testing.T) {
	store, mockDB := newMockStore(t)

	mockDB.ExpectBegin()
	mockDB.ExpectExec(`LOCK TABLE kitchen_inventory IN SHARE ROW EXCLUSIVE MODE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.Mock.ExpectQuery(`INSERT INTO kitchen_inventory \(row_num, product, quantity\)`).
		WithArgs("Gummies", "24").
		WillReturnRows(testutil.MockRows("row_num", "product", "quantity", "background", "font_color").
			AddRow(6, "Gummies", "24", "", ""))
	mockDB.ExpectCommit()

	entry, err := store.AppendInventory(context.Background(), "Gummies", decimal.NewFromInt(24))
	require.NoError(t, err)
	assert.Equal(t, 6, entry.Row)

	mockDB.ExpectationsWereMet(t)
}

func TestPostgresStore_SetInventoryStyle(t *testing.T) {
	store, mockDB := newMockStore(t)

	mockDB.ExpectExec(`UPDATE kitchen_inventory SET background = $2, font_color = $3, updated_at = NOW() WHERE row_num = $1`).
		WithArgs(2, "#006400", rules.FontWhite).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SetInventoryStyle(context.Background(), 2, rules.Style{Background: "#006400", FontColor: rules.FontWhite})
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestPostgresStore_SetCell(t *testing.T) {
	store, mockDB := newMockStore(t)
	ctx := context.Background()

	mockDB.ExpectExec(`INSERT INTO kitchen_orders (row_num, ordered_on) VALUES ($1, $2)`).
		WithArgs(2, testutil.AnyTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec(`INSERT INTO kitchen_orders (row_num, ordered_on) VALUES ($1, $2)`).
		WithArgs(2, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec(`INSERT INTO kitchen_par_levels (row_num, par_quantity) VALUES ($1, $2) ON CONFLICT (row_num) DO UPDATE SET par_quantity = EXCLUDED.par_quantity`).
		WithArgs(3, "40").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SetCell(ctx, repository.TableOrders, 2, repository.FieldOrderDate, "2024-03-05"))
	require.NoError(t, store.SetCell(ctx, repository.TableOrders, 2, repository.FieldOrderDate, ""))
	require.NoError(t, store.SetCell(ctx, repository.TableParLevels, 3, repository.FieldParQuantity, "40"))

	// Fields the table does not carry are ignored.
	require.NoError(t, store.SetCell(ctx, repository.TableInventory, 3, repository.FieldStatus, "x"))

	mockDB.ExpectationsWereMet(t)
}

func TestPostgresStore_MapsConstraintErrors(t *testing.T) {
	store, mockDB := newMockStore(t)

	mockDB.Mock.ExpectExec(`INSERT INTO kitchen_orders`).
		WillReturnError(&pq.Error{Code: "23514", Constraint: "kitchen_orders_row_positive"})

	err := store.MarkOrderDebited(context.Background(), 1, true)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	mockDB.ExpectationsWereMet(t)
}

func TestPostgresStore_ListChannels(t *testing.T) {
	store, mockDB := newMockStore(t)

	mockDB.ExpectQuery(`SELECT channel_id, dose_code FROM kitchen_channels ORDER BY row_num`).
		WillReturnRows(testutil.MockRows("channel_id", "dose_code").
			AddRow("Shop1", "D9").
			AddRow("Shop2", "FS"))

	got, err := store.ListChannels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []rules.ChannelEntry{{ChannelID: "Shop1", DoseCode: "D9"}, {ChannelID: "Shop2", DoseCode: "FS"}}, got)

	mockDB.ExpectationsWereMet(t)
}
