package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/service"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edit(sheet string, row, col int, value string) messaging.SheetEditEvent {
	return messaging.SheetEditEvent{Sheet: sheet, Row: row, Column: col, Value: value}
}

func TestHandleEdit_Ignored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	tests := []struct {
		name string
		edit messaging.SheetEditEvent
	}{
		{"header row", edit("Kitchen Production", 1, 2, "Product")},
		{"unknown sheet", edit("Notes", 3, 2, "hello")},
		{"untracked column", edit("Kitchen Production", 3, 9, "memo")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.svc.HandleEdit(ctx, tt.edit)
			require.NoError(t, err)
			assert.Equal(t, service.ActionNone, res.Handled)
		})
	}

	rows, err := f.store.ListProduction(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHandleEdit_ProductionFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.store.PutParLevel(repository.ParLevelEntry{Row: 2, Product: "Gummies D9", ParQuantity: "20"})

	res, err := f.svc.HandleEdit(ctx, edit("Kitchen Production", 2, 2, "Gummies D9"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionProductSelected, res.Handled)
	assert.Equal(t, repository.TableProduction, res.Table)
	assert.Equal(t, repository.FieldProduct, res.Field)
	assert.Equal(t, []string{"101-D9", "102-D9"}, f.store.SelectionOptions(2, 1))

	res, err = f.svc.HandleEdit(ctx, edit("Kitchen Production", 2, 3, "24"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionMirrored, res.Handled)

	res, err = f.svc.HandleEdit(ctx, edit("Kitchen Production", 2, 4, "102-D9"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionChannelSelected, res.Handled)

	rec, err := f.store.GetProduction(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Gummies-D9-03-05-24-DC-102.0", rec.BatchCode)

	entry := f.inventory(t, "Gummies D9")
	assert.Equal(t, "24", entry.Quantity)
	assert.Equal(t, "#00FF00", entry.Background)
}

func TestHandleEdit_ClearedCellsAreOnlyMirrored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.store.PutProduction(repository.ProductionRecord{Row: 2, Product: "Gummies D9"})

	res, err := f.svc.HandleEdit(ctx, edit("Kitchen Production", 2, 2, ""))
	require.NoError(t, err)
	assert.Equal(t, service.ActionMirrored, res.Handled)

	rec, err := f.store.GetProduction(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, rec.Product)
	assert.Nil(t, rec.Date)
}

func TestHandleEdit_SecondSlotIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	f.store.PutProduction(repository.ProductionRecord{Row: 2, Date: at(5, 9), Product: "XYZ D9 Gummies FS", QuantityMade: "6"})

	res, err := f.svc.HandleEdit(ctx, edit("Kitchen Production", 2, 5, "201-FS"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionMirrored, res.Handled)

	rec, err := f.store.GetProduction(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "201-FS", rec.Selection2)
	assert.Empty(t, rec.BatchCode)

	res, err = f.svc.HandleEdit(ctx, edit("Kitchen Production", 2, 4, "101-D9"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionChannelSelected, res.Handled)

	rec, err = f.store.GetProduction(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "XYZ-D9-Gummies-FS-03-05-24-DC-101.0", rec.BatchCode)
}

func TestHandleEdit_InventoryAndOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.store.PutParLevel(repository.ParLevelEntry{Row: 2, Product: "Gummies D9", ParQuantity: "100"})
	f.store.PutInventory(repository.InventoryEntry{Row: 2, Product: "Gummies D9", Quantity: "10"})
	f.store.PutProduction(repository.ProductionRecord{Row: 2, Date: at(4, 9), Product: "Gummies D9", BatchCode: "Gummies-D9-03-04-24-DC-101.0"})

	res, err := f.svc.HandleEdit(ctx, edit("Current Inventory", 2, 2, "80"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionInventoryEdited, res.Handled)
	assert.Equal(t, "#FFC0CB", f.inventory(t, "Gummies D9").Background)

	res, err = f.svc.HandleEdit(ctx, edit("Orders & Retail", 3, 2, "Gummies D9"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionOrderProductSelected, res.Handled)
	assert.Equal(t, []string{"Gummies-D9-03-04-24-DC-101.0"}, f.store.OrderBatchOptions(3))

	_, err = f.svc.HandleEdit(ctx, edit("Orders & Retail", 3, 4, "30"))
	require.NoError(t, err)

	res, err = f.svc.HandleEdit(ctx, edit("Orders & Retail", 3, 8, "Pending"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionMirrored, res.Handled)
	assert.Equal(t, "80", f.inventory(t, "Gummies D9").Quantity)

	res, err = f.svc.HandleEdit(ctx, edit("Orders & Retail", 3, 8, "Complete"))
	require.NoError(t, err)
	assert.Equal(t, service.ActionOrderStatusChanged, res.Handled)

	entry := f.inventory(t, "Gummies D9")
	assert.Equal(t, "50", entry.Quantity)
	assert.Equal(t, "#FF6666", entry.Background)
}

type flushingStore struct {
	*repository.MemoryStore
	flushes int
}

func (s *flushingStore) Flush(ctx context.Context) error {
	s.flushes++
	return nil
}

func TestHandleEdit_FlushesOncePerEvent(t *testing.T) {
	ctx := context.Background()
	store := &flushingStore{MemoryStore: repository.NewMemoryStore(newYork)}
	svc := service.NewSheetService(store, repository.DefaultLayout(1), service.DefaultOptions(), nil, nil, logger.Nop())

	_, err := svc.HandleEdit(ctx, edit("Kitchen Production", 2, 2, "Gummies D9"))
	require.NoError(t, err)
	_, err = svc.HandleEdit(ctx, edit("Kitchen Production", 1, 2, "Product"))
	require.NoError(t, err)

	assert.Equal(t, 1, store.flushes)
}

type failingLocker struct{ err error }

func (l failingLocker) Lock(ctx context.Context) (func(), error) {
	return nil, l.err
}

func TestHandleEdit_LockFailure(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore(newYork)
	lockErr := errors.New("redis down")
	svc := service.NewSheetService(store, repository.DefaultLayout(1), service.DefaultOptions(), failingLocker{lockErr}, nil, logger.Nop())

	_, err := svc.HandleEdit(ctx, edit("Kitchen Production", 2, 2, "Gummies D9"))
	require.Error(t, err)
	assert.ErrorIs(t, err, lockErr)

	_, err = store.GetProduction(ctx, 2)
	assert.Error(t, err, "nothing is mirrored without the lock")
}
