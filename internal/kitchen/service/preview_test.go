package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/service"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewOptions(t *testing.T) {
	ctx := context.Background()

	one := newFixture(t, 1)
	slots, err := one.svc.PreviewOptions(ctx, "XYZ D9 Gummies FS")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "D9", slots[0].DoseCode)
	assert.Equal(t, []string{"101-D9", "102-D9"}, slots[0].Options)

	two := newFixture(t, 2)
	slots, err = two.svc.PreviewOptions(ctx, "Mints CAF")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "CAF", slots[0].DoseCode)
	assert.Empty(t, slots[0].Options)
	assert.Empty(t, slots[1].DoseCode)
	assert.NotNil(t, slots[1].Options)
}

func TestPreviewBatchCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.store.PutProduction(repository.ProductionRecord{Row: 2, Date: at(5, 8), Product: "Gummies D9", Selection1: "101-D9", BatchCode: "Gummies-D9-03-05-24-DC-101.0"})
	f.store.PutProduction(repository.ProductionRecord{Row: 3, Date: at(5, 9), Product: "Gummies D9", Selection1: "101-D9", BatchCode: "Gummies-D9-03-05-24-DC-101.1"})

	p, err := f.svc.PreviewBatchCode(ctx, "Gummies D9", "101-D9", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Gummies-D9-03-05-24-DC-101.2", p.BatchCode)
	assert.Equal(t, 2, p.Sequence)
	assert.Equal(t, "101", p.ChannelID)

	// 02:00 UTC on the 6th is still the 5th in New York.
	p, err = f.svc.PreviewBatchCode(ctx, "Gummies D9", "101", time.Date(2024, 3, 6, 2, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Gummies-D9-03-05-24-DC-101.2", p.BatchCode)

	p, err = f.svc.PreviewBatchCode(ctx, "Gummies D9", "101-D9", *at(6, 9))
	require.NoError(t, err)
	assert.Equal(t, "Gummies-D9-03-06-24-DC-101.0", p.BatchCode)

	// Nothing is written.
	rows, err := f.store.ListProduction(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := service.OptionsFromConfig(config.KitchenConfig{
		Timezone:          "America/New_York",
		GuardOrderRedebit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", opts.Location.String())
	assert.Equal(t, "Complete", opts.CompleteStatus)
	assert.Equal(t, 3, opts.RecentBatchOptions)
	assert.True(t, opts.GuardOrderRedebit)

	_, err = service.OptionsFromConfig(config.KitchenConfig{Timezone: "Nowhere/Special"})
	assert.Error(t, err)
}
