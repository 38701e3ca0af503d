package rules

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestChannelID(t *testing.T) {
	assert.Equal(t, "12", ChannelID("12-D9"))
	assert.Equal(t, "North-12", ChannelID("North-12-D9"))
	assert.Equal(t, "12", ChannelID("12"))
	assert.Equal(t, "", ChannelID(""))
}

func TestProductCode(t *testing.T) {
	assert.Equal(t, "XYZ-D9-Gummies", ProductCode("XYZ D9 Gummies"))
	assert.Equal(t, "Lemon-Bar", ProductCode("Lemon \t  Bar"))
}

func TestBatchCodeGenerator_FirstBatchOfDay(t *testing.T) {
	g := NewBatchCodeGenerator(time.UTC)
	day := time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)

	code := g.Generate(2, "XYZ D9 Gummies", "12-D9", day, nil)
	assert.Equal(t, "XYZ-D9-Gummies-03-05-24-DC-12.0", code)
}

func TestBatchCodeGenerator_SequencePerProductChannelDay(t *testing.T) {
	g := NewBatchCodeGenerator(time.UTC)
	day := time.Date(2024, time.March, 5, 8, 0, 0, 0, time.UTC)
	sameDayLater := day.Add(6 * time.Hour)
	nextDay := day.Add(24 * time.Hour)

	history := []BatchHistoryEntry{
		{Row: 2, Product: "Lemon D8", Selection: "12-D8", Date: timePtr(day), Code: "a"},
		{Row: 3, Product: "Lemon D8", Selection: "12-D8", Date: timePtr(sameDayLater), Code: "b"},
		{Row: 4, Product: "Lemon D8", Selection: "7-D8", Date: timePtr(day), Code: "c"},
		{Row: 5, Product: "Lemon D8", Selection: "12-D8", Date: timePtr(nextDay), Code: "d"},
		{Row: 6, Product: "Lime D8", Selection: "12-D8", Date: timePtr(day), Code: "e"},
		{Row: 7, Product: "Lemon D8", Selection: "12-D8", Date: nil, Code: "f"},
		{Row: 8, Product: "Lemon D8", Selection: "12-D8", Date: timePtr(day)},
		{Row: 9, Product: "Lemon D8", Selection: "12-D8", Date: timePtr(day)},
	}

	// row 8 is the row being coded, so it does not count itself
	assert.Equal(t, 2, g.Sequence(history, 8, "Lemon D8", "12", day))
	assert.Equal(t, "Lemon-D8-03-05-24-DC-12.2", g.Generate(8, "Lemon D8", "12-D8", day, history))
	assert.Equal(t, 0, g.Sequence(history, 10, "Lemon D8", "99", day))
	assert.Equal(t, 1, g.Sequence(history, 10, "Lemon D8", "12", nextDay))
	// rows 8 and 9 have no code yet, so neither counts for the other
	assert.Equal(t, 2, g.Sequence(history, 9, "Lemon D8", "12", day))
}

func TestBatchCodeGenerator_SuffixMatchesPriorCount(t *testing.T) {
	g := NewBatchCodeGenerator(time.UTC)
	day := time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)

	var history []BatchHistoryEntry
	for n := 0; n < 5; n++ {
		row := n + 2
		code := g.Generate(row, "Bar D9", "4-D9", day, history)
		assert.Equal(t, fmt.Sprintf("Bar-D9-07-01-24-DC-4.%d", n), code)
		history = append(history, BatchHistoryEntry{Row: row, Product: "Bar D9", Selection: "4-D9", Date: timePtr(day), Code: code})
	}
}

func TestBatchCodeGenerator_CalendarDayInZone(t *testing.T) {
	ny := mustLoad(t, "America/New_York")
	g := NewBatchCodeGenerator(ny)

	// 02:00 UTC on the 6th is still the 5th in New York
	late := time.Date(2024, time.March, 6, 2, 0, 0, 0, time.UTC)
	evening := time.Date(2024, time.March, 5, 18, 0, 0, 0, ny)

	assert.True(t, g.SameDay(late, evening))
	assert.Equal(t, "Bar-03-05-24-DC-4.0", g.Format("Bar", late, "4", 0))
}

func TestRecentBatchCodes(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.Add(24 * time.Hour)
	d3 := d2.Add(24 * time.Hour)

	history := []BatchHistoryEntry{
		{Row: 2, Product: "Bar", Date: timePtr(d1), Code: "A"},
		{Row: 3, Product: "Bar", Date: timePtr(d3), Code: "C"},
		{Row: 4, Product: "Bar", Date: nil, Code: "U"},
		{Row: 5, Product: "Bar", Date: timePtr(d2), Code: "B"},
		{Row: 6, Product: "Bar", Date: timePtr(d3), Code: ""},
		{Row: 7, Product: "Other", Date: timePtr(d3), Code: "X"},
		{Row: 8, Product: "Bar", Date: timePtr(d3), Code: "C2"},
	}

	assert.Equal(t, []string{"C", "C2", "B"}, RecentBatchCodes(history, "Bar", 3))
	assert.Equal(t, []string{"C", "C2", "B", "A", "U"}, RecentBatchCodes(history, "Bar", 10))
	assert.Empty(t, RecentBatchCodes(history, "Missing", 3))
}
