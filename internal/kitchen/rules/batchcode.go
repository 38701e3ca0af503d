package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// BatchDateLayout is the MM-dd-yy stamp embedded in batch codes.
const BatchDateLayout = "01-02-06"

var whitespaceRun = regexp.MustCompile(`[\s\p{Z}]+`)

// BatchHistoryEntry is the part of a production row that batch numbering
// and recent-batch lookups care about.
type BatchHistoryEntry struct {
	Row       int
	Product   string
	Selection string
	Date      *time.Time
	Code      string
}

// ChannelID strips a trailing "-<doseCode>" from a drop-down selection.
// Everything before the last hyphen is the channel; a selection without a
// hyphen is the channel as-is.
func ChannelID(selection string) string {
	if i := strings.LastIndex(selection, "-"); i >= 0 {
		return selection[:i]
	}
	return selection
}

// ProductCode replaces every whitespace run in a product name with a hyphen.
func ProductCode(product string) string {
	return whitespaceRun.ReplaceAllString(product, "-")
}

// BatchCodeGenerator numbers production batches per product, channel and
// calendar day in a fixed time zone.
type BatchCodeGenerator struct {
	loc *time.Location
}

// NewBatchCodeGenerator creates a generator for the given zone. A nil zone
// means UTC.
func NewBatchCodeGenerator(loc *time.Location) *BatchCodeGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &BatchCodeGenerator{loc: loc}
}

// Location returns the zone used for dates.
func (g *BatchCodeGenerator) Location() *time.Location {
	return g.loc
}

// SameDay reports whether a and b fall on the same calendar day.
func (g *BatchCodeGenerator) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(g.loc).Date()
	by, bm, bd := b.In(g.loc).Date()
	return ay == by && am == bm && ad == bd
}

// Sequence counts the batches already issued, on rows other than row, that
// share product, channel and day. Rows without a code are not batches yet.
// The result is the zero-based suffix of the next batch.
func (g *BatchCodeGenerator) Sequence(history []BatchHistoryEntry, row int, product, channelID string, day time.Time) int {
	count := 0
	for _, h := range history {
		if h.Row == row || h.Date == nil || h.Code == "" {
			continue
		}
		if h.Product != product || ChannelID(h.Selection) != channelID {
			continue
		}
		if g.SameDay(*h.Date, day) {
			count++
		}
	}
	return count
}

// Format renders a batch code.
func (g *BatchCodeGenerator) Format(product string, date time.Time, channelID string, seq int) string {
	return fmt.Sprintf("%s-%s-DC-%s.%d",
		ProductCode(product),
		date.In(g.loc).Format(BatchDateLayout),
		channelID,
		seq,
	)
}

// Generate builds the batch code for a production row from its product,
// drop-down selection and stamped date, numbered against history.
func (g *BatchCodeGenerator) Generate(row int, product, selection string, date time.Time, history []BatchHistoryEntry) string {
	channelID := ChannelID(selection)
	seq := g.Sequence(history, row, product, channelID, date)
	return g.Format(product, date, channelID, seq)
}

// RecentBatchCodes returns up to limit batch codes recorded for product,
// newest production date first. Undated rows sort last; ties keep sheet order.
func RecentBatchCodes(history []BatchHistoryEntry, product string, limit int) []string {
	var rows []BatchHistoryEntry
	for _, h := range history {
		if h.Product == product && h.Code != "" {
			rows = append(rows, h)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Date, rows[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.Code)
	}
	return codes
}
