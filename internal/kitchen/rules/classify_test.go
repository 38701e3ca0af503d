package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassify_Tiers(t *testing.T) {
	par := dec("100")

	tests := []struct {
		quantity   string
		tier       Tier
		background string
		font       string
	}{
		{"200", TierDarkGreen, "#006400", FontWhite},
		{"175", TierDarkGreen, "#006400", FontWhite},
		{"174.99", TierForestGreen, "#228B22", FontWhite},
		{"150", TierForestGreen, "#228B22", FontWhite},
		{"149", TierLightGreen, "#90EE90", FontBlack},
		{"125", TierLightGreen, "#90EE90", FontBlack},
		{"100", TierPureGreen, "#00FF00", FontBlack},
		{"99", TierPink, "#FFC0CB", FontBlack},
		{"80", TierPink, "#FFC0CB", FontBlack},
		{"75", TierPink, "#FFC0CB", FontBlack},
		{"60", TierLightRed, "#FF6666", FontBlack},
		{"50", TierLightRed, "#FF6666", FontBlack},
		{"26", TierPureRed, "#FF0000", FontBlack},
		{"25", TierPureRed, "#FF0000", FontWhite},
		{"10", TierDarkRed, "#990000", FontWhite},
		{"0", TierDarkRed, "#990000", FontWhite},
	}

	for _, tt := range tests {
		t.Run(tt.quantity, func(t *testing.T) {
			c := Classify(dec(tt.quantity), par)
			assert.Equal(t, tt.tier, c.Tier)
			assert.Equal(t, tt.background, c.Style.Background)
			assert.Equal(t, tt.font, c.Style.FontColor)
			assert.True(t, c.Styled())
		})
	}
}

func TestClassify_ParNotPositive(t *testing.T) {
	assert.Equal(t, Unstyled, Classify(dec("80"), decimal.Zero))
	assert.Equal(t, Unstyled, Classify(dec("0"), dec("-5")))
	assert.False(t, Classify(dec("80"), decimal.Zero).Styled())
}

func TestClassifyRaw(t *testing.T) {
	assert.Equal(t, TierPink, ClassifyRaw(dec("80"), "100").Tier)
	assert.Equal(t, Unstyled, ClassifyRaw(dec("80"), "lots"))
	assert.Equal(t, Unstyled, ClassifyRaw(dec("80"), ""))
	assert.Equal(t, Unstyled, ClassifyRaw(dec("80"), "0"))
}

func TestClassify_ExactlyOneTierForEveryQuantity(t *testing.T) {
	par := dec("40")
	for q := 0; q <= 200; q++ {
		c := Classify(decimal.NewFromInt(int64(q)), par)
		assert.NotEqual(t, TierUnstyled, c.Tier, "q=%d", q)
		assert.NotEmpty(t, c.Style.Background, "q=%d", q)
	}
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "pink", TierPink.String())
	assert.Equal(t, "unstyled", TierUnstyled.String())
	assert.Equal(t, "unknown", Tier(99).String())
}
