package rules

import (
	"github.com/shopspring/decimal"
)

// Tier is a stock-health band relative to par.
type Tier int

const (
	TierUnstyled Tier = iota
	TierDarkRed
	TierPureRed
	TierLightRed
	TierPink
	TierPureGreen
	TierLightGreen
	TierForestGreen
	TierDarkGreen
)

var tierNames = map[Tier]string{
	TierUnstyled:    "unstyled",
	TierDarkRed:     "dark_red",
	TierPureRed:     "pure_red",
	TierLightRed:    "light_red",
	TierPink:        "pink",
	TierPureGreen:   "pure_green",
	TierLightGreen:  "light_green",
	TierForestGreen: "forest_green",
	TierDarkGreen:   "dark_green",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets tiers serialise by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Text colours.
const (
	FontWhite = "#FFFFFF"
	FontBlack = "#000000"
)

// Style is the cell styling applied to an inventory quantity.
type Style struct {
	Background string `json:"background"`
	FontColor  string `json:"font_color"`
}

// IsZero reports whether no styling is set.
func (s Style) IsZero() bool {
	return s.Background == "" && s.FontColor == ""
}

type band struct {
	min        decimal.Decimal
	tier       Tier
	background string
}

// Highest first; first match wins.
var bands = []band{
	{decimal.RequireFromString("1.75"), TierDarkGreen, "#006400"},
	{decimal.RequireFromString("1.50"), TierForestGreen, "#228B22"},
	{decimal.RequireFromString("1.25"), TierLightGreen, "#90EE90"},
	{decimal.RequireFromString("1.00"), TierPureGreen, "#00FF00"},
	{decimal.RequireFromString("0.75"), TierPink, "#FFC0CB"},
	{decimal.RequireFromString("0.50"), TierLightRed, "#FF6666"},
	{decimal.RequireFromString("0.25"), TierPureRed, "#FF0000"},
}

const floorBackground = "#990000"

var (
	whiteAtOrAbove = decimal.RequireFromString("1.50")
	whiteAtOrBelow = decimal.RequireFromString("0.25")
)

// Classification is the outcome of classifying a quantity against par.
type Classification struct {
	Tier  Tier  `json:"tier"`
	Style Style `json:"style"`
}

// Styled reports whether the classification changes the cell.
func (c Classification) Styled() bool {
	return c.Tier != TierUnstyled
}

// Unstyled leaves the cell as it is.
var Unstyled = Classification{Tier: TierUnstyled}

// Classify places quantity in a tier relative to par. A par of zero or
// less yields Unstyled.
//
// Text is white at or above 1.50x par and at or below 0.25x par, black in
// between. That boundary does not line up with every background band.
func Classify(quantity, par decimal.Decimal) Classification {
	if !par.IsPositive() {
		return Unstyled
	}

	c := Classification{Tier: TierDarkRed, Style: Style{Background: floorBackground}}
	for _, b := range bands {
		if quantity.GreaterThanOrEqual(par.Mul(b.min)) {
			c.Tier = b.tier
			c.Style.Background = b.background
			break
		}
	}

	c.Style.FontColor = FontBlack
	if quantity.GreaterThanOrEqual(par.Mul(whiteAtOrAbove)) || quantity.LessThanOrEqual(par.Mul(whiteAtOrBelow)) {
		c.Style.FontColor = FontWhite
	}
	return c
}

// ClassifyRaw classifies against a raw par cell. Missing or non-numeric
// par values yield Unstyled.
func ClassifyRaw(quantity decimal.Decimal, rawPar string) Classification {
	par, ok := ParseQuantity(rawPar)
	if !ok {
		return Unstyled
	}
	return Classify(quantity, par)
}
