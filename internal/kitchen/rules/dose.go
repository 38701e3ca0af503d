package rules

import (
	"regexp"
)

// DoseCodes is the fixed vocabulary of dose-code tokens that may appear in a
// product name. ND marks non-dosed products.
var DoseCodes = []string{"D8", "D9", "THCO", "FS", "CAF", "ND"}

var doseCodePattern = regexp.MustCompile(`D8|D9|THCO|FS|CAF|ND`)

// ChannelEntry is one row of the distribution-channel reference table.
type ChannelEntry struct {
	ChannelID string `db:"channel_id" json:"channel_id"`
	DoseCode  string `db:"dose_code" json:"dose_code"`
}

// Option renders the entry the way it is offered in a drop-down.
func (e ChannelEntry) Option() string {
	return e.ChannelID + "-" + e.DoseCode
}

// ExtractDoseCodes returns every non-overlapping dose-code token in name,
// left to right. Duplicates are kept.
func ExtractDoseCodes(name string) []string {
	return doseCodePattern.FindAllString(name, -1)
}

// ExtractSlotCodes caps the extracted codes to the number of channel slots.
func ExtractSlotCodes(name string, slots int) []string {
	codes := ExtractDoseCodes(name)
	if slots >= 0 && len(codes) > slots {
		codes = codes[:slots]
	}
	return codes
}

// ResolveOptions lists the drop-down options for code in reference order.
// An empty code or no matching rows yields no options.
func ResolveOptions(code string, entries []ChannelEntry) []string {
	if code == "" {
		return nil
	}

	var opts []string
	for _, e := range entries {
		if e.DoseCode == code {
			opts = append(opts, e.Option())
		}
	}
	return opts
}
