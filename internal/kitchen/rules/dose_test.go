package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDoseCodes(t *testing.T) {
	tests := []struct {
		name    string
		product string
		want    []string
	}{
		{"two tokens left to right", "XYZ D9 Gummies FS", []string{"D9", "FS"}},
		{"single token", "Lemon D8 Chews", []string{"D8"}},
		{"non-dosed", "Plain ND Cookie", []string{"ND"}},
		{"duplicates kept", "D9 D9 Duo", []string{"D9", "D9"}},
		{"longer token", "Night THCO Drops", []string{"THCO"}},
		{"no tokens", "Brownie", nil},
		{"case sensitive", "d9 gummies", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDoseCodes(tt.product))
		})
	}
}

func TestExtractSlotCodes_CapsToSlots(t *testing.T) {
	assert.Equal(t, []string{"D9"}, ExtractSlotCodes("XYZ D9 Gummies FS", 1))
	assert.Equal(t, []string{"D9", "FS"}, ExtractSlotCodes("XYZ D9 Gummies FS CAF", 2))
	assert.Empty(t, ExtractSlotCodes("Brownie", 2))
}

func TestResolveOptions(t *testing.T) {
	refs := []ChannelEntry{
		{ChannelID: "12", DoseCode: "D9"},
		{ChannelID: "7", DoseCode: "FS"},
		{ChannelID: "3", DoseCode: "D9"},
	}

	assert.Equal(t, []string{"12-D9", "3-D9"}, ResolveOptions("D9", refs))
	assert.Equal(t, []string{"7-FS"}, ResolveOptions("FS", refs))
	assert.Empty(t, ResolveOptions("CAF", refs))
	assert.Empty(t, ResolveOptions("", refs))
}
