package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceIsAMetric(t *testing.T) {
	colors := []Color{
		{0, 0, 0},
		{255, 255, 255},
		{34, 34, 34},
		{200, 10, 90},
		{1, 2, 3},
	}
	for _, a := range colors {
		assert.Zero(t, a.Distance(a), "distance(%v, %v)", a, a)
		for _, b := range colors {
			assert.Equal(t, a.Distance(b), b.Distance(a), "symmetry %v %v", a, b)
		}
	}
	assert.InDelta(t, 5.0, Color{0, 0, 0}.Distance(Color{3, 4, 0}), 1e-9)
}

func TestParseColor(t *testing.T) {
	cases := map[string]Color{
		"(34, 34, 34)":  {34, 34, 34},
		"[255 0 12]":    {255, 0, 12},
		"10,20,30":      {10, 20, 30},
		" ( 0, 0 ,0 ) ": {0, 0, 0},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "(1, 2)", "(1, 2, 300)", "(-1, 2, 3)", "red"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestColorFormatting(t *testing.T) {
	c := Color{R: 34, G: 139, B: 34}
	assert.Equal(t, "228B22", c.Hex())
	assert.Equal(t, "(34, 139, 34)", c.String())
	assert.Equal(t, []float32{34, 139, 34}, c.Vector())
}

func TestRowUsageIsCaseSensitiveSubstring(t *testing.T) {
	row := CompatibilityRow{Usage: "Casual,Formal"}
	assert.True(t, row.HasUsage(UsageCasual))
	assert.True(t, row.HasUsage(UsageFormal))
	assert.False(t, row.HasUsage(UsageSports))
	assert.False(t, row.HasUsage(Usage("casual")))
	assert.False(t, row.HasUsage(""))
}

func TestRowSlotRequiresCategory(t *testing.T) {
	row := CompatibilityRow{Slots: map[ClothingGroup]Slot{
		GroupTopwear:  {Category: "Tshirts", Color: Color{1, 1, 1}, HasColor: true},
		GroupFootwear: {Category: ""},
	}}
	_, ok := row.Slot(GroupTopwear)
	assert.True(t, ok)
	_, ok = row.Slot(GroupFootwear)
	assert.False(t, ok)
	_, ok = row.Slot(GroupAccessories)
	assert.False(t, ok)
}

func TestCatalogItemFits(t *testing.T) {
	it := CatalogItem{Gender: "Unisex", Usage: "Casual"}
	assert.True(t, it.FitsGender("Men"))
	assert.True(t, it.FitsGender("Women"))
	assert.True(t, it.FitsUsage(UsageCasual))
	assert.False(t, it.FitsUsage(UsageFormal))

	it.Gender = "Women"
	assert.False(t, it.FitsGender("Men"))
}
