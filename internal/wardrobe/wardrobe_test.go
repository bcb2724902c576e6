package wardrobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

func TestGroupFor(t *testing.T) {
	cases := map[string]models.ClothingGroup{
		"Tshirts":      models.GroupTopwear,
		"Blazers":      models.GroupLayeredWear,
		"Track Pants":  models.GroupBottomwear,
		"Casual Shoes": models.GroupFootwear,
		"Belts":        models.GroupAccessories,
	}
	for cat, want := range cases {
		got, err := GroupFor(cat)
		require.NoError(t, err, cat)
		assert.Equal(t, want, got, cat)
	}
}

func TestGroupForUnmappedIsDataIntegrityError(t *testing.T) {
	g, err := GroupFor("Kimono")
	require.Error(t, err)
	assert.Empty(t, g)
	assert.Equal(t, errs.KindDataIntegrity, errs.KindOf(err))

	_, err = GroupFor("tshirts")
	assert.True(t, errs.Is(err, errs.KindDataIntegrity), "lookup is exact")
}

func TestEveryCategoryHasExactlyOneGroup(t *testing.T) {
	seen := map[string]models.ClothingGroup{}
	for _, g := range models.Groups {
		for _, c := range Categories(g) {
			prev, dup := seen[c]
			assert.False(t, dup, "%q in %q and %q", c, prev, g)
			seen[c] = g
		}
	}
	assert.Len(t, seen, len(groupByCategory))
}

func TestValidateLabels(t *testing.T) {
	require.NoError(t, ValidateLabels([]string{"Tshirts", "Jeans", "Watches"}))

	err := ValidateLabels([]string{"Tshirts", "Saree", "Kimono"})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindDataIntegrity))
	assert.Contains(t, err.Error(), "Kimono, Saree")
}

func TestParseUsage(t *testing.T) {
	u, err := ParseUsage(" Casual ")
	require.NoError(t, err)
	assert.Equal(t, models.UsageCasual, u)

	for _, bad := range []string{"", "casual", "Party", "Smart Casual"} {
		_, err := ParseUsage(bad)
		assert.True(t, errs.Is(err, errs.KindInput), bad)
	}
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender("Wo men")
	require.NoError(t, err)
	assert.Equal(t, "Women", g)

	_, err = ParseGender("")
	assert.True(t, errs.Is(err, errs.KindInput))
	_, err = ParseGender("robot")
	assert.True(t, errs.Is(err, errs.KindInput))
}

func TestPaletteColor(t *testing.T) {
	c, ok := PaletteColor("Black")
	require.True(t, ok)
	assert.Equal(t, models.Color{}, c)

	_, ok = PaletteColor("Multi")
	assert.False(t, ok)
}
