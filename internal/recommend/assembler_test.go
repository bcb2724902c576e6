package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/outfit/internal/models"
)

func matchesOf(rows ...models.CompatibilityRow) []models.CompatibilityMatch {
	out := make([]models.CompatibilityMatch, len(rows))
	for i, r := range rows {
		out[i] = models.CompatibilityMatch{Row: r}
	}
	return out
}

func TestAssemblerSkipsRowWithUnfillableSlot(t *testing.T) {
	rows := matchesOf(scenarioRows[0], scenarioRows[1], scenarioRows[3])

	got := NewAssembler().Assemble(rows, scenarioCatalog, models.GroupTopwear, "Men", models.UsageCasual)

	// row 1 needs Men/Unisex Sneakers, and the catalog only has Women's
	assert.Equal(t, []models.OutfitGroup{{1, 3}, {7}}, got)
	assert.Len(t, got, len(rows)-1)
}

func TestAssemblerFiltersByUsage(t *testing.T) {
	got := NewAssembler().Assemble(matchesOf(scenarioRows[0]), scenarioCatalog, models.GroupTopwear, "Men", models.UsageFormal)
	assert.Equal(t, []models.OutfitGroup{{5, 6}}, got)
}

func TestAssemblerOnlyEmitsCatalogIDs(t *testing.T) {
	known := make(map[int]bool)
	for _, it := range scenarioCatalog {
		known[it.ClothID] = true
	}
	for _, gender := range []string{"Men", "Women", "Boys"} {
		for _, usage := range models.Usages {
			rows := make([]models.CompatibilityMatch, 0, len(scenarioRows))
			for _, r := range scenarioRows {
				rows = append(rows, models.CompatibilityMatch{Row: r})
			}
			for _, group := range NewAssembler().Assemble(rows, scenarioCatalog, models.GroupTopwear, gender, usage) {
				assert.NotEmpty(t, group)
				for _, id := range group {
					assert.True(t, known[id], "id %d", id)
				}
			}
		}
	}
}

func TestAssemblerPrefersClosestColorThenUnused(t *testing.T) {
	catalog := []models.CatalogItem{
		{ClothID: 10, Gender: "Women", Usage: "Casual", Color: "White", Type: "Jeans"},
		{ClothID: 11, Gender: "Women", Usage: "Casual", Color: "Navy Blue", Type: "Jeans"},
		{ClothID: 12, Gender: "Unisex", Usage: "Casual", Color: "Navy Blue", Type: "Jeans"},
		{ClothID: 13, Gender: "Women", Usage: "Casual", Color: "Multi", Type: "Jeans"},
	}
	r := row(0, "Casual", map[models.ClothingGroup]models.Slot{
		models.GroupTopwear:    slot("Tops", 34, 34, 34),
		models.GroupBottomwear: slot("Jeans", 0, 0, 120),
	})

	got := NewAssembler().Assemble(matchesOf(r, r, r), catalog, models.GroupTopwear, "Women", models.UsageCasual)
	assert.Equal(t, []models.OutfitGroup{{11}, {12}, {11}}, got)
}

func TestAssemblerUncoloredSlotUsesCatalogOrder(t *testing.T) {
	catalog := []models.CatalogItem{
		{ClothID: 13, Gender: "Women", Usage: "Casual", Color: "Multi", Type: "Watches"},
		{ClothID: 10, Gender: "Women", Usage: "Casual", Color: "White", Type: "Watches"},
	}
	r := row(0, "Casual", map[models.ClothingGroup]models.Slot{
		models.GroupAccessories: {Category: "Watches"},
	})
	got := NewAssembler().Assemble(matchesOf(r), catalog, models.GroupTopwear, "Women", models.UsageCasual)
	assert.Equal(t, []models.OutfitGroup{{13}}, got)
}

func TestAssemblerKeepsGroupOrder(t *testing.T) {
	catalog := []models.CatalogItem{
		{ClothID: 1, Gender: "Men", Usage: "Casual", Color: "Black", Type: "Watches"},
		{ClothID: 2, Gender: "Men", Usage: "Casual", Color: "Black", Type: "Casual Shoes"},
		{ClothID: 3, Gender: "Men", Usage: "Casual", Color: "Black", Type: "Jeans"},
		{ClothID: 4, Gender: "Men", Usage: "Casual", Color: "Black", Type: "Jackets"},
	}
	r := row(0, "Casual", map[models.ClothingGroup]models.Slot{
		models.GroupTopwear:     slot("Tshirts", 0, 0, 0),
		models.GroupAccessories: slot("Watches", 0, 0, 0),
		models.GroupFootwear:    slot("Casual Shoes", 0, 0, 0),
		models.GroupBottomwear:  slot("Jeans", 0, 0, 0),
		models.GroupLayeredWear: slot("Jackets", 0, 0, 0),
	})
	got := NewAssembler().Assemble(matchesOf(r), catalog, models.GroupTopwear, "Men", models.UsageCasual)
	assert.Equal(t, []models.OutfitGroup{{4, 3, 2, 1}}, got)
}

func TestAssemblerEmptyInput(t *testing.T) {
	assert.Empty(t, NewAssembler().Assemble(nil, scenarioCatalog, models.GroupTopwear, "Men", models.UsageCasual))
}
