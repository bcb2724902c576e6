package recommend

import (
	"math"
	"sort"

	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/wardrobe"
)

// Assembler fills compatibility rows with concrete catalog items.
//
// Groups are visited in outfit order, skipping the uploaded garment's own
// group. Each remaining slot takes the catalog item of the slot's category
// that fits the gender and usage, preferring items whose base color is
// closest to the row's stored color, then items not yet used in this
// response, then catalog order. A row with any unfillable slot yields no
// outfit.
type Assembler struct{}

func NewAssembler() *Assembler { return &Assembler{} }

func (a *Assembler) Assemble(rows []models.CompatibilityMatch, catalog []models.CatalogItem, source models.ClothingGroup, gender string, usage models.Usage) []models.OutfitGroup {
	byType := make(map[string][]int)
	for i, it := range catalog {
		if it.FitsGender(gender) && it.FitsUsage(usage) {
			byType[it.Type] = append(byType[it.Type], i)
		}
	}

	used := make(map[int]int)
	var outfits []models.OutfitGroup

rows:
	for _, m := range rows {
		var group models.OutfitGroup
		for _, g := range models.Groups {
			if g == source {
				continue
			}
			slot, ok := m.Row.Slot(g)
			if !ok {
				continue
			}
			i, ok := pick(catalog, byType[slot.Category], slot, used)
			if !ok {
				continue rows
			}
			group = append(group, catalog[i].ClothID)
		}
		if len(group) == 0 {
			continue
		}
		for _, id := range group {
			used[id]++
		}
		outfits = append(outfits, group)
	}
	return outfits
}

// pick returns the best catalog index for slot among candidates.
func pick(catalog []models.CatalogItem, candidates []int, slot models.Slot, used map[int]int) (int, bool) {
	if len(candidates) == 0 {
		return 0, false
	}

	type scored struct {
		idx  int
		dist float64
		uses int
	}
	ranked := make([]scored, len(candidates))
	for k, i := range candidates {
		dist := math.Inf(1)
		if slot.HasColor {
			if c, ok := wardrobe.PaletteColor(catalog[i].Color); ok {
				dist = c.Distance(slot.Color)
			}
		}
		ranked[k] = scored{idx: i, dist: dist, uses: used[catalog[i].ClothID]}
	}

	sort.SliceStable(ranked, func(x, y int) bool {
		if ranked[x].dist != ranked[y].dist {
			return ranked[x].dist < ranked[y].dist
		}
		if ranked[x].uses != ranked[y].uses {
			return ranked[x].uses < ranked[y].uses
		}
		return ranked[x].idx < ranked[y].idx
	})
	return ranked[0].idx, true
}
