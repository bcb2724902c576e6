// Package wardrobe holds the static fashion vocabulary: which article types
// belong to which clothing group, the accepted usages and genders, and the RGB
// value of each catalog base-color name.
package wardrobe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

// articleTypes maps each clothing group to the article types it contains.
// Every label a classifier can emit must appear in exactly one list.
var articleTypes = map[models.ClothingGroup][]string{
	models.GroupTopwear:     {"Tshirts", "Shirts", "Tops", "Kurtas", "Kurtis", "Dresses"},
	models.GroupLayeredWear: {"Jackets", "Waistcoat", "Sweatshirts", "Blazers", "Shrug"},
	models.GroupBottomwear:  {"Jeans", "Trousers", "Track Pants", "Shorts", "Capris", "Leggings", "Skirts"},
	models.GroupFootwear:    {"Casual Shoes", "Formal Shoes", "Sports Shoes", "Sneakers", "Flats", "Loafers", "Heels", "Sandal"},
	models.GroupAccessories: {"Watches", "Handbags", "Socks", "Belts"},
}

var groupByCategory = func() map[string]models.ClothingGroup {
	m := make(map[string]models.ClothingGroup)
	for g, cats := range articleTypes {
		for _, c := range cats {
			if prev, dup := m[c]; dup {
				panic(fmt.Sprintf("wardrobe: %q listed under both %q and %q", c, prev, g))
			}
			m[c] = g
		}
	}
	return m
}()

// GroupFor resolves an article type to its clothing group. An unmapped
// category is a configuration defect and returns a data-integrity error.
func GroupFor(category string) (models.ClothingGroup, error) {
	g, ok := groupByCategory[category]
	if !ok {
		return "", errs.DataIntegrity("clothing group", "category %q is not mapped to any clothing group", category)
	}
	return g, nil
}

// Categories returns the article types of g in declaration order.
func Categories(g models.ClothingGroup) []string {
	return append([]string(nil), articleTypes[g]...)
}

// ValidateLabels checks that every label a classifier can emit has a group.
// Called at startup so a bad mapping fails before serving traffic.
func ValidateLabels(labels []string) error {
	var missing []string
	for _, l := range labels {
		if _, ok := groupByCategory[l]; !ok {
			missing = append(missing, l)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errs.DataIntegrity("validate labels", "labels without clothing group: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParseUsage normalizes and validates a requested usage. Spaces are stripped;
// the value must then match a known usage exactly.
func ParseUsage(s string) (models.Usage, error) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "", errs.Input("usage", "usage is required")
	}
	for _, u := range models.Usages {
		if string(u) == s {
			return u, nil
		}
	}
	return "", errs.Input("usage", "unrecognized usage %q", s)
}

var genders = []string{"Men", "Women", "Boys", "Girls", models.GenderNeutral}

// ParseGender strips spaces and checks the value against the catalog genders.
func ParseGender(s string) (string, error) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "", errs.Input("gender", "gender is required")
	}
	for _, g := range genders {
		if g == s {
			return s, nil
		}
	}
	return "", errs.Input("gender", "unrecognized gender %q", s)
}
