package dataset

import (
	"context"
	"math/rand/v2"
	"sort"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

// Catalog is an in-memory, read-only product table.
type Catalog struct {
	items []models.CatalogItem
	byID  map[int]int
}

// NewCatalog indexes items by id. Duplicate ids are rejected.
func NewCatalog(items []models.CatalogItem) (*Catalog, error) {
	byID := make(map[int]int, len(items))
	for i, it := range items {
		if _, dup := byID[it.ClothID]; dup {
			return nil, errs.DataIntegrity("index catalog", "duplicate item id %d", it.ClothID)
		}
		byID[it.ClothID] = i
	}
	return &Catalog{items: items, byID: byID}, nil
}

// Items returns every item in catalog order. The slice must not be modified.
func (c *Catalog) Items() []models.CatalogItem { return c.items }

func (c *Catalog) Len() int { return len(c.items) }

func (c *Catalog) Get(id int) (models.CatalogItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.CatalogItem{}, false
	}
	return c.items[i], true
}

// ItemsByIDs returns the known items among ids in catalog order. Unknown ids
// are skipped.
func (c *Catalog) ItemsByIDs(_ context.Context, ids []int) ([]models.CatalogItem, error) {
	idx := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if i, ok := c.byID[id]; ok && !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)

	out := make([]models.CatalogItem, len(idx))
	for k, i := range idx {
		out[k] = c.items[i]
	}
	return out, nil
}

// Sample returns up to n items picked at random.
func (c *Catalog) Sample(n int) []models.CatalogItem {
	if n > len(c.items) {
		n = len(c.items)
	}
	out := make([]models.CatalogItem, 0, n)
	for _, i := range rand.Perm(len(c.items))[:n] {
		out = append(out, c.items[i])
	}
	return out
}
