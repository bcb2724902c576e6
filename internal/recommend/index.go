package recommend

import (
	"context"
	"sort"

	"github.com/your-org/outfit/internal/models"
)

// CompatibilityIndex ranks compatibility rows by the distance between their
// stored color for a group and a target color. Rows without a color for the
// group are not candidates. Results are nearest first with ties in row order;
// limit <= 0 returns every candidate.
type CompatibilityIndex interface {
	Nearest(ctx context.Context, group models.ClothingGroup, target models.Color, limit int) ([]models.CompatibilityMatch, error)
}

// RowSource supplies the full compatibility table.
type RowSource interface {
	Compatibility(ctx context.Context) ([]models.CompatibilityRow, error)
}

// MemoryIndex scans the compatibility table held in process.
type MemoryIndex struct {
	rows RowSource
}

func NewMemoryIndex(rows RowSource) *MemoryIndex {
	return &MemoryIndex{rows: rows}
}

func (m *MemoryIndex) Nearest(ctx context.Context, group models.ClothingGroup, target models.Color, limit int) ([]models.CompatibilityMatch, error) {
	rows, err := m.rows.Compatibility(ctx)
	if err != nil {
		return nil, err
	}
	return nearest(rows, group, target, limit), nil
}

func nearest(rows []models.CompatibilityRow, group models.ClothingGroup, target models.Color, limit int) []models.CompatibilityMatch {
	out := make([]models.CompatibilityMatch, 0, len(rows))
	for _, row := range rows {
		slot, ok := row.Slots[group]
		if !ok || !slot.HasColor {
			continue
		}
		out = append(out, models.CompatibilityMatch{Row: row, Distance: slot.Color.Distance(target)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Row.Index < out[j].Row.Index
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// StaticRows serves a fixed table.
type StaticRows []models.CompatibilityRow

func (s StaticRows) Compatibility(context.Context) ([]models.CompatibilityRow, error) {
	return s, nil
}
