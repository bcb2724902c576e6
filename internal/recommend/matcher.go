package recommend

import (
	"context"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

// DefaultMaxMatches caps the rows handed to the assembler.
const DefaultMaxMatches = 10

// Matcher selects compatibility rows for a garment. It takes the
// candidateLimit nearest rows by color (all rows when zero), keeps those whose
// category for the garment's group equals the garment's category and whose
// usage lists the requested usage, and returns at most maxMatches of them,
// nearest first.
type Matcher struct {
	index          CompatibilityIndex
	candidateLimit int
	maxMatches     int
}

func NewMatcher(index CompatibilityIndex, candidateLimit, maxMatches int) *Matcher {
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}
	return &Matcher{index: index, candidateLimit: candidateLimit, maxMatches: maxMatches}
}

// Match returns the filtered rows. An empty result is not an error.
func (m *Matcher) Match(ctx context.Context, target models.Color, cat Category, usage models.Usage) ([]models.CompatibilityMatch, error) {
	if cat.Group == "" {
		return nil, errs.DataIntegrity("match compatibility", "category %q has no clothing group", cat.Name)
	}

	candidates, err := m.index.Nearest(ctx, cat.Group, target, m.candidateLimit)
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.WrapExternal("nearest compatibility rows", err)
		}
		return nil, err
	}

	out := make([]models.CompatibilityMatch, 0, m.maxMatches)
	for _, c := range candidates {
		slot, ok := c.Row.Slot(cat.Group)
		if !ok || slot.Category != cat.Name || !c.Row.HasUsage(usage) {
			continue
		}
		out = append(out, c)
		if len(out) == m.maxMatches {
			break
		}
	}
	return out, nil
}
