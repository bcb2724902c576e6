package recommend

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

var tshirts = Category{Name: "Tshirts", Group: models.GroupTopwear}

func indices(ms []models.CompatibilityMatch) []int {
	out := make([]int, len(ms))
	for i, m := range ms {
		out[i] = m.Row.Index
	}
	return out
}

func TestMatcherUsageSubstring(t *testing.T) {
	m := NewMatcher(NewMemoryIndex(scenarioRows), 0, 10)

	casual, err := m.Match(context.Background(), charcoal, tshirts, models.UsageCasual)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 3}, indices(casual))
	assert.Zero(t, casual[0].Distance)
	assert.Zero(t, casual[1].Distance)

	formal, err := m.Match(context.Background(), charcoal, tshirts, models.UsageFormal)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, indices(formal))
}

func TestMatcherExactColorRanksFirst(t *testing.T) {
	rows := StaticRows{
		row(0, "Casual", map[models.ClothingGroup]models.Slot{models.GroupTopwear: slot("Tshirts", 30, 30, 30)}),
		row(1, "Casual", map[models.ClothingGroup]models.Slot{models.GroupTopwear: slot("Tshirts", 90, 10, 10)}),
		row(2, "Casual", map[models.ClothingGroup]models.Slot{models.GroupTopwear: slot("Tshirts", 34, 34, 34)}),
	}
	got, err := NewMatcher(NewMemoryIndex(rows), 0, 10).Match(context.Background(), charcoal, tshirts, models.UsageCasual)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, indices(got))
	assert.Zero(t, got[0].Distance)
}

func TestMatcherCapsNearestFirst(t *testing.T) {
	var rows StaticRows
	for i := 0; i < 25; i++ {
		v := uint8(250 - i*10)
		rows = append(rows, row(i, "Casual", map[models.ClothingGroup]models.Slot{
			models.GroupTopwear: slot("Tshirts", v, v, v),
		}))
	}
	got, err := NewMatcher(NewMemoryIndex(rows), 0, 0).Match(context.Background(), models.Color{}, tshirts, models.UsageCasual)
	require.NoError(t, err)
	require.Len(t, got, 10)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
	assert.Equal(t, 24, got[0].Row.Index)
}

func TestMatcherCandidateLimitAppliesBeforeFilter(t *testing.T) {
	m := NewMatcher(NewMemoryIndex(scenarioRows), 2, 10)
	got, err := m.Match(context.Background(), charcoal, tshirts, models.UsageCasual)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, indices(got))
}

func TestMatcherTiesKeepRowOrder(t *testing.T) {
	rows := StaticRows{}
	for i := 0; i < 5; i++ {
		rows = append(rows, row(i, "Casual", map[models.ClothingGroup]models.Slot{models.GroupTopwear: slot("Tshirts", 10, 10, 10)}))
	}
	got, err := NewMatcher(NewMemoryIndex(rows), 0, 10).Match(context.Background(), charcoal, tshirts, models.UsageCasual)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indices(got))
}

func TestMatcherSkipsRowsWithoutGroupColor(t *testing.T) {
	rows := StaticRows{
		row(0, "Casual", map[models.ClothingGroup]models.Slot{models.GroupTopwear: {Category: "Tshirts"}}),
		row(1, "Casual", map[models.ClothingGroup]models.Slot{models.GroupBottomwear: slot("Jeans", 34, 34, 34)}),
		row(2, "Casual", map[models.ClothingGroup]models.Slot{models.GroupTopwear: slot("Tshirts", 0, 0, 0)}),
	}
	got, err := NewMatcher(NewMemoryIndex(rows), 0, 10).Match(context.Background(), charcoal, tshirts, models.UsageCasual)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, indices(got))
}

func TestMatcherNoRowsIsNotAnError(t *testing.T) {
	got, err := NewMatcher(NewMemoryIndex(scenarioRows), 0, 10).Match(context.Background(), charcoal, tshirts, models.UsageSports)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatcherRejectsEmptyGroup(t *testing.T) {
	_, err := NewMatcher(NewMemoryIndex(scenarioRows), 0, 10).Match(context.Background(), charcoal, Category{Name: "Spacesuits"}, models.UsageCasual)
	assert.True(t, errs.Is(err, errs.KindDataIntegrity))
}

type failingIndex struct{}

func (failingIndex) Nearest(context.Context, models.ClothingGroup, models.Color, int) ([]models.CompatibilityMatch, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestMatcherIndexFailureIsExternal(t *testing.T) {
	_, err := NewMatcher(failingIndex{}, 0, 10).Match(context.Background(), charcoal, tshirts, models.UsageCasual)
	assert.True(t, errs.Is(err, errs.KindExternal))
}
