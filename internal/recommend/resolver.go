// Package recommend turns an uploaded garment into outfit recommendations:
// it resolves the garment's category, matches its color against the
// compatibility templates and fills each template with catalog items.
package recommend

import (
	"context"
	"image"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/vision"
	"github.com/your-org/outfit/internal/wardrobe"
)

// ModelSource returns the classifier and label mapping for a usage.
type ModelSource interface {
	Model(u models.Usage) (vision.CategoryModel, bool)
}

// Category is a resolved article type and its clothing group.
type Category struct {
	Name  string               `json:"category"`
	Group models.ClothingGroup `json:"group"`
}

// CategoryResolver classifies a garment with the model registered for the
// requested usage. There is no fallback to another usage's model.
type CategoryResolver struct {
	models ModelSource
}

func NewCategoryResolver(src ModelSource) *CategoryResolver {
	return &CategoryResolver{models: src}
}

func (r *CategoryResolver) Resolve(ctx context.Context, img image.Image, usage models.Usage) (Category, error) {
	const op = "resolve category"

	m, ok := r.models.Model(usage)
	if !ok {
		return Category{}, errs.Input(op, "usage %q has no classifier", usage)
	}

	idx, err := m.Classifier.Classify(ctx, img)
	if err != nil {
		return Category{}, errs.WrapInference(op, err)
	}

	name, ok := m.Labels.Name(idx)
	if !ok {
		return Category{}, errs.DataIntegrity(op, "%s classifier returned index %d outside its label mapping", usage, idx)
	}

	group, err := wardrobe.GroupFor(name)
	if err != nil {
		return Category{}, err
	}
	return Category{Name: name, Group: group}, nil
}
