package recommend

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/outfit/internal/dataset"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/vision"
)

func row(index int, usage string, slots map[models.ClothingGroup]models.Slot) models.CompatibilityRow {
	return models.CompatibilityRow{Index: index, Usage: usage, Slots: slots}
}

func slot(category string, r, g, b uint8) models.Slot {
	return models.Slot{Category: category, Color: models.Color{R: r, G: g, B: b}, HasColor: true}
}

var charcoal = models.Color{R: 34, G: 34, B: 34}

// scenarioRows: rows 0 and 1 store the exact garment color for Tshirts; row 2
// has the color under another category; row 3 is far away.
var scenarioRows = StaticRows{
	row(0, "Casual,Formal", map[models.ClothingGroup]models.Slot{
		models.GroupTopwear:    slot("Tshirts", 34, 34, 34),
		models.GroupBottomwear: slot("Jeans", 0, 0, 128),
		models.GroupFootwear:   slot("Casual Shoes", 255, 255, 255),
	}),
	row(1, "Casual", map[models.ClothingGroup]models.Slot{
		models.GroupTopwear:    slot("Tshirts", 34, 34, 34),
		models.GroupBottomwear: slot("Trousers", 0, 0, 0),
		models.GroupFootwear:   slot("Sneakers", 255, 255, 255),
	}),
	row(2, "Formal", map[models.ClothingGroup]models.Slot{
		models.GroupTopwear:    slot("Shirts", 34, 34, 34),
		models.GroupBottomwear: slot("Trousers", 0, 0, 0),
	}),
	row(3, "Casual", map[models.ClothingGroup]models.Slot{
		models.GroupTopwear:    slot("Tshirts", 200, 200, 200),
		models.GroupBottomwear: slot("Shorts", 128, 128, 128),
	}),
}

var scenarioCatalog = []models.CatalogItem{
	{ClothID: 1, Gender: "Men", Usage: "Casual", Color: "Navy Blue", Type: "Jeans", Name: "Navy Jeans"},
	{ClothID: 2, Gender: "Men", Usage: "Casual", Color: "Black", Type: "Trousers", Name: "Black Trousers"},
	{ClothID: 3, Gender: "Unisex", Usage: "Casual", Color: "White", Type: "Casual Shoes", Name: "White Shoes"},
	{ClothID: 4, Gender: "Women", Usage: "Casual", Color: "White", Type: "Sneakers", Name: "White Sneakers"},
	{ClothID: 5, Gender: "Men", Usage: "Formal", Color: "Black", Type: "Jeans", Name: "Black Jeans"},
	{ClothID: 6, Gender: "Men", Usage: "Formal", Color: "White", Type: "Casual Shoes", Name: "Formal-ish Shoes"},
	{ClothID: 7, Gender: "Men", Usage: "Casual", Color: "Grey", Type: "Shorts", Name: "Grey Shorts"},
}

type classifierFunc func(ctx context.Context, img image.Image) (int, error)

func (f classifierFunc) Classify(ctx context.Context, img image.Image) (int, error) { return f(ctx, img) }

type fakeModels map[models.Usage]vision.CategoryModel

func (f fakeModels) Model(u models.Usage) (vision.CategoryModel, bool) {
	m, ok := f[u]
	return m, ok
}

// labelModel always predicts label.
func labelModel(labels vision.LabelMapping, label int) vision.CategoryModel {
	return vision.CategoryModel{
		Classifier: classifierFunc(func(context.Context, image.Image) (int, error) { return label, nil }),
		Labels:     labels,
	}
}

var testLabels = vision.LabelMapping{0: "Tshirts", 1: "Jeans", 2: "Spacesuits"}

type fixedExtractor struct {
	color models.Color
	err   error
}

func (f fixedExtractor) ExtractImage(context.Context, image.Image) (*vision.Extraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &vision.Extraction{Colors: []vision.DominantColor{{Color: f.color, Share: 1}}}, nil
}

type staticCatalog struct{ c *dataset.Catalog }

func (s staticCatalog) Catalog(context.Context) (*dataset.Catalog, error) { return s.c, nil }

type fakeNamer struct{ err error }

func (f fakeNamer) Name(context.Context, models.Color) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "Mine Shaft", nil
}

type fakeImages struct {
	mu       sync.Mutex
	uploaded map[string][]byte
	deleted  []string
	err      error
	// hang stores the object, then blocks until ctx is cancelled.
	hang bool
}

func (f *fakeImages) Upload(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	if f.uploaded == nil {
		f.uploaded = make(map[string][]byte)
	}
	f.uploaded[key] = data
	f.mu.Unlock()

	if f.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeImages) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	delete(f.uploaded, key)
	return nil
}

type fakeStore struct {
	mu   sync.Mutex
	recs []*models.Recommendation
	err  error
}

func (f *fakeStore) CreateRecommendation(_ context.Context, rec *models.Recommendation) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return nil
}

type fakeEvents struct{ published []*models.Recommendation }

func (f *fakeEvents) PublishRecommendation(_ context.Context, rec *models.Recommendation) error {
	f.published = append(f.published, rec)
	return nil
}

// filteredItems drops ids from lookups, simulating a store that lost rows.
type filteredItems struct {
	c    *dataset.Catalog
	drop map[int]bool
}

func (f filteredItems) ItemsByIDs(ctx context.Context, ids []int) ([]models.CatalogItem, error) {
	items, err := f.c.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var out []models.CatalogItem
	for _, it := range items {
		if !f.drop[it.ClothID] {
			out = append(out, it)
		}
	}
	return out, nil
}

func testImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{34, 34, 34, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type harness struct {
	pipeline *Pipeline
	images   *fakeImages
	store    *fakeStore
	events   *fakeEvents
}

func newHarness(t *testing.T, label int, mutate func(*Deps)) *harness {
	t.Helper()
	cat, err := dataset.NewCatalog(scenarioCatalog)
	require.NoError(t, err)

	h := &harness{images: &fakeImages{}, store: &fakeStore{}, events: &fakeEvents{}}
	deps := Deps{
		Resolver: NewCategoryResolver(fakeModels{
			models.UsageCasual: labelModel(testLabels, label),
			models.UsageFormal: labelModel(testLabels, label),
		}),
		Extractor: fixedExtractor{color: charcoal},
		Matcher:   NewMatcher(NewMemoryIndex(scenarioRows), 0, 10),
		Assembler: NewAssembler(),
		Catalog:   staticCatalog{cat},
		Items:     cat,
		Namer:     fakeNamer{},
		Images:    h.images,
		Store:     h.store,
		Events:    h.events,
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.pipeline = NewPipeline(deps, Options{})
	return h
}
