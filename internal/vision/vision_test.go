package vision

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

// garment draws rects of the given colors on a white backdrop.
func garment(w, h int, rects map[image.Rectangle]color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	for r, c := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetRGBA(x, y, c)
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage(nil)
	assert.True(t, errs.Is(err, errs.KindInput))

	_, err = DecodeImage([]byte("not an image"))
	assert.True(t, errs.Is(err, errs.KindInput))
}

func TestImageToFloat32CHWLayout(t *testing.T) {
	img := garment(2, 2, map[image.Rectangle]color.RGBA{
		image.Rect(0, 0, 2, 2): {R: 10, G: 20, B: 30, A: 255},
	})
	data := imageToFloat32CHW(img, 2, 2, [3]float32{0, 0, 0}, [3]float32{1, 1, 1})
	require.Len(t, data, 12)
	assert.Equal(t, float32(10), data[0])
	assert.Equal(t, float32(20), data[4])
	assert.Equal(t, float32(30), data[8])
}

func TestBorderSegmenter(t *testing.T) {
	img := garment(40, 40, map[image.Rectangle]color.RGBA{
		image.Rect(10, 10, 30, 30): {R: 34, G: 34, B: 34, A: 255},
	})
	mask, err := NewBorderSegmenter(40).Segment(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, 400, mask.Count())
	assert.True(t, mask.Foreground(15, 15))
	assert.False(t, mask.Foreground(2, 2))
}

func TestBorderSegmenterDropsNearWhiteOnBrightBackdrop(t *testing.T) {
	img := garment(40, 40, map[image.Rectangle]color.RGBA{
		image.Rect(10, 10, 20, 30): {R: 120, G: 0, B: 0, A: 255},
		image.Rect(20, 10, 30, 30): {R: 250, G: 250, B: 250, A: 255},
	})
	mask, err := NewBorderSegmenter(1).Segment(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, 200, mask.Count())
}

func TestBorderSegmenterGarmentTouchingEdges(t *testing.T) {
	img := garment(100, 100, map[image.Rectangle]color.RGBA{
		image.Rect(0, 20, 100, 100): {R: 34, G: 34, B: 34, A: 255},
	})
	ex := NewColorExtractor(NewBorderSegmenter(40), 3, 0)

	res, err := ex.ExtractImage(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, models.Color{R: 34, G: 34, B: 34}, res.Dominant())
	assert.InDelta(t, 1.0, res.Colors[0].Share, 1e-9)
	assert.Equal(t, 8000, res.Mask.Count())
	assert.False(t, res.Mask.Foreground(50, 5))
}

func TestBorderSegmenterDarkBackdropMajority(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	fill(img, img.Bounds(), color.RGBA{R: 90, G: 90, B: 90, A: 255})
	fill(img, image.Rect(0, 20, 20, 40), color.RGBA{R: 200, G: 30, B: 30, A: 255})

	mask, err := NewBorderSegmenter(40).Segment(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, 400, mask.Count())
	assert.True(t, mask.Foreground(0, 39))
}

func TestBorderSegmenterAmbiguousBackdrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	fill(img, image.Rect(0, 0, 20, 20), color.RGBA{R: 120, A: 255})
	fill(img, image.Rect(20, 0, 40, 20), color.RGBA{G: 120, A: 255})
	fill(img, image.Rect(0, 20, 20, 40), color.RGBA{B: 120, A: 255})
	fill(img, image.Rect(20, 20, 40, 40), color.RGBA{R: 90, G: 90, B: 90, A: 255})

	_, err := NewBorderSegmenter(40).Segment(context.Background(), img)
	assert.ErrorIs(t, err, ErrExtractionFailed)

	_, err = NewColorExtractor(NewBorderSegmenter(40), 3, 0).ExtractImage(context.Background(), img)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.True(t, errs.Is(err, errs.KindInference))
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestExtractSingleColor(t *testing.T) {
	img := garment(40, 40, map[image.Rectangle]color.RGBA{
		image.Rect(10, 10, 30, 30): {R: 34, G: 34, B: 34, A: 255},
	})
	ex := NewColorExtractor(NewBorderSegmenter(40), 3, 0)

	res, err := ex.Extract(context.Background(), encodePNG(t, img))
	require.NoError(t, err)
	require.Len(t, res.Colors, 1)
	assert.Equal(t, models.Color{R: 34, G: 34, B: 34}, res.Dominant())
	assert.InDelta(t, 1.0, res.Colors[0].Share, 1e-9)
	assert.Equal(t, 400, res.Mask.Count())
}

func TestExtractRanksByPrevalence(t *testing.T) {
	img := garment(60, 60, map[image.Rectangle]color.RGBA{
		image.Rect(10, 10, 30, 40): {R: 30, G: 30, B: 200, A: 255},
		image.Rect(30, 10, 50, 40): {R: 30, G: 30, B: 200, A: 255},
		image.Rect(10, 40, 50, 50): {R: 200, G: 30, B: 30, A: 255},
	})
	ex := NewColorExtractor(NewBorderSegmenter(40), 2, 500)

	res, err := ex.ExtractImage(context.Background(), img)
	require.NoError(t, err)
	require.Len(t, res.Colors, 2)
	assert.Equal(t, models.Color{R: 30, G: 30, B: 200}, res.Colors[0].Color)
	assert.Equal(t, models.Color{R: 200, G: 30, B: 30}, res.Colors[1].Color)
	assert.Greater(t, res.Colors[0].Share, res.Colors[1].Share)

	again, err := ex.ExtractImage(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, res.Colors, again.Colors)
}

func TestExtractFailsWithoutForeground(t *testing.T) {
	img := garment(20, 20, nil)
	ex := NewColorExtractor(NewBorderSegmenter(40), 3, 0)

	_, err := ex.ExtractImage(context.Background(), img)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionFailed)
	assert.True(t, errs.Is(err, errs.KindInference))
}

type failingSegmenter struct{}

func (failingSegmenter) Segment(context.Context, image.Image) (*Mask, error) {
	return nil, assert.AnError
}

func TestExtractSegmenterFailureIsInference(t *testing.T) {
	ex := NewColorExtractor(failingSegmenter{}, 3, 0)
	_, err := ex.ExtractImage(context.Background(), garment(4, 4, nil))
	assert.True(t, errs.Is(err, errs.KindInference))
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, -1, argmax(nil))
	assert.Equal(t, 2, argmax([]float32{0.1, 0.2, 0.9, 0.3}))
	assert.Equal(t, 0, argmax([]float32{0.5, 0.5}))
}

func TestParseLabelMapping(t *testing.T) {
	m, err := ParseLabelMapping([]byte(`["Tshirts", "Jeans"]`))
	require.NoError(t, err)
	name, ok := m.Name(1)
	assert.True(t, ok)
	assert.Equal(t, "Jeans", name)

	m, err = ParseLabelMapping([]byte(`{"1": "Jeans", "0": "Tshirts"}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Tshirts", "Jeans"}, m.Labels())

	_, err = ParseLabelMapping([]byte(`{"0": "Tshirts", "2": "Jeans"}`))
	assert.ErrorContains(t, err, "no entry for index 1")

	_, err = ParseLabelMapping([]byte(`{"a": "Tshirts"}`))
	assert.Error(t, err)

	_, err = ParseLabelMapping([]byte(`[]`))
	assert.Error(t, err)
}

type fixedClassifier int

func (c fixedClassifier) Classify(context.Context, image.Image) (int, error) { return int(c), nil }

func TestRegistryValidatesLabels(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(models.UsageCasual, CategoryModel{
		Classifier: fixedClassifier(0),
		Labels:     LabelMapping{0: "Tshirts", 1: "Spacesuits"},
	})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindDataIntegrity))
	assert.ErrorContains(t, err, "Spacesuits")

	require.NoError(t, reg.Register(models.UsageCasual, CategoryModel{
		Classifier: fixedClassifier(0),
		Labels:     LabelMapping{0: "Tshirts", 1: "Jeans"},
	}))
	_, ok := reg.Model(models.UsageCasual)
	assert.True(t, ok)
	_, ok = reg.Model(models.UsageFormal)
	assert.False(t, ok)

	status, seg := reg.Status()
	assert.Equal(t, []ModelStatus{{Usage: "Casual", Labels: 2}}, status)
	assert.Equal(t, "border", seg)
}
