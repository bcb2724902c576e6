package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
)

// ErrExtractionFailed is returned when the garment cannot be isolated from
// the backdrop.
var ErrExtractionFailed = errors.New("extraction failed")

// DominantColor is one cluster of garment pixels.
type DominantColor struct {
	Color models.Color `json:"color"`
	Share float64      `json:"share"` // fraction of foreground pixels
}

// Extraction is the result of color extraction. Colors are ranked by share,
// most prevalent first.
type Extraction struct {
	Colors []DominantColor
	Mask   *Mask
}

// Dominant returns the most prevalent color.
func (e *Extraction) Dominant() models.Color {
	return e.Colors[0].Color
}

type ColorExtractor struct {
	segmenter  Segmenter
	k          int
	maxSamples int
	iterations int
}

func NewColorExtractor(segmenter Segmenter, k, maxSamples int) *ColorExtractor {
	if k <= 0 {
		k = 3
	}
	return &ColorExtractor{segmenter: segmenter, k: k, maxSamples: maxSamples, iterations: 10}
}

// Extract decodes data, isolates the garment and clusters its pixels.
func (e *ColorExtractor) Extract(ctx context.Context, data []byte) (*Extraction, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return e.ExtractImage(ctx, img)
}

func (e *ColorExtractor) ExtractImage(ctx context.Context, img image.Image) (*Extraction, error) {
	mask, err := e.segmenter.Segment(ctx, img)
	if err != nil {
		return nil, errs.WrapInference("segment garment", err)
	}

	pixels := e.sample(toRGBA(img), mask)
	if len(pixels) == 0 {
		return nil, errs.WrapInference("extract color", fmt.Errorf("no foreground pixels: %w", ErrExtractionFailed))
	}

	return &Extraction{Colors: kmeans(pixels, e.k, e.iterations), Mask: mask}, nil
}

// sample collects foreground pixels, striding over the image when it holds
// more than maxSamples of them.
func (e *ColorExtractor) sample(img *image.RGBA, mask *Mask) [][]float64 {
	total := mask.Count()
	if total == 0 {
		return nil
	}
	stride := 1
	if e.maxSamples > 0 && total > e.maxSamples {
		stride = int(math.Ceil(float64(total) / float64(e.maxSamples)))
	}

	out := make([][]float64, 0, total/stride+1)
	n := 0
	for y := 0; y < mask.H; y++ {
		for x := 0; x < mask.W; x++ {
			if !mask.Foreground(x, y) {
				continue
			}
			if n%stride == 0 {
				off := img.PixOffset(x, y)
				out = append(out, []float64{float64(img.Pix[off]), float64(img.Pix[off+1]), float64(img.Pix[off+2])})
			}
			n++
		}
	}
	return out
}

// kmeans clusters pixels into at most k colors. Centroids are seeded from the
// most populated cells of a 16-level histogram so the result is deterministic.
func kmeans(pixels [][]float64, k, iterations int) []DominantColor {
	centroids := seedCentroids(pixels, k)
	assign := make([]int, len(pixels))

	for it := 0; it < iterations; it++ {
		changed := false
		for i, p := range pixels {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := floats.Distance(p, centroid, 2); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, 3)
		}
		for i, p := range pixels {
			floats.Add(sums[assign[i]], p)
			counts[assign[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), sums[c])
				centroids[c] = sums[c]
			}
		}
		if !changed && it > 0 {
			break
		}
	}

	counts := make([]int, len(centroids))
	for _, a := range assign {
		counts[a]++
	}

	out := make([]DominantColor, 0, len(centroids))
	for c, centroid := range centroids {
		if counts[c] == 0 {
			continue
		}
		out = append(out, DominantColor{
			Color: models.Color{R: clampByte(centroid[0]), G: clampByte(centroid[1]), B: clampByte(centroid[2])},
			Share: float64(counts[c]) / float64(len(pixels)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Share > out[j].Share })
	return out
}

func seedCentroids(pixels [][]float64, k int) [][]float64 {
	type bin struct {
		key   int
		count int
		sum   [3]float64
	}
	bins := make(map[int]*bin)
	for _, p := range pixels {
		key := int(p[0])/16<<8 | int(p[1])/16<<4 | int(p[2])/16
		b, ok := bins[key]
		if !ok {
			b = &bin{key: key}
			bins[key] = b
		}
		b.count++
		b.sum[0] += p[0]
		b.sum[1] += p[1]
		b.sum[2] += p[2]
	}

	ranked := make([]*bin, 0, len(bins))
	for _, b := range bins {
		ranked = append(ranked, b)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].key < ranked[j].key
	})

	if len(ranked) < k {
		k = len(ranked)
	}
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		n := float64(ranked[i].count)
		centroids[i] = []float64{ranked[i].sum[0] / n, ranked[i].sum[1] / n, ranked[i].sum[2] / n}
	}
	return centroids
}

func clampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
