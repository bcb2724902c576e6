package vision

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/outfit/internal/observability"
)

// Mask marks garment (foreground) pixels of an image, indexed from the
// image's top-left corner.
type Mask struct {
	W, H int
	fg   []bool
}

func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, fg: make([]bool, w*h)}
}

func (m *Mask) Set(x, y int, foreground bool) { m.fg[y*m.W+x] = foreground }

func (m *Mask) Foreground(x, y int) bool { return m.fg[y*m.W+x] }

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, f := range m.fg {
		if f {
			n++
		}
	}
	return n
}

// Segmenter separates the garment from the background.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) (*Mask, error)
}

// BorderSegmenter estimates the backdrop from the four corner patches and
// treats every pixel close to it as background. Product photos are shot on
// plain backdrops, so this works without a model. A garment may touch the
// frame edges; it rarely covers a bright corner.
type BorderSegmenter struct {
	// Tolerance is the RGB distance under which a pixel counts as background.
	Tolerance float64
	// BorderRatio is the fraction of width/height sampled per corner patch.
	BorderRatio float64
	// WhiteLuminance marks near-white pixels as background when any corner
	// is bright. Zero disables it.
	WhiteLuminance float64
}

// errAmbiguousBackdrop is returned when no corner color wins a clear
// majority and none of them is bright.
var errAmbiguousBackdrop = fmt.Errorf("ambiguous backdrop: %w", ErrExtractionFailed)

func NewBorderSegmenter(tolerance float64) *BorderSegmenter {
	return &BorderSegmenter{Tolerance: tolerance, BorderRatio: 0.03, WhiteLuminance: 245}
}

func (s *BorderSegmenter) Segment(_ context.Context, img image.Image) (*Mask, error) {
	rgba := toRGBA(img)
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	bg, brightBackdrop, err := s.backdrop(rgba)
	if err != nil {
		return nil, err
	}

	mask := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := rgba.RGBAAt(x, y)
			if c.A < 128 {
				continue
			}
			if rgbDistance(c, bg) <= s.Tolerance {
				continue
			}
			if brightBackdrop && luminance(c) >= s.WhiteLuminance {
				continue
			}
			mask.Set(x, y, true)
		}
	}
	return mask, nil
}

// backdrop picks the backdrop color from the corner patches. The brightest
// corner wins when any corner is bright; otherwise one color must own more
// corners than any other.
func (s *BorderSegmenter) backdrop(img *image.RGBA) (color.RGBA, bool, error) {
	corners := s.cornerColors(img)

	if s.WhiteLuminance > 0 {
		brightest, found := color.RGBA{}, false
		for _, c := range corners {
			if luminance(c) >= s.WhiteLuminance-15 && (!found || luminance(c) > luminance(brightest)) {
				brightest, found = c, true
			}
		}
		if found {
			return brightest, true, nil
		}
	}

	votes := make(map[uint16]int, len(corners))
	byBucket := make(map[uint16]color.RGBA, len(corners))
	for _, c := range corners {
		b := bucket(c)
		votes[b]++
		if _, ok := byBucket[b]; !ok {
			byBucket[b] = c
		}
	}
	best, bestVotes, tied := uint16(0), 0, false
	for b, n := range votes {
		switch {
		case n > bestVotes:
			best, bestVotes, tied = b, n, false
		case n == bestVotes:
			tied = true
		}
	}
	if tied || bestVotes < 2 {
		return color.RGBA{}, false, errAmbiguousBackdrop
	}
	return byBucket[best], false, nil
}

// cornerColors returns the dominant color of each corner patch: the mean of
// the pixels in the patch's most populated quantized bucket.
func (s *BorderSegmenter) cornerColors(img *image.RGBA) []color.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	pw := min(w, max(2, int(float64(w)*s.BorderRatio)))
	ph := min(h, max(2, int(float64(h)*s.BorderRatio)))

	origins := []image.Point{{0, 0}, {w - pw, 0}, {0, h - ph}, {w - pw, h - ph}}
	out := make([]color.RGBA, 0, len(origins))
	for _, o := range origins {
		type acc struct{ n, r, g, b int }
		cells := make(map[uint16]*acc)
		var top *acc
		for y := o.Y; y < o.Y+ph; y++ {
			for x := o.X; x < o.X+pw; x++ {
				c := img.RGBAAt(x, y)
				a := cells[bucket(c)]
				if a == nil {
					a = &acc{}
					cells[bucket(c)] = a
				}
				a.n++
				a.r += int(c.R)
				a.g += int(c.G)
				a.b += int(c.B)
				if top == nil || a.n > top.n {
					top = a
				}
			}
		}
		if top == nil {
			continue
		}
		out = append(out, color.RGBA{
			R: uint8(top.r / top.n), G: uint8(top.g / top.n), B: uint8(top.b / top.n), A: 255,
		})
	}
	return out
}

// bucket quantizes c to 8 levels per channel.
func bucket(c color.RGBA) uint16 {
	return uint16(c.R>>5)<<6 | uint16(c.G>>5)<<3 | uint16(c.B>>5)
}

func luminance(c color.RGBA) float64 {
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func rgbDistance(a, b color.RGBA) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// ONNXSegmenter runs a garment segmentation model. The model takes a
// [1, 3, S, S] ImageNet-normalised tensor and returns a [1, 1, S, S] logit map.
type ONNXSegmenter struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputSize    int
	threshold    float32
}

func NewONNXSegmenter(modelPath string, inputSize int, threshold float64) (*ONNXSegmenter, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect segmenter %s: %w", modelPath, err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("segmenter %s: want 1 input and at least 1 output, got %d/%d", modelPath, len(inputs), len(outputs))
	}

	s := int64(inputSize)
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, s, s))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, s, s))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create segmenter session: %w", err)
	}

	return &ONNXSegmenter{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputSize:    inputSize,
		threshold:    float32(threshold),
	}, nil
}

func (s *ONNXSegmenter) Segment(ctx context.Context, img image.Image) (*Mask, error) {
	input := imageToFloat32CHW(img, s.inputSize, s.inputSize, imagenetMean, imagenetStd)
	prob := make([]float32, s.inputSize*s.inputSize)

	err := runWithContext(ctx, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		start := time.Now()
		copy(s.inputTensor.GetData(), input)
		if err := s.session.Run(); err != nil {
			return fmt.Errorf("run segmenter: %w", err)
		}
		observability.InferenceDuration.WithLabelValues("segmenter").Observe(time.Since(start).Seconds())

		for i, logit := range s.outputTensor.GetData() {
			prob[i] = sigmoid(logit)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Scale the model-resolution mask back to the original image.
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	mask := NewMask(w, h)
	for y := 0; y < h; y++ {
		my := y * s.inputSize / h
		for x := 0; x < w; x++ {
			mx := x * s.inputSize / w
			mask.Set(x, y, prob[my*s.inputSize+mx] >= s.threshold)
		}
	}
	return mask, nil
}

func (s *ONNXSegmenter) Close() {
	if s.session != nil {
		s.session.Destroy()
	}
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}
