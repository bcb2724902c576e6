package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/outfit/internal/observability"
)

// Classifier maps a garment image to a label index.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (int, error)
}

// ONNXClassifier runs an article-type classification model exported to ONNX.
// The model takes a [1, 3, S, S] ImageNet-normalised tensor and returns
// [1, N] class scores.
type ONNXClassifier struct {
	name         string
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputSize    int
	numClasses   int
}

// NewONNXClassifier loads the model at modelPath. Input and output names are
// read from the model itself.
func NewONNXClassifier(name, modelPath string, inputSize, numClasses int) (*ONNXClassifier, error) {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect classifier %s: %w", modelPath, err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("classifier %s: want 1 input and at least 1 output, got %d/%d", modelPath, len(inputs), len(outputs))
	}

	inputShape := ort.NewShape(1, 3, int64(inputSize), int64(inputSize))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(numClasses))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
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
		return nil, fmt.Errorf("create classifier session: %w", err)
	}

	return &ONNXClassifier{
		name:         name,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputSize:    inputSize,
		numClasses:   numClasses,
	}, nil
}

// Classify returns the index of the highest-scoring class.
func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image) (int, error) {
	input := imageToFloat32CHW(img, c.inputSize, c.inputSize, imagenetMean, imagenetStd)

	var best int
	err := runWithContext(ctx, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()

		start := time.Now()
		copy(c.inputTensor.GetData(), input)
		if err := c.session.Run(); err != nil {
			return fmt.Errorf("run classifier: %w", err)
		}
		observability.InferenceDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

		best = argmax(c.outputTensor.GetData())
		return nil
	})
	if err != nil {
		return 0, err
	}
	if best < 0 {
		return 0, fmt.Errorf("classifier %s returned no scores", c.name)
	}
	return best, nil
}

func (c *ONNXClassifier) Close() {
	if c.session != nil {
		c.session.Destroy()
	}
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
}

// argmax returns the first index of the largest value, or -1 for an empty slice.
func argmax(scores []float32) int {
	best := -1
	for i, s := range scores {
		if best < 0 || s > scores[best] {
			best = i
		}
	}
	return best
}

// LabelMapping translates classifier indices to article-type names.
type LabelMapping map[int]string

// LoadLabelMapping reads a mapping file. Both {"0": "Tshirts", ...} objects
// and ["Tshirts", ...] arrays are accepted.
func LoadLabelMapping(path string) (LabelMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label mapping: %w", err)
	}
	return ParseLabelMapping(data)
}

func ParseLabelMapping(data []byte) (LabelMapping, error) {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		m := make(LabelMapping, len(list))
		for i, name := range list {
			m[i] = name
		}
		return m, m.validate()
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("parse label mapping: %w", err)
	}
	m := make(LabelMapping, len(obj))
	for k, name := range obj {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("parse label mapping: key %q is not an index", k)
		}
		m[idx] = name
	}
	return m, m.validate()
}

// validate requires indices 0..n-1 with non-empty names.
func (m LabelMapping) validate() error {
	if len(m) == 0 {
		return fmt.Errorf("label mapping is empty")
	}
	for i := 0; i < len(m); i++ {
		name, ok := m[i]
		if !ok {
			return fmt.Errorf("label mapping has no entry for index %d", i)
		}
		if name == "" {
			return fmt.Errorf("label mapping index %d has an empty name", i)
		}
	}
	return nil
}

// Name returns the category for idx.
func (m LabelMapping) Name(idx int) (string, bool) {
	name, ok := m[idx]
	return name, ok
}

// Labels returns every category ordered by index.
func (m LabelMapping) Labels() []string {
	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	out := make([]string, len(idx))
	for i, k := range idx {
		out[i] = m[k]
	}
	return out
}
