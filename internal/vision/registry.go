package vision

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/your-org/outfit/internal/config"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/wardrobe"
)

// CategoryModel pairs a classifier with the mapping of its output indices.
type CategoryModel struct {
	Classifier Classifier
	Labels     LabelMapping
}

// Registry holds one category model per usage. It is filled at startup and
// read-only afterwards.
type Registry struct {
	models    map[models.Usage]CategoryModel
	segmenter string
	closers   []func()
}

func NewRegistry() *Registry {
	return &Registry{models: make(map[models.Usage]CategoryModel), segmenter: "border"}
}

// Register adds the model for usage u. Every label must map to a clothing group.
func (r *Registry) Register(u models.Usage, m CategoryModel) error {
	if m.Classifier == nil {
		return fmt.Errorf("register %s model: classifier is nil", u)
	}
	if err := m.Labels.validate(); err != nil {
		return fmt.Errorf("register %s model: %w", u, err)
	}
	if err := wardrobe.ValidateLabels(m.Labels.Labels()); err != nil {
		return fmt.Errorf("register %s model: %w", u, err)
	}
	r.models[u] = m
	return nil
}

// Model returns the category model registered for u.
func (r *Registry) Model(u models.Usage) (CategoryModel, bool) {
	m, ok := r.models[u]
	return m, ok
}

// ModelStatus describes one loaded model.
type ModelStatus struct {
	Usage  string `json:"usage"`
	Labels int    `json:"labels"`
}

// Status lists the registered classifiers ordered by usage, plus the
// segmentation method in use.
func (r *Registry) Status() ([]ModelStatus, string) {
	out := make([]ModelStatus, 0, len(r.models))
	for u, m := range r.models {
		out = append(out, ModelStatus{Usage: string(u), Labels: len(m.Labels)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Usage < out[j].Usage })
	return out, r.segmenter
}

func (r *Registry) Close() {
	for _, c := range r.closers {
		c()
	}
}

// LoadRegistry loads the classifiers named in cfg and the segmenter used for
// color extraction. ONNX Runtime must already be initialised.
func LoadRegistry(cfg config.VisionConfig) (*Registry, Segmenter, error) {
	reg := NewRegistry()

	usages := make([]string, 0, len(cfg.Classifiers))
	for u := range cfg.Classifiers {
		usages = append(usages, u)
	}
	sort.Strings(usages)

	for _, name := range usages {
		cc := cfg.Classifiers[name]
		usage, err := wardrobe.ParseUsage(name)
		if err != nil {
			reg.Close()
			return nil, nil, fmt.Errorf("classifier %q: %w", name, err)
		}

		labels, err := LoadLabelMapping(filepath.Join(cfg.ModelsDir, cc.Labels))
		if err != nil {
			reg.Close()
			return nil, nil, fmt.Errorf("classifier %s: %w", usage, err)
		}

		modelPath := filepath.Join(cfg.ModelsDir, cc.Model)
		slog.Info("loading classifier", "usage", usage, "path", modelPath, "labels", len(labels))
		cl, err := NewONNXClassifier(string(usage), modelPath, cc.InputSize, len(labels))
		if err != nil {
			reg.Close()
			return nil, nil, fmt.Errorf("load %s classifier: %w", usage, err)
		}
		reg.closers = append(reg.closers, cl.Close)

		if err := reg.Register(usage, CategoryModel{Classifier: cl, Labels: labels}); err != nil {
			reg.Close()
			return nil, nil, err
		}
	}

	var seg Segmenter = NewBorderSegmenter(cfg.BackgroundTolerance)
	if cfg.SegmenterModel != "" {
		path := filepath.Join(cfg.ModelsDir, cfg.SegmenterModel)
		slog.Info("loading segmentation model", "path", path)
		onnxSeg, err := NewONNXSegmenter(path, cfg.SegmenterInputSize, cfg.MaskThreshold)
		if err != nil {
			reg.Close()
			return nil, nil, fmt.Errorf("load segmenter: %w", err)
		}
		reg.closers = append(reg.closers, onnxSeg.Close)
		reg.segmenter = cfg.SegmenterModel
		seg = onnxSeg
	}

	slog.Info("vision models ready", "classifiers", len(reg.models), "segmenter", reg.segmenter)
	return reg, seg, nil
}
