package recommend

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/outfit/internal/dataset"
	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/observability"
	"github.com/your-org/outfit/internal/vision"
	"github.com/your-org/outfit/internal/wardrobe"
)

// Stage is a pipeline state. A run moves through the stages in declaration
// order or ends in StageFailed.
type Stage string

const (
	StageReceived       Stage = "received"
	StageCategorized    Stage = "categorized"
	StageColorExtracted Stage = "color_extracted"
	StageMatched        Stage = "matched"
	StageAssembled      Stage = "assembled"
	StagePersisted      Stage = "persisted"
	StageReturned       Stage = "returned"
	StageFailed         Stage = "failed"
)

// StageError records the stage a run was trying to reach when it failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

func fail(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Status separates a run that produced outfits from one that legitimately
// found none.
type Status string

const (
	StatusMatched Status = "matched"
	StatusNoMatch Status = "no_match"
)

type (
	// ColorExtractor finds the dominant garment colors of an image.
	ColorExtractor interface {
		ExtractImage(ctx context.Context, img image.Image) (*vision.Extraction, error)
	}

	ColorNamer interface {
		Name(ctx context.Context, c models.Color) (string, error)
	}

	// ImageStore keeps uploaded images and returns a durable URL for them.
	ImageStore interface {
		Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
		DeleteObject(ctx context.Context, key string) error
	}

	// RecommendationStore writes a recommendation atomically.
	RecommendationStore interface {
		CreateRecommendation(ctx context.Context, rec *models.Recommendation) error
	}

	// CatalogSource provides the full catalog for outfit assembly.
	CatalogSource interface {
		Catalog(ctx context.Context) (*dataset.Catalog, error)
	}

	// CatalogStore looks items up by id, in any order.
	CatalogStore interface {
		ItemsByIDs(ctx context.Context, ids []int) ([]models.CatalogItem, error)
	}

	// EventPublisher announces stored recommendations.
	EventPublisher interface {
		PublishRecommendation(ctx context.Context, rec *models.Recommendation) error
	}
)

// Request is one upload to recommend outfits for.
type Request struct {
	UserID      int
	Image       []byte
	Filename    string
	ContentType string
	Gender      string
	Usage       string
}

// Outcome is the result of a successful run.
type Outcome struct {
	ID             uuid.UUID              `json:"id"`
	Status         Status                 `json:"status"`
	Recommendation *models.Recommendation `json:"recommendation"`
}

type Options struct {
	InferenceTimeout time.Duration
	UploadTimeout    time.Duration
}

// Deps are the collaborators of a Pipeline. Events may be nil.
type Deps struct {
	Resolver  *CategoryResolver
	Extractor ColorExtractor
	Matcher   *Matcher
	Assembler *Assembler
	Catalog   CatalogSource
	Items     CatalogStore
	Namer     ColorNamer
	Images    ImageStore
	Store     RecommendationStore
	Events    EventPublisher
}

// Pipeline runs one recommendation per call. It holds no per-request state
// and is safe for concurrent use.
type Pipeline struct {
	Deps
	opts Options
	now  func() time.Time
}

func NewPipeline(deps Deps, opts Options) *Pipeline {
	return &Pipeline{Deps: deps, opts: opts, now: time.Now}
}

// Recommend runs the whole pipeline. On success the recommendation has been
// persisted under Outcome.ID. Any failure is a *StageError wrapping an
// errs-classified error and leaves nothing persisted.
func (p *Pipeline) Recommend(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	out, stage, err := p.run(ctx, req)

	usage := "invalid"
	if u, perr := wardrobe.ParseUsage(req.Usage); perr == nil {
		usage = string(u)
	}
	if err != nil {
		kind := errs.KindOf(err)
		observability.PipelineFailures.WithLabelValues(string(stage), kind.String()).Inc()
		observability.RecommendationsTotal.WithLabelValues(usage, "failed").Inc()
		slog.Warn("recommendation failed",
			"user_id", req.UserID,
			"usage", usage,
			"stage", stage,
			"kind", kind.String(),
			"error", err,
		)
		return nil, fail(stage, err)
	}

	observability.RecommendationsTotal.WithLabelValues(usage, string(out.Status)).Inc()
	observability.OutfitGroups.Observe(float64(len(out.Recommendation.Outfits)))
	slog.Info("recommendation created",
		"id", out.ID,
		"user_id", req.UserID,
		"usage", usage,
		"category", out.Recommendation.Category,
		"color", out.Recommendation.DominantColor.String(),
		"outfits", len(out.Recommendation.Outfits),
		"elapsed", time.Since(start),
	)
	return out, nil
}

// run returns the stage that failed alongside any error.
func (p *Pipeline) run(ctx context.Context, req Request) (*Outcome, Stage, error) {
	// Received
	gender, err := wardrobe.ParseGender(req.Gender)
	if err != nil {
		return nil, StageReceived, err
	}
	usage, err := wardrobe.ParseUsage(req.Usage)
	if err != nil {
		return nil, StageReceived, err
	}
	img, err := vision.DecodeImage(req.Image)
	if err != nil {
		return nil, StageReceived, err
	}

	// Categorized and ColorExtracted are independent and run concurrently.
	var (
		cat        Category
		extraction *vision.Extraction
		failed     = StageCategorized
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer observeStage(StageCategorized, time.Now())
		ictx, cancel := p.inferenceContext(gctx)
		defer cancel()
		c, err := p.Resolver.Resolve(ictx, img, usage)
		if err != nil {
			return err
		}
		cat = c
		return nil
	})
	g.Go(func() error {
		defer observeStage(StageColorExtracted, time.Now())
		ictx, cancel := p.inferenceContext(gctx)
		defer cancel()
		ex, err := p.Extractor.ExtractImage(ictx, img)
		if err != nil {
			return &StageError{Stage: StageColorExtracted, Err: err}
		}
		extraction = ex
		return nil
	})
	if err := g.Wait(); err != nil {
		var se *StageError
		if errors.As(err, &se) {
			failed, err = se.Stage, se.Err
		}
		// timeouts surface as bare context errors
		if errs.KindOf(err) == errs.KindUnknown {
			err = errs.WrapInference("run models", err)
		}
		return nil, failed, err
	}
	color := extraction.Dominant()

	// Matched
	t := time.Now()
	matches, err := p.Matcher.Match(ctx, color, cat, usage)
	if err != nil {
		return nil, StageMatched, err
	}
	observeStage(StageMatched, t)

	// Assembled
	t = time.Now()
	catalog, err := p.Catalog.Catalog(ctx)
	if err != nil {
		return nil, StageAssembled, err
	}
	groups := p.Assembler.Assemble(matches, catalog.Items(), cat.Group, gender, usage)
	observeStage(StageAssembled, t)

	// Persisted
	t = time.Now()
	rec := &models.Recommendation{
		ID:            uuid.New(),
		UserID:        req.UserID,
		Usage:         usage,
		Gender:        gender,
		Category:      cat.Name,
		Group:         cat.Group,
		DominantColor: color,
		CreatedAt:     p.now().UTC(),
	}
	if err := p.persist(ctx, req, rec, groups); err != nil {
		return nil, StagePersisted, err
	}
	observeStage(StagePersisted, t)

	// Returned
	if p.Events != nil {
		if err := p.Events.PublishRecommendation(ctx, rec); err != nil {
			slog.Warn("publish recommendation event", "id", rec.ID, "error", err)
		}
	}

	status := StatusMatched
	if len(rec.Outfits) == 0 {
		status = StatusNoMatch
	}
	return &Outcome{ID: rec.ID, Status: status, Recommendation: rec}, StageReturned, nil
}

// persist names the color, uploads the image, expands the outfits and writes
// the record. Once an upload has been attempted, the object is removed again
// if the run fails, even when the upload itself was cancelled mid-flight.
func (p *Pipeline) persist(ctx context.Context, req Request, rec *models.Recommendation, groups []models.OutfitGroup) error {
	key := imageKey(req.UserID, rec.ID, req.Filename)
	uploadAttempted := false

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, err := p.Namer.Name(gctx, rec.DominantColor)
		if err != nil {
			return errs.WrapExternal("name color", err)
		}
		rec.ColorName = name
		return nil
	})
	g.Go(func() error {
		uctx, cancel := withTimeout(gctx, p.opts.UploadTimeout)
		defer cancel()
		uploadAttempted = true
		url, err := p.Images.Upload(uctx, key, req.Image, contentType(req))
		if err != nil {
			return errs.WrapExternal("upload image", err)
		}
		rec.ImageURL, rec.ImageKey = url, key
		return nil
	})
	err := g.Wait()

	if err == nil {
		rec.Outfits, err = p.expand(ctx, groups)
	}
	if err == nil {
		err = p.Store.CreateRecommendation(ctx, rec)
		if err != nil && !errs.Is(err, errs.KindDataIntegrity) {
			err = errs.WrapExternal("store recommendation", err)
		}
	}

	if err != nil && uploadAttempted {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if derr := p.Images.DeleteObject(cleanupCtx, key); derr != nil {
			slog.Warn("remove orphaned upload", "key", key, "error", derr)
		}
	}
	return err
}

// expand replaces item ids with catalog items, keeping group order and
// dropping ids the store does not know.
func (p *Pipeline) expand(ctx context.Context, groups []models.OutfitGroup) ([][]models.CatalogItem, error) {
	var ids []int
	for _, g := range groups {
		ids = append(ids, g...)
	}

	byID := make(map[int]models.CatalogItem, len(ids))
	if len(ids) > 0 {
		items, err := p.Items.ItemsByIDs(ctx, ids)
		if err != nil {
			return nil, errs.WrapExternal("load catalog items", err)
		}
		for _, it := range items {
			byID[it.ClothID] = it
		}
	}

	out := make([][]models.CatalogItem, 0, len(groups))
	for _, g := range groups {
		items := make([]models.CatalogItem, 0, len(g))
		for _, id := range g {
			if it, ok := byID[id]; ok {
				items = append(items, it)
			}
		}
		out = append(out, items)
	}
	return out, nil
}

// Categorize only classifies an image, without matching or persisting.
func (p *Pipeline) Categorize(ctx context.Context, data []byte, usageRaw string) (Category, error) {
	usage, err := wardrobe.ParseUsage(usageRaw)
	if err != nil {
		return Category{}, err
	}
	img, err := vision.DecodeImage(data)
	if err != nil {
		return Category{}, err
	}
	ictx, cancel := p.inferenceContext(ctx)
	defer cancel()
	return p.Resolver.Resolve(ictx, img, usage)
}

func (p *Pipeline) inferenceContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, p.opts.InferenceTimeout)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func observeStage(stage Stage, start time.Time) {
	observability.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
}

func imageKey(userID int, id uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("uploads/%d/%s%s", userID, id, ext)
}

func contentType(req Request) string {
	if req.ContentType != "" {
		return req.ContentType
	}
	return "application/octet-stream"
}
