package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/outfit/internal/auth"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/recommend"
	"github.com/your-org/outfit/pkg/dto"
)

// Recommender runs the recommendation pipeline.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Outcome, error)
	Categorize(ctx context.Context, data []byte, usage string) (recommend.Category, error)
}

// RecommendationReader reads stored recommendations and the caller's bookmarks on them.
type RecommendationReader interface {
	GetRecommendation(ctx context.Context, id uuid.UUID) (*models.Recommendation, error)
	ListRecommendations(ctx context.Context, userID int) ([]models.Recommendation, error)
	ListSavedOutfits(ctx context.Context, userID int, uploadID *uuid.UUID) ([]models.SavedOutfit, error)
}

// ImageURLResolver returns a currently valid URL for a stored image key.
type ImageURLResolver interface {
	ImageURL(ctx context.Context, key string) (string, error)
}

type RecommendationHandler struct {
	pipeline       Recommender
	store          RecommendationReader
	urls           ImageURLResolver
	maxUploadBytes int64
}

// NewRecommendationHandler builds the handler. urls may be nil, in which case
// stored image URLs are served as they were recorded.
func NewRecommendationHandler(pipeline Recommender, store RecommendationReader, urls ImageURLResolver, maxUploadBytes int64) *RecommendationHandler {
	return &RecommendationHandler{pipeline: pipeline, store: store, urls: urls, maxUploadBytes: maxUploadBytes}
}

// Create accepts a multipart upload (image, gender, usage) and runs the pipeline.
func (h *RecommendationHandler) Create(c *gin.Context) {
	up, ok := readImage(c, h.maxUploadBytes)
	if !ok {
		return
	}

	out, err := h.pipeline.Recommend(c.Request.Context(), recommend.Request{
		UserID:      auth.UserID(c),
		Image:       up.data,
		Filename:    up.filename,
		ContentType: up.contentType,
		Gender:      c.PostForm("gender"),
		Usage:       c.PostForm("usage"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	rec := out.Recommendation
	c.JSON(http.StatusCreated, dto.RecommendationResponse{
		UniqueID:  rec.ID,
		Status:    string(out.Status),
		Type:      rec.Category,
		Group:     string(rec.Group),
		Color:     rec.ColorName,
		RGB:       [3]uint8{rec.DominantColor.R, rec.DominantColor.G, rec.DominantColor.B},
		ImageURL:  rec.ImageURL,
		Gender:    rec.Gender,
		Usage:     string(rec.Usage),
		Outfits:   rec.Outfits,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	})
}

// Get returns one of the caller's recommendations with per-outfit saved flags.
func (h *RecommendationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recommendation id"})
		return
	}
	userID := auth.UserID(c)

	rec, err := h.store.GetRecommendation(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil || rec.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "recommendation not found"})
		return
	}

	saved, err := h.store.ListSavedOutfits(c.Request.Context(), userID, &id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.refreshImageURL(c.Request.Context(), rec)
	c.JSON(http.StatusOK, detail(rec, saved))
}

// ListUploads returns the caller's past uploads, newest first.
func (h *RecommendationHandler) ListUploads(c *gin.Context) {
	recs, err := h.store.ListRecommendations(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.UploadResponse, 0, len(recs))
	for i := range recs {
		h.refreshImageURL(c.Request.Context(), &recs[i])
		resp = append(resp, uploadResponse(&recs[i]))
	}
	c.JSON(http.StatusOK, dto.UploadListResponse{Uploads: resp, Count: len(resp)})
}

// refreshImageURL replaces the recorded image URL, which may be an expired
// presigned link, with a current one. The recorded URL is kept on failure.
func (h *RecommendationHandler) refreshImageURL(ctx context.Context, rec *models.Recommendation) {
	if h.urls == nil || rec.ImageKey == "" {
		return
	}
	u, err := h.urls.ImageURL(ctx, rec.ImageKey)
	if err != nil {
		slog.Warn("refresh image url", "recommendation", rec.ID, "key", rec.ImageKey, "error", err)
		return
	}
	rec.ImageURL = u
}

func uploadResponse(rec *models.Recommendation) dto.UploadResponse {
	return dto.UploadResponse{
		UniqueID:  rec.ID,
		Type:      rec.Category,
		Color:     rec.ColorName,
		ImageURL:  rec.ImageURL,
		Gender:    rec.Gender,
		Usage:     string(rec.Usage),
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

// OutfitID is the client-side identifier of the i-th outfit (zero based) of
// a recommendation.
func OutfitID(uploadID uuid.UUID, i int) string {
	return fmt.Sprintf("outfit-%s-%d", uploadID, i)
}

func detail(rec *models.Recommendation, saved []models.SavedOutfit) dto.RecommendationDetail {
	savedIDs := make([]string, 0, len(saved))
	isSaved := make(map[string]bool, len(saved))
	for _, so := range saved {
		savedIDs = append(savedIDs, so.ClientOutfitID)
		isSaved[so.ClientOutfitID] = true
	}

	style := string(rec.Usage)
	if style == "" {
		style = string(models.UsageCasual)
	}

	outfits := make([]dto.OutfitResponse, 0, len(rec.Outfits))
	for i, items := range rec.Outfits {
		id := OutfitID(rec.ID, i)
		outfits = append(outfits, dto.OutfitResponse{
			ID:      id,
			Name:    fmt.Sprintf("%s Outfit %d", style, i+1),
			Style:   style,
			Items:   items,
			IsSaved: isSaved[id],
		})
	}

	return dto.RecommendationDetail{
		UploadResponse: uploadResponse(rec),
		Outfits:        outfits,
		SavedOutfitIDs: savedIDs,
	}
}
