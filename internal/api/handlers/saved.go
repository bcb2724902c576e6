package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/outfit/internal/auth"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/storage"
	"github.com/your-org/outfit/pkg/dto"
)

type SavedOutfitStore interface {
	SaveOutfit(ctx context.Context, so *models.SavedOutfit) error
	UnsaveOutfit(ctx context.Context, userID int, uploadID uuid.UUID, clientOutfitID string) error
	ListSavedOutfits(ctx context.Context, userID int, uploadID *uuid.UUID) ([]models.SavedOutfit, error)
}

type SavedHandler struct {
	store SavedOutfitStore
}

func NewSavedHandler(store SavedOutfitStore) *SavedHandler {
	return &SavedHandler{store: store}
}

// Save bookmarks an outfit. The recommendation itself is never modified.
func (h *SavedHandler) Save(c *gin.Context) {
	var req dto.SaveOutfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var upload struct {
		UploadID uuid.UUID `json:"uploadId"`
	}
	if err := json.Unmarshal(req.UserUpload, &upload); err != nil || upload.UploadID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields: clientOutfitId or uploadId"})
		return
	}

	so := &models.SavedOutfit{
		UploadID:       upload.UploadID,
		UserID:         auth.UserID(c),
		ClientOutfitID: req.ClientOutfitID,
		UploadData:     req.UserUpload,
		OutfitData:     req.Outfit,
	}
	err := h.store.SaveOutfit(c.Request.Context(), so)
	switch {
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "this outfit is already saved"})
		return
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no upload found with id " + upload.UploadID.String()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "outfit saved",
		"savedOutfitId": so.ID,
	})
}

func (h *SavedHandler) Unsave(c *gin.Context) {
	var req dto.UnsaveOutfitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uploadID, err := uuid.Parse(req.UploadID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
		return
	}

	err = h.store.UnsaveOutfit(c.Request.Context(), auth.UserID(c), uploadID, req.ClientOutfitID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "saved outfit not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "outfit removed from saved items"})
}

// List returns the caller's saved outfits for one upload, or for every
// upload when the id is "all".
func (h *SavedHandler) List(c *gin.Context) {
	var uploadID *uuid.UUID
	if raw := c.Param("upload_id"); !strings.EqualFold(raw, "all") {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload id"})
			return
		}
		uploadID = &id
	}

	saved, err := h.store.ListSavedOutfits(c.Request.Context(), auth.UserID(c), uploadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.SavedOutfitResponse, 0, len(saved))
	for _, so := range saved {
		resp = append(resp, dto.SavedOutfitResponse{
			ClientOutfitID: so.ClientOutfitID,
			UploadID:       so.UploadID,
			UploadData:     so.UploadData,
			OutfitData:     so.OutfitData,
			CreatedAt:      so.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, dto.SavedOutfitListResponse{SavedOutfits: resp, Count: len(resp)})
}
