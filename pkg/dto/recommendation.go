package dto

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/your-org/outfit/internal/models"
)

// RecommendationResponse is returned by POST /v1/recommendations.
type RecommendationResponse struct {
	UniqueID  uuid.UUID              `json:"unique_id"`
	Status    string                 `json:"status"`
	Type      string                 `json:"type"`
	Group     string                 `json:"group"`
	Color     string                 `json:"color"`
	RGB       [3]uint8               `json:"rgb"`
	ImageURL  string                 `json:"imageURL"`
	Gender    string                 `json:"gender"`
	Usage     string                 `json:"usage"`
	Outfits   [][]models.CatalogItem `json:"outfits"`
	CreatedAt string                 `json:"created_at"`
}

// UploadResponse summarises one past upload.
type UploadResponse struct {
	UniqueID  uuid.UUID `json:"unique_id"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	ImageURL  string    `json:"imageURL"`
	Gender    string    `json:"gender"`
	Usage     string    `json:"usage"`
	CreatedAt string    `json:"created_at"`
}

type UploadListResponse struct {
	Uploads []UploadResponse `json:"uploads"`
	Count   int              `json:"count"`
}

// OutfitResponse is one outfit of a recommendation as shown to a user.
type OutfitResponse struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Style   string               `json:"style"`
	Items   []models.CatalogItem `json:"items"`
	IsSaved bool                 `json:"isSaved"`
}

// RecommendationDetail is returned by GET /v1/recommendations/:id.
type RecommendationDetail struct {
	UploadResponse
	Outfits        []OutfitResponse `json:"outfits"`
	SavedOutfitIDs []string         `json:"savedOutfitIds"`
}

// SaveOutfitRequest bookmarks an outfit. UserUpload carries the client's
// copy of the upload and must include uploadId.
type SaveOutfitRequest struct {
	ClientOutfitID string          `json:"clientOutfitId" binding:"required"`
	UserUpload     json.RawMessage `json:"userUpload" binding:"required"`
	Outfit         json.RawMessage `json:"outfit"`
}

type UnsaveOutfitRequest struct {
	ClientOutfitID string `json:"clientOutfitId" binding:"required"`
	UploadID       string `json:"uploadId" binding:"required"`
}

type SavedOutfitResponse struct {
	ClientOutfitID string          `json:"clientOutfitId"`
	UploadID       uuid.UUID       `json:"uploadId"`
	UploadData     json.RawMessage `json:"uploadData"`
	OutfitData     json.RawMessage `json:"outfitData"`
	CreatedAt      string          `json:"createdAt"`
}

type SavedOutfitListResponse struct {
	SavedOutfits []SavedOutfitResponse `json:"savedOutfits"`
	Count        int                   `json:"count"`
}
