package models

import (
	"time"

	"github.com/google/uuid"
)

// RecommendationEvent is published to NATS after a recommendation is stored.
type RecommendationEvent struct {
	ID        uuid.UUID     `json:"id"`
	UserID    int           `json:"user_id"`
	Usage     Usage         `json:"usage"`
	Category  string        `json:"category"`
	Group     ClothingGroup `json:"group"`
	ColorName string        `json:"color"`
	ImageURL  string        `json:"image_url"`
	Outfits   int           `json:"outfits"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewRecommendationEvent(rec *Recommendation) RecommendationEvent {
	return RecommendationEvent{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Usage:     rec.Usage,
		Category:  rec.Category,
		Group:     rec.Group,
		ColorName: rec.ColorName,
		ImageURL:  rec.ImageURL,
		Outfits:   len(rec.Outfits),
		CreatedAt: rec.CreatedAt,
	}
}
