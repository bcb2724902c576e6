package dto

import "github.com/google/uuid"

// WSEvent is pushed to websocket clients when one of their recommendations
// has been stored.
type WSEvent struct {
	Event     string    `json:"event"`
	ID        uuid.UUID `json:"unique_id"`
	UserID    int       `json:"user_id"`
	Usage     string    `json:"usage"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	ImageURL  string    `json:"imageURL"`
	Outfits   int       `json:"outfits"`
	CreatedAt string    `json:"created_at"`
}
