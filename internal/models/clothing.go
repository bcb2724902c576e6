package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Usage is the occasion an outfit is built for.
type Usage string

const (
	UsageCasual Usage = "Casual"
	UsageFormal Usage = "Formal"
	UsageSports Usage = "Sports"
)

var Usages = []Usage{UsageCasual, UsageFormal, UsageSports}

// ClothingGroup is the coarse bucket an article type belongs to.
type ClothingGroup string

const (
	GroupTopwear     ClothingGroup = "Topwear"
	GroupLayeredWear ClothingGroup = "Layered Wear"
	GroupBottomwear  ClothingGroup = "Bottomwear"
	GroupFootwear    ClothingGroup = "Footwear"
	GroupAccessories ClothingGroup = "Accessories"
)

// Groups lists every clothing group in outfit order.
var Groups = []ClothingGroup{GroupTopwear, GroupLayeredWear, GroupBottomwear, GroupFootwear, GroupAccessories}

// ColorColumn is the compatibility dataset column holding the group's stored color.
func (g ClothingGroup) ColorColumn() string {
	return string(g) + " Color RGB"
}

// Slot is one group's entry in a compatibility row.
type Slot struct {
	Category string `json:"category"`
	Color    Color  `json:"color"`
	HasColor bool   `json:"has_color"`
}

// CompatibilityRow is one precomputed outfit template.
type CompatibilityRow struct {
	Index int                    `json:"index"` // position in the source dataset
	Slots map[ClothingGroup]Slot `json:"slots"`
	Usage string                 `json:"usage"`
}

// Slot returns the row's entry for g, if the row specifies that group.
func (r CompatibilityRow) Slot(g ClothingGroup) (Slot, bool) {
	s, ok := r.Slots[g]
	if !ok || s.Category == "" {
		return s, false
	}
	return s, true
}

// HasUsage reports whether the row's usage field lists u. Matching is a
// case-sensitive substring test because the field may hold "Casual,Formal".
func (r CompatibilityRow) HasUsage(u Usage) bool {
	return u != "" && strings.Contains(r.Usage, string(u))
}

// CompatibilityMatch is a compatibility row with its color distance to the
// garment being matched.
type CompatibilityMatch struct {
	Row      CompatibilityRow `json:"row"`
	Distance float64          `json:"distance"`
}

// CatalogItem is one purchasable product.
type CatalogItem struct {
	ClothID int    `json:"cloth_id" db:"cloth_id"`
	Gender  string `json:"gender" db:"gender"`
	Season  string `json:"season" db:"season"`
	Usage   string `json:"usage" db:"usage"`
	Color   string `json:"color" db:"color"`
	Type    string `json:"type" db:"type"`
	Name    string `json:"name" db:"name"`
	URL     string `json:"url" db:"url"`
}

// GenderNeutral is the catalog gender value that fits every requested gender.
const GenderNeutral = "Unisex"

func (it CatalogItem) FitsGender(gender string) bool {
	return it.Gender == gender || it.Gender == GenderNeutral
}

func (it CatalogItem) FitsUsage(u Usage) bool {
	return u != "" && strings.Contains(it.Usage, string(u))
}

// OutfitGroup is an ordered list of catalog item identifiers.
type OutfitGroup []int

// Recommendation is the persisted result of one pipeline run. It is never
// updated after creation.
type Recommendation struct {
	ID            uuid.UUID       `json:"unique_id" db:"id"`
	UserID        int             `json:"user_id" db:"user_id"`
	Usage         Usage           `json:"usage" db:"usage"`
	Gender        string          `json:"gender" db:"gender"`
	Category      string          `json:"type" db:"category"`
	Group         ClothingGroup   `json:"group" db:"clothing_group"`
	DominantColor Color           `json:"dominant_color" db:"dominant_color"`
	ColorName     string          `json:"color" db:"color_name"`
	ImageURL      string          `json:"imageURL" db:"image_url"`
	ImageKey      string          `json:"-" db:"image_key"`
	Outfits       [][]CatalogItem `json:"outfits" db:"outfits"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// SavedOutfit bookmarks one outfit of a recommendation for a user.
type SavedOutfit struct {
	ID             int64           `json:"id" db:"id"`
	UploadID       uuid.UUID       `json:"upload_id" db:"upload_id"`
	UserID         int             `json:"user_id" db:"user_id"`
	ClientOutfitID string          `json:"client_outfit_id" db:"client_outfit_id"`
	UploadData     json.RawMessage `json:"upload_data" db:"upload_data"`
	OutfitData     json.RawMessage `json:"outfit_data" db:"outfit_data"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
