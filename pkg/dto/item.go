package dto

import "github.com/your-org/outfit/internal/models"

type ItemListResponse struct {
	Items   []models.CatalogItem `json:"items"`
	Message string               `json:"message"`
}

type ItemResponse struct {
	Item    models.CatalogItem `json:"item"`
	Message string             `json:"message"`
}

// ClassifyResponse is returned by POST /v1/classify.
type ClassifyResponse struct {
	Type  string `json:"type"`
	Group string `json:"group"`
	Usage string `json:"usage"`
}

type ModelsResponse struct {
	Classifiers []ModelStatus `json:"classifiers"`
	Segmenter   string        `json:"segmenter"`
}

type ModelStatus struct {
	Usage  string `json:"usage"`
	Labels int    `json:"labels"`
}
