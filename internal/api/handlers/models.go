package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/outfit/internal/vision"
	"github.com/your-org/outfit/pkg/dto"
)

// ModelLister reports the loaded category models.
type ModelLister interface {
	Status() ([]vision.ModelStatus, string)
}

type ModelHandler struct {
	pipeline       Recommender
	models         ModelLister
	maxUploadBytes int64
}

func NewModelHandler(pipeline Recommender, models ModelLister, maxUploadBytes int64) *ModelHandler {
	return &ModelHandler{pipeline: pipeline, models: models, maxUploadBytes: maxUploadBytes}
}

func (h *ModelHandler) List(c *gin.Context) {
	loaded, segmenter := h.models.Status()

	resp := dto.ModelsResponse{
		Classifiers: make([]dto.ModelStatus, 0, len(loaded)),
		Segmenter:   segmenter,
	}
	for _, m := range loaded {
		resp.Classifiers = append(resp.Classifiers, dto.ModelStatus{Usage: m.Usage, Labels: m.Labels})
	}
	c.JSON(http.StatusOK, resp)
}

// Classify resolves the category of an uploaded image without recommending.
func (h *ModelHandler) Classify(c *gin.Context) {
	up, ok := readImage(c, h.maxUploadBytes)
	if !ok {
		return
	}

	cat, err := h.pipeline.Categorize(c.Request.Context(), up.data, c.PostForm("usage"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ClassifyResponse{
		Type:  cat.Name,
		Group: string(cat.Group),
		Usage: c.PostForm("usage"),
	})
}
