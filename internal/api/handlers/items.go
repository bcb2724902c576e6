package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/pkg/dto"
)

const maxItemsPerPage = 1000

// ItemStore is served by the postgres catalog or the in-memory dataset.
type ItemStore interface {
	RandomItems(ctx context.Context, limit int) ([]models.CatalogItem, error)
	GetItem(ctx context.Context, id int) (*models.CatalogItem, error)
}

type ItemHandler struct {
	items ItemStore
}

func NewItemHandler(items ItemStore) *ItemHandler {
	return &ItemHandler{items: items}
}

// List returns a random sample of catalog items.
func (h *ItemHandler) List(c *gin.Context) {
	limit := maxItemsPerPage
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxItemsPerPage)
	}

	items, err := h.items.RandomItems(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "no items found"})
		return
	}

	c.JSON(http.StatusOK, dto.ItemListResponse{
		Items:   items,
		Message: strconv.Itoa(len(items)) + " items found",
	})
}

func (h *ItemHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	item, err := h.items.GetItem(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "no cloth found"})
		return
	}

	c.JSON(http.StatusOK, dto.ItemResponse{Item: *item, Message: "item found"})
}
