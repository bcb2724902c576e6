package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/outfit/internal/api/handlers"
	"github.com/your-org/outfit/internal/api/ws"
	"github.com/your-org/outfit/internal/auth"
)

// Store is everything the HTTP surface reads and writes in postgres.
type Store interface {
	handlers.RecommendationReader
	handlers.SavedOutfitStore
}

type RouterConfig struct {
	APIKey         string
	MaxUploadBytes int64
	Pipeline       handlers.Recommender
	Store          Store
	// ImageURLs re-signs stored image links on read. Optional.
	ImageURLs handlers.ImageURLResolver
	Items     handlers.ItemStore
	Models    handlers.ModelLister
	Hub       *ws.Hub
	// Checks are probed by /readyz.
	Checks map[string]handlers.Check
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.New(corsConfig()))

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// Catalog and models do not depend on the caller
	itemH := handlers.NewItemHandler(cfg.Items)
	v1.GET("/items", itemH.List)
	v1.GET("/items/:id", itemH.Get)

	modelH := handlers.NewModelHandler(cfg.Pipeline, cfg.Models, cfg.MaxUploadBytes)
	v1.GET("/models", modelH.List)
	v1.POST("/classify", modelH.Classify)

	user := v1.Group("")
	user.Use(auth.UserMiddleware())

	// WebSocket
	if cfg.Hub != nil {
		user.GET("/ws", cfg.Hub.HandleWS)
	}

	// Recommendations
	recH := handlers.NewRecommendationHandler(cfg.Pipeline, cfg.Store, cfg.ImageURLs, cfg.MaxUploadBytes)
	user.POST("/recommendations", recH.Create)
	user.GET("/recommendations/:id", recH.Get)
	user.GET("/uploads", recH.ListUploads)

	// Saved outfits
	savedH := handlers.NewSavedHandler(cfg.Store)
	user.POST("/saved", savedH.Save)
	user.POST("/saved/remove", savedH.Unsave)
	user.GET("/saved/:upload_id", savedH.List)

	return r
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AddAllowHeaders("X-API-Key", "X-User-ID")
	return cfg
}
