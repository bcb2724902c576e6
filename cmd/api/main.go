package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/outfit/internal/api"
	"github.com/your-org/outfit/internal/api/handlers"
	"github.com/your-org/outfit/internal/api/ws"
	"github.com/your-org/outfit/internal/colorname"
	"github.com/your-org/outfit/internal/config"
	"github.com/your-org/outfit/internal/dataset"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/observability"
	"github.com/your-org/outfit/internal/queue"
	"github.com/your-org/outfit/internal/recommend"
	"github.com/your-org/outfit/internal/storage"
	"github.com/your-org/outfit/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting outfit API service", "port", cfg.Server.Port, "backend", cfg.Recommend.Backend)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("migrate postgres", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}
	imageURLs, err := storage.NewImageURLCache(minioStore, cfg.MinIO.PresignExpiry*3/4)
	if err != nil {
		slog.Error("create image url cache", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Relay stored recommendations to their owner's sockets
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create recommendation consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeRecommendations(ctx, "api-recommendations", func(_ context.Context, evt models.RecommendationEvent) error {
		hub.BroadcastRecommendation(evt)
		return nil
	})
	if err != nil {
		slog.Warn("start recommendation consumer", "error", err)
	}

	// Vision models
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("onnx runtime init failed", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	registry, segmenter, err := vision.LoadRegistry(cfg.Vision)
	if err != nil {
		slog.Error("load vision models", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	// Reference datasets
	loader, err := dataset.NewLoader(cfg.Datasets, minioStore)
	if err != nil {
		slog.Error("create dataset loader", "error", err)
		os.Exit(1)
	}

	var (
		index recommend.CompatibilityIndex = recommend.NewMemoryIndex(loader)
		items interface {
			recommend.CatalogStore
			handlers.ItemStore
		} = loader
	)
	if cfg.Recommend.Backend == "postgres" {
		index, items = db, db
	}

	namer, err := colorname.NewClient(cfg.ColorName)
	if err != nil {
		slog.Error("create color name client", "error", err)
		os.Exit(1)
	}

	pipeline := recommend.NewPipeline(recommend.Deps{
		Resolver:  recommend.NewCategoryResolver(registry),
		Extractor: vision.NewColorExtractor(segmenter, cfg.Vision.DominantColors, cfg.Vision.MaxSamplePixels),
		Matcher:   recommend.NewMatcher(index, cfg.Recommend.CandidateLimit, cfg.Recommend.MaxMatches),
		Assembler: recommend.NewAssembler(),
		Catalog:   loader,
		Items:     items,
		Namer:     namer,
		Images:    minioStore,
		Store:     db,
		Events:    producer,
	}, recommend.Options{
		InferenceTimeout: cfg.Vision.InferenceTimeout,
		UploadTimeout:    cfg.MinIO.UploadTimeout,
	})

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:         cfg.Server.APIKey,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Pipeline:       pipeline,
		Store:          db,
		ImageURLs:      imageURLs,
		Items:          items,
		Models:         registry,
		Hub:            hub,
		Checks: map[string]handlers.Check{
			"postgres": db.Ping,
			"minio":    minioStore.Ping,
			"nats":     func(context.Context) error { return producer.Ping() },
			"color_api": func(context.Context) error {
				if state := namer.State(); state == "open" {
					return fmt.Errorf("circuit breaker %s", state)
				}
				return nil
			},
			"datasets": func(ctx context.Context) error {
				_, err := loader.Catalog(ctx)
				return err
			},
		},
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	if p := os.Getenv("OUTFIT_ONNXRUNTIME_LIB"); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
