package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/your-org/outfit/internal/config"
	"github.com/your-org/outfit/internal/dataset"
	"github.com/your-org/outfit/internal/observability"
	"github.com/your-org/outfit/internal/storage"
)

// importer loads the reference datasets into postgres: the product catalog
// always, the compatibility rows with -compat.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	compat := flag.Bool("compat", false, "also import compatibility rows for the postgres backend")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *compat); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, compat bool) error {
	start := time.Now()

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		return err
	}

	loader, err := dataset.NewLoader(cfg.Datasets, minioStore)
	if err != nil {
		return err
	}

	catalog, err := loader.Catalog(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	n, err := db.ImportCatalog(ctx, catalog.Items())
	if err != nil {
		return err
	}
	slog.Info("imported catalog", "items", n, "source", cfg.Datasets.Catalog)

	if compat {
		if cfg.Datasets.Compatibility == "" {
			return fmt.Errorf("datasets.compatibility is required with -compat")
		}
		rows, err := loader.Compatibility(ctx)
		if err != nil {
			return fmt.Errorf("load compatibility rows: %w", err)
		}
		m, err := db.ImportCompatibility(ctx, rows)
		if err != nil {
			return err
		}
		slog.Info("imported compatibility rows", "rows", m, "source", cfg.Datasets.Compatibility)
	}

	slog.Info("import finished", "elapsed", time.Since(start))
	return nil
}
