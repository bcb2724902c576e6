package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"

	"github.com/your-org/outfit/internal/config"
	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/observability"
)

const minioScheme = "minio://"

// ObjectGetter reads objects from the bucket that backs minio:// sources.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// Loader fetches and parses the reference datasets, keeping parsed copies in
// an in-process cache for CacheTTL. A cached copy is identical to a fresh
// parse, so cache hits never change results.
type Loader struct {
	cfg     config.DatasetsConfig
	client  *http.Client
	objects ObjectGetter

	compat  *cache.LoadableCache[[]models.CompatibilityRow]
	catalog *cache.LoadableCache[*Catalog]
}

// NewLoader builds a loader. objects may be nil when no source uses minio://.
func NewLoader(cfg config.DatasetsConfig, objects ObjectGetter) (*Loader, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create dataset cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	l := &Loader{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.FetchTimeout},
		objects: objects,
	}

	l.compat = cache.NewLoadable[[]models.CompatibilityRow](
		func(ctx context.Context, key any) ([]models.CompatibilityRow, []store.Option, error) {
			rows, err := l.loadCompatibility(ctx)
			return rows, l.cacheOptions(), err
		},
		cache.New[[]models.CompatibilityRow](ristrettoStore),
	)
	l.catalog = cache.NewLoadable[*Catalog](
		func(ctx context.Context, key any) (*Catalog, []store.Option, error) {
			c, err := l.loadCatalog(ctx)
			return c, l.cacheOptions(), err
		},
		cache.New[*Catalog](ristrettoStore),
	)
	return l, nil
}

func (l *Loader) cacheOptions() []store.Option {
	return []store.Option{store.WithExpiration(l.cfg.CacheTTL), store.WithCost(1)}
}

// Compatibility returns the compatibility rows in file order.
func (l *Loader) Compatibility(ctx context.Context) ([]models.CompatibilityRow, error) {
	return l.compat.Get(ctx, "compatibility:"+l.cfg.Compatibility)
}

// Catalog returns the product catalog.
func (l *Loader) Catalog(ctx context.Context) (*Catalog, error) {
	return l.catalog.Get(ctx, "catalog:"+l.cfg.Catalog)
}

// ItemsByIDs looks ids up in the cached catalog.
func (l *Loader) ItemsByIDs(ctx context.Context, ids []int) ([]models.CatalogItem, error) {
	c, err := l.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.ItemsByIDs(ctx, ids)
}

// RandomItems samples up to limit items from the cached catalog.
func (l *Loader) RandomItems(ctx context.Context, limit int) ([]models.CatalogItem, error) {
	c, err := l.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Sample(limit), nil
}

// GetItem returns nil, nil when id is not in the catalog.
func (l *Loader) GetItem(ctx context.Context, id int) (*models.CatalogItem, error) {
	c, err := l.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	it, ok := c.Get(id)
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (l *Loader) loadCompatibility(ctx context.Context) ([]models.CompatibilityRow, error) {
	start := time.Now()
	data, err := l.fetch(ctx, l.cfg.Compatibility)
	if err != nil {
		return nil, err
	}
	rows, err := ParseCompatibility(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	observability.DatasetLoads.WithLabelValues("compatibility").Inc()
	slog.Info("compatibility dataset loaded", "source", l.cfg.Compatibility, "rows", len(rows), "elapsed", time.Since(start))
	return rows, nil
}

func (l *Loader) loadCatalog(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	data, err := l.fetch(ctx, l.cfg.Catalog)
	if err != nil {
		return nil, err
	}
	c, err := ParseCatalog(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	observability.DatasetLoads.WithLabelValues("catalog").Inc()
	slog.Info("catalog dataset loaded", "source", l.cfg.Catalog, "items", c.Len(), "elapsed", time.Since(start))
	return c, nil
}

// fetch reads a whole source: a local path, an http(s) URL or minio://<key>.
func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	const op = "fetch dataset"

	if src == "" {
		return nil, errs.DataIntegrity(op, "no dataset source configured")
	}
	if l.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.FetchTimeout)
		defer cancel()
	}

	switch {
	case strings.HasPrefix(src, minioScheme):
		if l.objects == nil {
			return nil, errs.DataIntegrity(op, "%s: object storage is not configured", src)
		}
		data, err := l.objects.GetObject(ctx, strings.TrimPrefix(src, minioScheme))
		return data, errs.WrapExternal(op, err)

	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, errs.WrapDataIntegrity(op, err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, errs.WrapExternal(op, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errs.WrapExternal(op, fmt.Errorf("GET %s: status %d", src, resp.StatusCode))
		}
		data, err := io.ReadAll(resp.Body)
		return data, errs.WrapExternal(op, err)

	default:
		data, err := os.ReadFile(src)
		return data, errs.WrapDataIntegrity(op, err)
	}
}
