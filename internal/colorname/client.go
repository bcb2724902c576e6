// Package colorname resolves RGB triples to human-readable color names using
// The Color API (thecolorapi.com).
package colorname

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/your-org/outfit/internal/config"
	"github.com/your-org/outfit/internal/errs"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/internal/observability"
)

// Client looks names up over HTTP. Repeated colors are served from an
// in-process cache and a circuit breaker stops calls while the API is failing.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[string]
	cache   *cache.Cache[string]
	cfg     config.ColorNameConfig
}

func NewClient(cfg config.ColorNameConfig) (*Client, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1e4,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create color name cache: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "colorname",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		cache:   cache.New[string](ristretto_store.NewRistretto(ristrettoCache)),
		cfg:     cfg,
	}, nil
}

type idResponse struct {
	Name struct {
		Value string `json:"value"`
	} `json:"name"`
}

// Name returns the name of c. Any failure is an external-service error.
func (cl *Client) Name(ctx context.Context, c models.Color) (string, error) {
	const op = "color name"

	key := c.Hex()
	if name, err := cl.cache.Get(ctx, key); err == nil && name != "" {
		observability.ColorNameLookups.WithLabelValues("hit").Inc()
		return name, nil
	}

	name, err := cl.breaker.Execute(func() (string, error) {
		return cl.fetch(ctx, c)
	})
	if err != nil {
		observability.ColorNameLookups.WithLabelValues("error").Inc()
		return "", errs.WrapExternal(op, err)
	}
	observability.ColorNameLookups.WithLabelValues("fetched").Inc()

	if err := cl.cache.Set(ctx, key, name, store.WithExpiration(cl.cfg.CacheTTL), store.WithCost(1)); err != nil {
		slog.Warn("cache color name", "color", key, "error", err)
	}
	return name, nil
}

func (cl *Client) fetch(ctx context.Context, c models.Color) (string, error) {
	if cl.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cl.cfg.Timeout)
		defer cancel()
	}

	q := url.Values{"rgb": {fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cl.baseURL+"/id?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cl.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request color api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("color api returned status %d", resp.StatusCode)
	}

	var body idResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode color api response: %w", err)
	}
	if body.Name.Value == "" {
		return "", errors.New("color api returned no name")
	}
	return body.Name.Value, nil
}

// State reports the breaker state for health output.
func (cl *Client) State() string {
	return cl.breaker.State().String()
}
