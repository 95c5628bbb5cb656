package fipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// DefaultBaseURL points at the public FIPE vehicle price reference API.
const DefaultBaseURL = "https://fipe.parallelum.com.br/api/v2"

const (
	cacheTTL       = 24 * time.Hour
	requestTimeout = 10 * time.Second
)

// ErrUpstream is returned when the reference API answers with a non-200
// status.
var ErrUpstream = errors.New("fipe upstream error")

// Client fetches Brazilian market price references for cars. Responses are
// passed through untouched and cached in Redis, since reference tables only
// change monthly.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *redis.Client
	logger  *slog.Logger
}

// NewClient creates a new FIPE client
func NewClient(baseURL string, cache *redis.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		cache:   cache,
		logger:  logger,
	}
}

// Brands returns all car brands.
func (c *Client) Brands(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/cars/brands")
}

// Models returns the models of a brand.
func (c *Client) Models(ctx context.Context, brandID string) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/cars/brands/%s/models", brandID))
}

// Years returns the model years available for a model.
func (c *Client) Years(ctx context.Context, brandID, modelID string) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/cars/brands/%s/models/%s/years", brandID, modelID))
}

// Price returns the reference price for a specific brand, model and year.
func (c *Client) Price(ctx context.Context, brandID, modelID, yearID string) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("/cars/brands/%s/models/%s/years/%s", brandID, modelID, yearID))
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	cacheKey := "fipe:" + path

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			// Cache trouble should not take the endpoint down.
			c.logger.Warn("fipe cache read failed", "key", cacheKey, "error", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fipe request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fipe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d for %s", ErrUpstream, resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read fipe response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, cacheTTL).Err(); err != nil {
			c.logger.Warn("fipe cache write failed", "key", cacheKey, "error", err)
		}
	}

	return body, nil
}
