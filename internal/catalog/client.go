package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/roach88/seqmine/internal/ir"
)

// DefaultURLTemplate is the catalog's JSON search endpoint; %s is the id.
const DefaultURLTemplate = "https://oeis.org/search?fmt=json&q=id:%s"

// maxBodyBytes caps a single response body.
const maxBodyBytes = 16 << 20

// Source resolves an identifier to its catalog document over the network.
type Source interface {
	Fetch(ctx context.Context, id ir.ID) (*Document, error)
}

// ClientConfig configures a Client. Zero values select defaults.
type ClientConfig struct {
	URLTemplate   string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Client fetches documents from the remote catalog, paced by a token-bucket
// limiter so long runs do not hammer the service.
type Client struct {
	http        *http.Client
	limiter     *rate.Limiter
	urlTemplate string
	userAgent   string
	logger      *slog.Logger
}

// NewClient builds a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.URLTemplate == "" {
		cfg.URLTemplate = DefaultURLTemplate
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "seqmine/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:     rate.NewLimiter(limit, cfg.Burst),
		urlTemplate: cfg.URLTemplate,
		userAgent:   cfg.UserAgent,
		logger:      slog.Default(),
	}
}

// Fetch downloads and decodes the document for id. A non-200 status, a
// transport error or an empty result set is returned as an error; the
// caller decides whether it counts toward a failure threshold.
func (c *Client) Fetch(ctx context.Context, id ir.ID) (*Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}

	url := fmt.Sprintf(c.urlTemplate, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: create request: %w", id, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", id, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", id, err)
	}
	c.logger.Debug("fetched catalog entry", "id", id, "bytes", len(body), "elapsed", time.Since(start))

	doc, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	if len(doc.Results) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", id, ErrNotFound)
	}
	return doc, nil
}
