// Package komga provides a catalog adapter for the Komga document reader.
// It looks books up by filename and builds reader deep links.
package komga

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.Catalog = (*Client)(nil)

const serviceName = "komga"

// Default configuration values.
const (
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerSecond = 5.0
)

// Config holds configuration for the Komga client.
type Config struct {
	// BaseURL is the server root, e.g. https://komga.example.com.
	BaseURL string

	Username string
	Password string

	// Timeout bounds each HTTP request (default: 10s).
	Timeout time.Duration

	// RequestsPerSecond throttles API calls proactively (default: 5).
	RequestsPerSecond float64
}

// Client talks to the Komga REST API with basic auth.
type Client struct {
	http     *http.Client
	baseURL  string
	username string
	password string
	limiter  *rate.Limiter
}

// bookPage is the paged response of GET /api/v1/books.
type bookPage struct {
	Content []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"content"`
}

// NewClient creates a Komga client. An incomplete config yields a client
// that reports IsConfigured() == false and never makes requests.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	return &Client{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
	}
}

// IsConfigured reports whether base URL and credentials are set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

// SearchBooks runs a Komga book search for filename.
func (c *Client) SearchBooks(ctx context.Context, filename string) ([]domain.CatalogBook, error) {
	var page bookPage
	if err := c.get(ctx, "/api/v1/books", url.Values{"search": {filename}}, &page); err != nil {
		return nil, err
	}

	books := make([]domain.CatalogBook, 0, len(page.Content))
	for _, b := range page.Content {
		books = append(books, domain.CatalogBook{ID: b.ID, Name: b.Name, URL: b.URL})
	}
	return books, nil
}

// Libraries returns the number of libraries the user can see.
func (c *Client) Libraries(ctx context.Context) (int, error) {
	var libraries []json.RawMessage
	if err := c.get(ctx, "/api/v1/libraries", nil, &libraries); err != nil {
		return 0, err
	}
	return len(libraries), nil
}

// PageURL builds the web reader URL. Komga pages are 1-based.
func (c *Client) PageURL(bookID string, page int) string {
	if page <= 0 {
		page = 1
	}
	return fmt.Sprintf("%s/book/%s/read?page=%d", c.baseURL, url.PathEscape(bookID), page)
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if !c.IsConfigured() {
		return domain.ErrCatalogNotConfigured
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("komga: create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("komga: %w: %w", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := domain.NewStatusError(serviceName, resp.StatusCode, body)
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, statusErr)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("komga: decode response: %w", err)
	}
	return nil
}
