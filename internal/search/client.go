package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ParthPatel00/SantAI/internal/models"
)

// Default configuration for the OpenWeb Ninja product search API.
const (
	DefaultBaseURL = "https://api.openwebninja.com/realtime-amazon-data"
	DefaultCountry = "US"
	DefaultSortBy  = "relevance"
	DefaultTimeout = 30 * time.Second
)

// Opts holds configuration for the product search client.
type Opts struct {
	// APIKey is the OpenWeb Ninja API key.
	APIKey string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	// Country is the marketplace country code.
	Country string
	// Timeout bounds each API request.
	Timeout time.Duration
	// HTTPClient overrides the HTTP client, mainly for tests.
	HTTPClient *http.Client
}

// Option configures search client construction.
type Option func(*Opts)

// WithAPIKey sets the OpenWeb Ninja API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *Opts) { o.BaseURL = baseURL }
}

// WithCountry sets the marketplace country code.
func WithCountry(country string) Option {
	return func(o *Opts) { o.Country = country }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Opts) { o.Timeout = timeout }
}

// WithHTTPClient overrides the HTTP client used for API requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) { o.HTTPClient = client }
}

// Client queries the OpenWeb Ninja product search API.
type Client struct {
	apiKey     string
	baseURL    string
	country    string
	httpClient *http.Client
}

// NewClient creates a product search client. An API key is required.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		BaseURL: DefaultBaseURL,
		Country: DefaultCountry,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("product search API key not set")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	slog.Debug("Search client created", "base_url", cfg.BaseURL, "country", cfg.Country)
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		country:    cfg.Country,
		httpClient: httpClient,
	}, nil
}

// apiProduct mirrors the product shape returned by the search endpoint.
type apiProduct struct {
	ASIN        string `json:"asin"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	Price       struct {
		Current float64 `json:"current"`
	} `json:"price"`
	Rating struct {
		Average float64 `json:"average"`
	} `json:"rating"`
	Availability struct {
		InStock bool `json:"in_stock"`
	} `json:"availability"`
}

type searchResponse struct {
	Products []apiProduct `json:"products"`
}

// Search queries the product API with a query built from the preferences
// and converts the results to gift items.
func (c *Client) Search(ctx context.Context, prefs models.UserPreferences) ([]models.GiftItem, error) {
	query := BuildQuery(prefs)
	slog.Debug("Search.Search: querying product API", "query", query)

	params := url.Values{}
	params.Set("query", query)
	params.Set("country", c.country)
	params.Set("sort_by", DefaultSortBy)
	if prefs.BudgetMin != nil {
		params.Set("min_price", strconv.FormatFloat(*prefs.BudgetMin, 'f', -1, 64))
	}
	if prefs.BudgetMax != nil {
		params.Set("max_price", strconv.FormatFloat(*prefs.BudgetMax, 'f', -1, 64))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SantAI/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Search.Search: API request failed", "error", err, "query", query)
		return nil, fmt.Errorf("product search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.Error("Search.Search: API returned non-OK status", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("product search returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode product search response: %w", err)
	}

	gifts := convertProducts(parsed.Products)
	slog.Info("Search.Search: products found", "query", query, "count", len(gifts))
	return gifts, nil
}

// convertProducts maps API products to gift items, skipping entries that
// fail validation rather than aborting the whole result set.
func convertProducts(products []apiProduct) []models.GiftItem {
	gifts := make([]models.GiftItem, 0, len(products))
	for _, p := range products {
		id := p.ASIN
		if id == "" {
			id = uuid.New().String()
		}

		name := p.Title
		if name == "" {
			name = "Unknown Product"
		}

		price := "Price not available"
		if p.Price.Current > 0 {
			price = "$" + strconv.FormatFloat(p.Price.Current, 'f', 2, 64)
		}

		availability := "Out of Stock"
		if p.Availability.InStock {
			availability = "In Stock"
		}

		gift := models.GiftItem{
			ID:           id,
			Name:         name,
			Price:        price,
			Description:  p.Description,
			Source:       "Amazon",
			URL:          p.URL,
			ImageURL:     p.Image,
			Rating:       p.Rating.Average,
			Availability: availability,
		}
		if err := gift.Validate(); err != nil {
			slog.Warn("Search: skipping invalid product", "error", err, "id", id)
			continue
		}
		gifts = append(gifts, gift)
	}
	return gifts
}
