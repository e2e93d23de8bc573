package cropinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/harvest-advisor/internal/common"
)

const defaultSearchURL = "https://www.googleapis.com/customsearch/v1"

// ErrNotConfigured is returned when no API key or engine id is set.
var ErrNotConfigured = errors.New("crop search is not configured")

// SearchItem is one keyword search hit.
type SearchItem struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchClient queries the Google Custom Search JSON API for crop conditions.
type SearchClient struct {
	baseURL  string
	apiKey   string
	engineID string
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewSearchClient builds a search client. An empty baseURL uses the public endpoint.
func NewSearchClient(client *http.Client, baseURL, apiKey, engineID string, logger *slog.Logger) *SearchClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultSearchURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		engineID: engineID,
		client:   client,
		circuit:  common.NewBreaker("crop-search"),
		logger:   logger.With("component", "cropinfo.search"),
	}
}

// Search runs one keyword search for the crop name.
func (c *SearchClient) Search(ctx context.Context, crop string) ([]SearchItem, error) {
	if c.apiKey == "" || c.engineID == "" {
		return nil, ErrNotConfigured
	}

	values := url.Values{}
	values.Set("q", crop)
	values.Set("cx", c.engineID)
	values.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", c.baseURL, values.Encode()), nil)
	if err != nil {
		return nil, fmt.Errorf("build crop search request: %w", err)
	}

	resp, err := common.DoOnce(ctx, c.client, c.circuit, req)
	if err != nil {
		c.logger.Error("crop search failed", "crop", crop, "error", err)
		return nil, fmt.Errorf("crop search request: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Items []SearchItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode crop search response: %w", err)
	}

	c.logger.Debug("crop search done", "crop", crop, "items", len(payload.Items))
	return payload.Items, nil
}
