// Package crm searches opportunities in a GoHighLevel-compatible CRM.
package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/evyataryagoni/geoflipper/internal/metrics"
	"github.com/evyataryagoni/geoflipper/internal/models"
)

const (
	// DefaultURL is the GoHighLevel REST API base.
	DefaultURL = "https://rest.gohighlevel.com/v1"

	defaultTimeout = 10 * time.Second
)

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = errors.New("crm: api key not configured")

// Searcher searches CRM opportunities.
type Searcher interface {
	SearchOpportunities(ctx context.Context, query string) ([]models.Opportunity, error)
}

// Client is a GoHighLevel opportunities client.
type Client struct {
	baseURL    string
	apiKey     string
	locationID string
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLocationID scopes searches to one CRM location.
func WithLocationID(id string) Option {
	return func(c *Client) {
		c.locationID = id
	}
}

// WithMetrics records request outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a CRM client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchResponse accepts both response shapes the API has used.
type searchResponse struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Data          []models.Opportunity `json:"data"`
}

// SearchOpportunities returns opportunities matching query. An empty query
// lists the location's opportunities.
func (c *Client) SearchOpportunities(ctx context.Context, query string) ([]models.Opportunity, error) {
	if c.apiKey == "" {
		c.record("not_configured")
		return nil, ErrNotConfigured
	}

	params := url.Values{}
	if c.locationID != "" {
		params.Set("location_id", c.locationID)
	}
	if q := strings.TrimSpace(query); q != "" {
		params.Set("query", q)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/opportunities/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "crm: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record("error")
		return nil, eris.Wrap(err, "crm: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record("error")
		return nil, eris.Errorf("crm: API returned %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record("error")
		return nil, eris.Wrap(err, "crm: read body")
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.record("error")
		return nil, eris.Wrap(err, "crm: parse response")
	}

	c.record("ok")
	switch {
	case parsed.Opportunities != nil:
		return parsed.Opportunities, nil
	case parsed.Data != nil:
		return parsed.Data, nil
	default:
		return []models.Opportunity{}, nil
	}
}

func (c *Client) record(status string) {
	if c.metrics != nil {
		c.metrics.CRMRequestsTotal.WithLabelValues(status).Inc()
	}
}
