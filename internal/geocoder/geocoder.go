// Package geocoder resolves free-text addresses to coordinates through an
// OpenCage-compatible forward geocoding API.
package geocoder

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
	"github.com/evyataryagoni/geoflipper/internal/models"
)

const (
	// DefaultURL is the OpenCage forward geocoding endpoint.
	DefaultURL = "https://api.opencagedata.com/geocode/v1/json"
	// DefaultTimeout bounds a single geocoding request.
	DefaultTimeout = 10 * time.Second

	// Source tags Locations produced by this package.
	Source = "opencage"
)

// Resolver resolves an address to a Location.
type Resolver interface {
	Resolve(ctx context.Context, address string) (*models.Location, error)
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the geocoding endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit sets the requests-per-second rate limit for outbound calls.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLimiter sets the outbound rate limiter directly.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics records request outcomes and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client is an OpenCage geocoding client.
type Client struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a geocoding Client. An empty apiKey is accepted; every
// Resolve then fails with a non-retryable credentials error.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultURL,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(1, 1), // OpenCage free tier: 1 req/s
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrDefault(c.log).WithComponent("geocoder")
	return c
}

type openCageResponse struct {
	Results      []openCageResult `json:"results"`
	Status       openCageStatus   `json:"status"`
	TotalResults int              `json:"total_results"`
}

type openCageStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type openCageResult struct {
	Geometry struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"geometry"`
	Formatted  string             `json:"formatted"`
	Components openCageComponents `json:"components"`
	Confidence int                `json:"confidence"`
}

type openCageComponents struct {
	Road        string `json:"road"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	County      string `json:"county"`
	State       string `json:"state"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

// Resolve geocodes address and returns the first match. address is expected
// to be sanitised already; it is trimmed again before sending.
// Every failure is a *Error.
func (c *Client) Resolve(ctx context.Context, address string) (*models.Location, error) {
	start := time.Now()
	loc, err := c.resolve(ctx, strings.TrimSpace(address))
	c.observe(start, err)
	return loc, err
}

func (c *Client) resolve(ctx context.Context, address string) (*models.Location, error) {
	if c.apiKey == "" {
		return nil, errMissingKey()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errFromWait(ctx, eris.Wrap(err, "geocoder: rate limit wait"))
	}

	params := url.Values{
		"q":              {address},
		"key":            {c.apiKey},
		"limit":          {"1"},
		"no_annotations": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errUnexpected(eris.Wrap(err, "geocoder: build request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errFromTransport(eris.Wrap(err, "geocoder: request"))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errFromTransport(eris.Wrap(err, "geocoder: read body"))
	}

	var parsed openCageResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errFromStatus(resp.StatusCode, parsed.Status.Message,
			eris.Errorf("geocoder: provider returned status %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, errUnexpected(eris.Wrap(decodeErr, "geocoder: parse response"))
	}

	if len(parsed.Results) == 0 {
		return nil, errNoResults(address)
	}

	return toLocation(address, parsed.Results[0]), nil
}

func toLocation(address string, r openCageResult) *models.Location {
	formatted := r.Formatted
	if formatted == "" {
		formatted = address
	}

	comp := r.Components
	return &models.Location{
		Latitude:         r.Geometry.Lat,
		Longitude:        r.Geometry.Lng,
		RawInput:         address,
		FormattedAddress: formatted,
		Components: &models.AddressComponents{
			Road:        comp.Road,
			City:        comp.City,
			Town:        comp.Town,
			Village:     comp.Village,
			County:      comp.County,
			State:       comp.State,
			Postcode:    comp.Postcode,
			Country:     comp.Country,
			CountryCode: strings.ToLower(comp.CountryCode),
		},
		Source: Source,
	}
}

func (c *Client) observe(start time.Time, err error) {
	result := "success"
	var gerr *Error
	if eris.As(err, &gerr) {
		result = string(gerr.Kind)
		c.log.Warn().
			Err(gerr.Err).
			Str("kind", result).
			Int("status", gerr.StatusCode).
			Msg("Geocoding failed")
	}

	if c.metrics != nil {
		c.metrics.GeocodeRequestsTotal.WithLabelValues(result).Inc()
		c.metrics.GeocodeRequestDuration.Observe(time.Since(start).Seconds())
	}
}
