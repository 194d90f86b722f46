// Package membership verifies that an email belongs to a paying member
// before the application lets the session in.
package membership

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
)

const (
	// DefaultURL is the membership check endpoint.
	DefaultURL = "https://lowballoffer.ai/api/check-member"
	// DefaultTimeout bounds a single membership check.
	DefaultTimeout = 10 * time.Second
)

var (
	// ErrUnavailable means the check itself failed; the user may be a member.
	ErrUnavailable = errors.New("membership: unable to verify membership")
	// ErrNotMember means the email has no membership.
	ErrNotMember = errors.New("membership: not a member")
	// ErrInsufficientTier means the email is a member, but not on the required plan.
	ErrInsufficientTier = errors.New("membership: annual premium plan required")
)

// UserMessage returns the text shown to the user for a Verify failure.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotMember):
		return "Access denied. This application requires an active membership."
	case errors.Is(err, ErrInsufficientTier):
		return "Access denied. This application requires an annual premium membership."
	default:
		return "Unable to verify membership. Please try again later."
	}
}

// Status is the membership record for one email.
type Status struct {
	IsMember        bool `json:"isMember"`
	IsPremiumAnnual bool `json:"isPremiumAnnual"`
}

// Verifier decides whether an email may use the application.
type Verifier interface {
	Verify(ctx context.Context, email string) error
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-check timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRequireAnnual controls whether members also need the annual premium plan.
func WithRequireAnnual(require bool) Option {
	return func(c *Client) {
		c.requireAnnual = require
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics records check outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// Client checks membership against a remote endpoint that answers
// POST {"email": ...} with {"isMember": bool, "isPremiumAnnual": bool}.
type Client struct {
	url           string
	httpClient    *http.Client
	timeout       time.Duration
	requireAnnual bool
	log           *logger.Logger
	metrics       *metrics.Metrics
}

// NewClient creates a membership Client. The annual plan is required unless
// WithRequireAnnual(false) is given.
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:           url,
		httpClient:    &http.Client{},
		timeout:       DefaultTimeout,
		requireAnnual: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logger.OrDefault(c.log).WithComponent("membership")
	return c
}

// Check fetches the membership record for email.
func (c *Client) Check(ctx context.Context, email string) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"email": email})
	if err != nil {
		return Status{}, eris.Wrap(err, "membership: encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Status{}, eris.Wrap(err, "membership: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, eris.Wrap(err, "membership: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return Status{}, eris.Errorf("membership: endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Status{}, eris.Wrap(err, "membership: read body")
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return Status{}, eris.Wrap(err, "membership: parse response")
	}
	return status, nil
}

// Verify returns nil when email may log in, or one of ErrUnavailable,
// ErrNotMember or ErrInsufficientTier.
func (c *Client) Verify(ctx context.Context, email string) error {
	status, err := c.Check(ctx, email)
	if err != nil {
		c.log.Error().Err(err).Msg("Membership check failed")
		c.record("unavailable")
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	switch {
	case !status.IsMember:
		c.record("not_member")
		return ErrNotMember
	case c.requireAnnual && !status.IsPremiumAnnual:
		c.record("insufficient_tier")
		return ErrInsufficientTier
	}

	c.record("member")
	return nil
}

func (c *Client) record(result string) {
	if c.metrics != nil {
		c.metrics.MembershipChecksTotal.WithLabelValues(result).Inc()
	}
}
