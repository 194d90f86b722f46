package geocoder

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/metrics"
)

func newTestClient(baseURL string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(baseURL),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
		WithLogger(logger.NewNop()),
	}
	return NewClient("test-key", append(base, opts...)...)
}

func requireGeocodeError(t *testing.T, err error) *Error {
	t.Helper()
	require.Error(t, err)
	var gerr *Error
	require.True(t, errors.As(err, &gerr), "expected *geocoder.Error, got %T", err)
	return gerr
}

func TestResolve_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Eiffel Tower, Paris", q.Get("q"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "1", q.Get("no_annotations"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"status": {"code": 200, "message": "OK"},
			"total_results": 1,
			"results": [{
				"geometry": {"lat": 48.8582599, "lng": 2.2945006},
				"formatted": "Eiffel Tower, Avenue Gustave Eiffel, 75007 Paris, France",
				"confidence": 9,
				"components": {
					"road": "Avenue Gustave Eiffel",
					"city": "Paris",
					"state": "Ile-de-France",
					"postcode": "75007",
					"country": "France",
					"country_code": "FR"
				}
			}]
		}`)
	}))
	defer srv.Close()

	loc, err := newTestClient(srv.URL).Resolve(context.Background(), "  Eiffel Tower, Paris ")
	require.NoError(t, err)
	assert.InDelta(t, 48.8582599, loc.Latitude, 1e-7)
	assert.InDelta(t, 2.2945006, loc.Longitude, 1e-7)
	assert.Equal(t, "Eiffel Tower, Paris", loc.RawInput)
	assert.Equal(t, "Eiffel Tower, Avenue Gustave Eiffel, 75007 Paris, France", loc.FormattedAddress)
	assert.Equal(t, Source, loc.Source)
	require.NotNil(t, loc.Components)
	assert.Equal(t, "Paris", loc.Components.City)
	assert.Equal(t, "75007", loc.Components.Postcode)
	assert.Equal(t, "fr", loc.Components.CountryCode)
	assert.Nil(t, loc.Population)
}

func TestResolve_MissingFormattedFallsBackToInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":{"code":200},"results":[{"geometry":{"lat":1.5,"lng":2.5}}]}`)
	}))
	defer srv.Close()

	loc, err := newTestClient(srv.URL).Resolve(context.Background(), "Somewhere")
	require.NoError(t, err)
	assert.Equal(t, "Somewhere", loc.FormattedAddress)
	require.NotNil(t, loc.Components)
}

func TestResolve_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":{"code":200,"message":"OK"},"total_results":0,"results":[]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Resolve(context.Background(), "qwertyuiop")
	gerr := requireGeocodeError(t, err)
	assert.Equal(t, KindNoResults, gerr.Kind)
	assert.False(t, gerr.Retryable())
	assert.Equal(t, `No results found for "qwertyuiop". Please try a different address.`, gerr.Message)
}

func TestResolve_StatusTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		kind      Kind
		retryable bool
		message   string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"status":{"code":401,"message":"invalid API key"}}`,
			KindInvalidCredentials, false, "API key is invalid or expired. Please check your configuration."},
		{"forbidden", http.StatusForbidden, `{"status":{"code":403,"message":"suspended"}}`,
			KindInvalidCredentials, false, "API key is invalid or expired. Please check your configuration."},
		{"rate limited", http.StatusTooManyRequests, `{"status":{"code":429,"message":"quota exceeded"}}`,
			KindRateLimited, true, "Rate limit exceeded. Please try again later."},
		{"server error", http.StatusInternalServerError, `{"status":{"code":500,"message":"boom"}}`,
			KindServerError, true, "Geocoding failed: boom"},
		{"bad gateway without body", http.StatusBadGateway, ``,
			KindServerError, true, "Geocoding failed: Unknown error"},
		{"bad request", http.StatusBadRequest, `{"status":{"code":400,"message":"invalid request"}}`,
			KindUnknown, true, "Geocoding failed: invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Resolve(context.Background(), "Paris")
			gerr := requireGeocodeError(t, err)
			assert.Equal(t, tt.kind, gerr.Kind)
			assert.Equal(t, tt.retryable, gerr.Retryable())
			assert.Equal(t, tt.status, gerr.StatusCode)
			assert.Equal(t, tt.message, gerr.Message)
		})
	}
}

func TestResolve_MissingKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithLogger(logger.NewNop()))
	_, err := c.Resolve(context.Background(), "Paris")

	gerr := requireGeocodeError(t, err)
	assert.Equal(t, KindInvalidCredentials, gerr.Kind)
	assert.False(t, gerr.Retryable())
	assert.Contains(t, gerr.Message, "OpenCage API key not found")
	assert.Equal(t, int32(0), calls.Load())
}

func TestResolve_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, WithTimeout(50*time.Millisecond)).Resolve(context.Background(), "Paris")
	gerr := requireGeocodeError(t, err)
	assert.Equal(t, KindTimeout, gerr.Kind)
	assert.True(t, gerr.Retryable())
	assert.Equal(t, "Request timed out. Please check your internet connection and try again.", gerr.Message)
}

func TestResolve_PacingPastDeadlineIsTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":{"code":200,"message":"OK"},"results":[{"geometry":{"lat":48.85,"lng":2.35},"formatted":"Paris, France"}]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL,
		WithLimiter(rate.NewLimiter(0.1, 1)),
		WithTimeout(100*time.Millisecond),
	)

	_, err := client.Resolve(context.Background(), "Paris")
	require.NoError(t, err)

	// The next slot is 10s away, well past the 100ms deadline
	_, err = client.Resolve(context.Background(), "Paris")
	gerr := requireGeocodeError(t, err)
	assert.Equal(t, KindTimeout, gerr.Kind)
	assert.True(t, gerr.Retryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolve_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Resolve(context.Background(), "Paris")
	gerr := requireGeocodeError(t, err)
	assert.Equal(t, KindNetworkError, gerr.Kind)
	assert.True(t, gerr.Retryable())
	assert.Equal(t, "Network error. Please check your internet connection.", gerr.Message)
}

func TestResolve_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>not json</html>`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Resolve(context.Background(), "Paris")
	gerr := requireGeocodeError(t, err)
	assert.Equal(t, KindUnknown, gerr.Kind)
	assert.True(t, gerr.Retryable())
	assert.Equal(t, "An unexpected error occurred. Please try again.", gerr.Message)
}

func TestResolve_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := metrics.New(prometheus.NewRegistry())
	_, _ = newTestClient(srv.URL, WithMetrics(m)).Resolve(context.Background(), "Paris")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.GeocodeRequestsTotal.WithLabelValues(string(KindRateLimited))))
}

func TestKind_Retryable(t *testing.T) {
	assert.False(t, KindNoResults.Retryable())
	assert.False(t, KindInvalidCredentials.Retryable())
	for _, k := range []Kind{KindRateLimited, KindTimeout, KindServerError, KindNetworkError, KindUnknown} {
		assert.True(t, k.Retryable(), string(k))
	}
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsRetryable(&Error{Kind: KindTimeout}))
}
