package geocoder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an address resolution failure.
type Kind string

const (
	KindNoResults          Kind = "no_results"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindRateLimited        Kind = "rate_limited"
	KindTimeout            Kind = "timeout"
	KindServerError        Kind = "server_error"
	KindNetworkError       Kind = "network_error"
	KindUnknown            Kind = "unknown"
)

// Retryable reports whether a failure of this kind is worth offering a retry for.
func (k Kind) Retryable() bool {
	switch k {
	case KindNoResults, KindInvalidCredentials:
		return false
	default:
		return true
	}
}

// Error is an address resolution failure. Message is safe to show to users;
// the wrapped cause is for logs only.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failed lookup may succeed if repeated.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// IsRetryable reports whether err carries a retryable *Error.
func IsRetryable(err error) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Retryable()
	}
	return false
}

func errMissingKey() *Error {
	return &Error{
		Kind:       KindInvalidCredentials,
		Message:    "OpenCage API key not found. Please set OPENCAGE_API_KEY in your environment or .env file.",
		StatusCode: http.StatusForbidden,
	}
}

func errNoResults(address string) *Error {
	return &Error{
		Kind:       KindNoResults,
		Message:    fmt.Sprintf("No results found for %q. Please try a different address.", address),
		StatusCode: http.StatusNotFound,
	}
}

// errFromStatus maps a non-2xx provider response to an Error.
func errFromStatus(statusCode int, providerMessage string, cause error) *Error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &Error{
			Kind:       KindInvalidCredentials,
			Message:    "API key is invalid or expired. Please check your configuration.",
			StatusCode: statusCode,
			Err:        cause,
		}
	case statusCode == http.StatusTooManyRequests:
		return &Error{
			Kind:       KindRateLimited,
			Message:    "Rate limit exceeded. Please try again later.",
			StatusCode: statusCode,
			Err:        cause,
		}
	}

	if providerMessage == "" {
		providerMessage = "Unknown error"
	}
	kind := KindUnknown
	if statusCode >= 500 {
		kind = KindServerError
	}
	return &Error{
		Kind:       kind,
		Message:    "Geocoding failed: " + providerMessage,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// errFromTransport maps a failure to get any response at all to an Error.
func errFromTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errTimeout(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errTimeout(err)
		}
		return &Error{
			Kind:    KindNetworkError,
			Message: "Network error. Please check your internet connection.",
			Err:     err,
		}
	}

	return errUnexpected(err)
}

// errFromWait maps a failed outbound rate-limit wait. The limiter refuses
// immediately when the next free slot lies past the request deadline.
func errFromWait(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return errFromTransport(err)
	}
	if _, ok := ctx.Deadline(); ok {
		return errTimeout(err)
	}
	return errFromTransport(err)
}

func errTimeout(err error) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: "Request timed out. Please check your internet connection and try again.",
		Err:     err,
	}
}

func errUnexpected(err error) *Error {
	return &Error{
		Kind:    KindUnknown,
		Message: "An unexpected error occurred. Please try again.",
		Err:     err,
	}
}
