package services

import (
	"errors"
	"fmt"
	"net"

	"github.com/desertthunder/crosstune/internal/shared"
)

// ErrorKind classifies an API failure by its HTTP status family.
type ErrorKind int

const (
	KindGeneric ErrorKind = iota
	KindAuthentication
	KindNotFound
	KindRateLimit
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	case KindServer:
		return "server"
	default:
		return "api"
	}
}

// APIError is a classified failure from a catalog API call.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Context    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed: %s error (status %d)", e.Context, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: %s error", e.Context, e.Kind)
}

// Unwrap ties the taxonomy to the shared sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Kind {
	case KindAuthentication:
		return shared.ErrAuthFailed
	case KindRateLimit:
		return shared.ErrRateLimited
	default:
		return shared.ErrAPIRequest
	}
}

// NewAPIError builds an APIError for the given HTTP status, classified per the
// taxonomy: 401/403 authentication, 404 not found, 429 rate limit, 5xx server,
// anything else generic.
func NewAPIError(context string, statusCode int) *APIError {
	kind := KindGeneric
	switch {
	case statusCode == 401 || statusCode == 403:
		kind = KindAuthentication
	case statusCode == 404:
		kind = KindNotFound
	case statusCode == 429:
		kind = KindRateLimit
	case statusCode >= 500 && statusCode < 600:
		kind = KindServer
	}
	return &APIError{Kind: kind, StatusCode: statusCode, Context: context}
}

// IsTransient reports whether err is worth retrying: rate limit responses,
// server errors, timeouts, and connection failures. Authentication and
// not-found failures are never transient.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindRateLimit || apiErr.Kind == KindServer
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, shared.ErrTimeout) || errors.Is(err, shared.ErrRateLimited)
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindAuthentication
	}
	return errors.Is(err, shared.ErrAuthFailed) || errors.Is(err, shared.ErrNotAuthenticated)
}

// IsNotFound reports whether err is a not-found failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindNotFound
	}
	return false
}
