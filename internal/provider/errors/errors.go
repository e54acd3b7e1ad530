// Package errors is the error taxonomy shared by the hosting-platform
// clients. Platform packages translate their API errors into these
// sentinels so callers can branch with errors.Is regardless of platform.
package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

var (
	// ErrNoToken is returned when no API token is configured.
	ErrNoToken = errors.New("api token not found")

	// ErrUnauthorized is returned when the API token is invalid or expired.
	ErrUnauthorized = errors.New("token unauthorized or expired")

	// ErrInsufficientScope is returned when the token lacks a permission.
	ErrInsufficientScope = errors.New("token lacks required scope")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("api rate limit exceeded")

	// ErrNetworkError is returned for transport-level failures.
	ErrNetworkError = errors.New("network error")

	// ErrUnavailable is returned for gateway and availability failures
	// (502, 503, 504). These are worth retrying.
	ErrUnavailable = errors.New("platform temporarily unavailable")

	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrRepoNotDetected is returned when a remote URL cannot be mapped to a
	// repository on the platform.
	ErrRepoNotDetected = errors.New("could not detect repository from git remote")
)

// ProviderError wraps an error with the platform name.
type ProviderError struct {
	Err      error
	Provider string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps an error with provider context.
func NewProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// WrapStatus maps an HTTP status from a platform API response to a typed
// error. message is the platform's error text, used to tell rate limiting
// apart from permission failures on 403.
func WrapStatus(provider string, status int, message string, err error) error {
	if err == nil {
		return nil
	}

	switch status {
	case http.StatusUnauthorized:
		return NewProviderError(provider, fmt.Errorf("%w: %w", ErrUnauthorized, err))
	case http.StatusForbidden:
		if strings.Contains(strings.ToLower(message), "rate limit") {
			return NewProviderError(provider, fmt.Errorf("%w: %w", ErrRateLimited, err))
		}
		return NewProviderError(provider, fmt.Errorf("%w: %w", ErrInsufficientScope, err))
	case http.StatusNotFound:
		return NewProviderError(provider, fmt.Errorf("%w: %w", ErrNotFound, err))
	case http.StatusTooManyRequests:
		return NewProviderError(provider, fmt.Errorf("%w: %w", ErrRateLimited, err))
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return NewProviderError(provider, fmt.Errorf("%w: %w", ErrUnavailable, err))
	}

	return WrapNetwork(provider, err)
}

// WrapNetwork marks transport failures with ErrNetworkError and returns any
// other error unchanged.
func WrapNetwork(provider string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewProviderError(provider, fmt.Errorf("%w: %w", ErrNetworkError, err))
	}
	return err
}

// NoTokenError creates a provider-specific "no token" error.
func NoTokenError(provider string) error {
	return NewProviderError(provider, ErrNoToken)
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimited returns true if err is or wraps ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
