package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFetchExhausted matches every *FetchExhaustedError.
	ErrFetchExhausted = errors.New("fetch exhausted")
	ErrEmptyBody      = errors.New("empty response body")
	ErrBlockPage      = errors.New("block page detected")

	ErrTooManyRedirects = errors.New("too many redirects")
)

// FetchExhaustedError is returned once every retry attempt for a URL failed.
// Callers must treat it as terminal for that URL.
type FetchExhaustedError struct {
	URL      string
	Attempts int
	Cause    error // Last underlying failure
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("fetch %s exhausted after %d attempts: %v", e.URL, e.Attempts, e.Cause)
}

func (e *FetchExhaustedError) Unwrap() error {
	return e.Cause
}

func (e *FetchExhaustedError) Is(target error) bool {
	return target == ErrFetchExhausted
}

// StatusError reports a non-success HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.Code, http.StatusText(e.Code))
}

// blockStatuses are responses after which the session is assumed flagged.
var blockStatuses = map[int]bool{
	http.StatusUnauthorized:                true,
	http.StatusForbidden:                   true,
	http.StatusTooManyRequests:             true,
	430:                                    true,
	http.StatusRequestHeaderFieldsTooLarge: true,
	http.StatusBadGateway:                  true,
	http.StatusServiceUnavailable:          true,
	http.StatusGatewayTimeout:              true,
}

// IsBlockStatus reports whether code should reset the session before a retry.
func IsBlockStatus(code int) bool {
	return blockStatuses[code]
}
