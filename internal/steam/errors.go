package steam

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ways a Steam endpoint lets us down.
var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrPrivate             = errors.New("profile or wishlist is not public")
	ErrUnexpectedShape     = errors.New("unexpected response shape")
	ErrAPIKeyRequired      = errors.New("steam web api key required")
	ErrInvalidAPIKey       = errors.New("steam web api key rejected")
	ErrInvalidIdentifier   = errors.New("invalid steam identifier")
	ErrAllStrategiesFailed = errors.New("could not fetch wishlist with any strategy")
)

// StatusError is returned for non-200 responses that have no better sentinel.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d for %s", e.Code, e.URL)
}

// RequestError adds the failing operation to an endpoint error.
type RequestError struct {
	Op  string // Operation that failed (e.g. "app details")
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
