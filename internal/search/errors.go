package search

import (
	"errors"
	"fmt"
)

// ErrEmptyQuery is returned when a search is requested without a query
var ErrEmptyQuery = errors.New("search query is empty")

// ProviderExhaustedError reports that every attempt of a search call failed.
// Err holds the last attempt's error.
type ProviderExhaustedError struct {
	Provider string
	Query    string
	Attempts int
	Err      error
}

func (e *ProviderExhaustedError) Error() string {
	return fmt.Sprintf("%s: search %q failed after %d attempt(s): %v", e.Provider, e.Query, e.Attempts, e.Err)
}

func (e *ProviderExhaustedError) Unwrap() error {
	return e.Err
}

// StatusError is a non-success HTTP reply from the backend
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status: %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status: %d: %s", e.StatusCode, e.Body)
}
