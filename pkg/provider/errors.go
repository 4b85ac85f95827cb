package provider

import (
	"errors"
	"fmt"
)

// ErrNoProvider is returned when no backend has a usable credential.
var ErrNoProvider = errors.New("no AI provider configured")

// ProviderError is an upstream failure: a non-2xx status or a body that could
// not be decoded. Body is the raw upstream body, kept for operator diagnosis.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s returned %d: %v", e.Provider, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
