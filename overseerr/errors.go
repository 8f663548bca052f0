package overseerr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidConfig indicates invalid client configuration
var ErrInvalidConfig = errors.New("invalid overseerr configuration")

// APIError represents an Overseerr API error
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("overseerr API error: status %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
