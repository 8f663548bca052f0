package media

import (
	"errors"
	"fmt"
)

// Error kinds shared across the engine
var (
	// ErrNotFound indicates an entry or backend item does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates an entry with the same key already exists
	ErrDuplicate = errors.New("entry already exists")
	// ErrInvalidSeason indicates a season number the backend does not know
	ErrInvalidSeason = errors.New("invalid season")
	// ErrBackendUnavailable indicates the backend could not be reached or timed out
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrBackendRejected indicates the backend refused the request
	ErrBackendRejected = errors.New("backend rejected request")
	// ErrInvalidMediaType indicates an unknown or unsupported media type
	ErrInvalidMediaType = errors.New("invalid media type")
	// ErrInvalidExternalID indicates a catalog id that is not positive
	ErrInvalidExternalID = errors.New("invalid external id")
)

// RejectedError carries the reason a backend refused a request
type RejectedError struct {
	Reason string
	Err    error
}

// NewRejectedError builds a RejectedError with a formatted reason
func NewRejectedError(format string, args ...any) *RejectedError {
	return &RejectedError{Reason: fmt.Sprintf(format, args...)}
}

func (e *RejectedError) Error() string {
	return "backend rejected request: " + e.Reason
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Is matches ErrBackendRejected
func (e *RejectedError) Is(target error) bool {
	return target == ErrBackendRejected
}

// Reason renders err as the short reason recorded in batch results
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason
	}
	return err.Error()
}
