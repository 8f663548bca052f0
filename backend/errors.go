package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golift.io/starr"

	"github.com/s0up4200/watcharr/media"
)

// classify maps a raw adapter error onto the media error kinds. Timeouts and
// transport failures become media.ErrBackendUnavailable.
func classify(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, media.ErrNotFound),
		errors.Is(err, media.ErrBackendRejected),
		errors.Is(err, media.ErrBackendUnavailable),
		errors.Is(err, media.ErrInvalidSeason),
		errors.Is(err, media.ErrInvalidMediaType):
		return err
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", media.ErrBackendUnavailable, err)
	}

	var reqErr *starr.ReqError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.Code == http.StatusNotFound:
			return fmt.Errorf("%w: %w", media.ErrNotFound, err)
		case reqErr.Code == http.StatusTooManyRequests, reqErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", media.ErrBackendUnavailable, err)
		case reqErr.Code >= http.StatusBadRequest:
			return &media.RejectedError{Reason: err.Error(), Err: err}
		}
	}

	// Transport failures (net.Error) and anything else unrecognized mean
	// no usable answer came back
	return fmt.Errorf("%w: %w", media.ErrBackendUnavailable, err)
}

// retryable reports whether a read may be attempted again
func retryable(err error) bool {
	return errors.Is(err, media.ErrBackendUnavailable) && !errors.Is(err, context.Canceled)
}
