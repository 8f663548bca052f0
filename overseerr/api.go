package overseerr

import (
	"context"

	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/watchlist"
)

// RequestSource lists media requests
type RequestSource interface {
	// Requests fetches every request across all pages
	Requests(ctx context.Context) ([]MediaRequest, error)
}

// Store receives imported entries
type Store interface {
	Find(ctx context.Context, key media.Key) (*media.Entry, error)
	Add(ctx context.Context, req watchlist.AddRequest) (*media.Entry, error)
}
