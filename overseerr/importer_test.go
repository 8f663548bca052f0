package overseerr

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/watchlist"
)

type staticSource struct {
	requests []MediaRequest
	err      error
}

func (s *staticSource) Requests(ctx context.Context) ([]MediaRequest, error) {
	return s.requests, s.err
}

func newTestRepository(t *testing.T) *watchlist.Repository {
	t.Helper()

	db, err := watchlist.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return watchlist.NewRepository(db, zerolog.Nop())
}

func showRequest(tmdbID int64, status RequestStatus, seasons ...int) MediaRequest {
	req := MediaRequest{
		Type:        MediaTypeTV,
		Status:      status,
		RequestedBy: User{Username: "alice"},
		Media:       Media{TmdbID: tmdbID, MediaType: MediaTypeTV},
	}
	for _, n := range seasons {
		req.Seasons = append(req.Seasons, Season{SeasonNumber: n, Status: status})
	}
	return req
}

func movieRequest(tmdbID int64, status RequestStatus) MediaRequest {
	return MediaRequest{
		Type:        MediaTypeMovie,
		Status:      status,
		RequestedBy: User{DisplayName: "Bob"},
		Media:       Media{TmdbID: tmdbID, MediaType: MediaTypeMovie},
	}
}

func TestToAddRequests(t *testing.T) {
	requests := []MediaRequest{
		movieRequest(603, RequestStatusApproved),
		showRequest(1399, RequestStatusPending, 2, 1),
		movieRequest(550, RequestStatusDeclined),
		showRequest(1399, RequestStatusApproved, 3, 0),
		movieRequest(603, RequestStatusAvailable),
		showRequest(82856, RequestStatusFailed, 1),
		{Type: "music", Status: RequestStatusApproved, Media: Media{TmdbID: 1}},
	}

	out := ToAddRequests(requests)
	require.Len(t, out, 2)

	assert.Equal(t, int64(603), out[0].ExternalID)
	assert.Equal(t, media.TypeMovie, out[0].MediaType)
	assert.Empty(t, out[0].SelectedSeasons)
	require.NotNil(t, out[0].Notes)
	assert.Equal(t, "requested by Bob", *out[0].Notes)

	assert.Equal(t, int64(1399), out[1].ExternalID)
	assert.Equal(t, media.TypeShow, out[1].MediaType)
	assert.Equal(t, []int{1, 2, 3}, out[1].SelectedSeasons)
	assert.Equal(t, "requested by alice", *out[1].Notes)
}

func TestToAddRequests_AllSeasonsWins(t *testing.T) {
	out := ToAddRequests([]MediaRequest{
		showRequest(1399, RequestStatusApproved, 2),
		showRequest(1399, RequestStatusApproved),
	})

	require.Len(t, out, 1)
	assert.Empty(t, out[0].SelectedSeasons)
}

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.Add(ctx, watchlist.AddRequest{ExternalID: 603, MediaType: media.TypeMovie})
	require.NoError(t, err)

	source := &staticSource{requests: []MediaRequest{
		movieRequest(603, RequestStatusApproved),
		showRequest(1399, RequestStatusApproved, 1, 2),
		movieRequest(550, RequestStatusPending),
	}}

	result, err := NewImporter(source, repo, zerolog.Nop()).Import(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, []media.Key{
		{ExternalID: 1399, MediaType: media.TypeShow},
		{ExternalID: 550, MediaType: media.TypeMovie},
	}, result.Added)
	assert.Contains(t, result.Skipped, media.Key{ExternalID: 603, MediaType: media.TypeMovie})

	show, err := repo.Find(ctx, media.Key{ExternalID: 1399, MediaType: media.TypeShow})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, show.SelectedSeasons)
	assert.Equal(t, media.StateUnknown, show.Status.State)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestImporter_SourceError(t *testing.T) {
	source := &staticSource{err: errors.New("connection refused")}

	result, err := NewImporter(source, newTestRepository(t), zerolog.Nop()).Import(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)
}
