package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golift.io/starr"

	"github.com/s0up4200/watcharr/media"
	"github.com/s0up4200/watcharr/metrics"
)

// fakeBackend implements MovieBackend and ShowBackend. Errors are returned
// for the first failures calls of every operation.
type fakeBackend struct {
	mu sync.Mutex

	mt       media.MediaType
	err      error
	failures int

	calls     map[string]int
	batchIDs  [][]int64
	addSeason [][]int
}

func newFakeBackend(mt media.MediaType) *fakeBackend {
	return &fakeBackend{mt: mt, calls: make(map[string]int)}
}

func (f *fakeBackend) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[op]++
	if f.err != nil && (f.failures == 0 || f.calls[op] <= f.failures) {
		return f.err
	}
	return nil
}

func (f *fakeBackend) status(id int64) *media.BackendStatus {
	backendID := id + 1000
	return &media.BackendStatus{ExternalID: id, MediaType: f.mt, InLibrary: true, BackendID: &backendID}
}

func (f *fakeBackend) Status(ctx context.Context, id int64) (*media.BackendStatus, error) {
	if err := f.record("status"); err != nil {
		return nil, err
	}
	return f.status(id), nil
}

func (f *fakeBackend) BatchStatus(ctx context.Context, ids []int64) (map[int64]*media.BackendStatus, error) {
	f.mu.Lock()
	f.batchIDs = append(f.batchIDs, ids)
	f.mu.Unlock()

	if err := f.record("batch"); err != nil {
		return nil, err
	}

	out := make(map[int64]*media.BackendStatus, len(ids))
	for _, id := range ids {
		out[id] = f.status(id)
	}
	return out, nil
}

func (f *fakeBackend) Add(ctx context.Context, id int64) (int64, error) {
	return f.AddSeasons(ctx, id, nil)
}

func (f *fakeBackend) AddSeasons(ctx context.Context, id int64, seasons []int) (int64, error) {
	f.mu.Lock()
	f.addSeason = append(f.addSeason, seasons)
	f.mu.Unlock()

	if err := f.record("add"); err != nil {
		return 0, err
	}
	return id + 1000, nil
}

func (f *fakeBackend) Seasons(ctx context.Context, id int64) ([]media.Season, error) {
	if err := f.record("seasons"); err != nil {
		return nil, err
	}
	return []media.Season{{Number: 1}, {Number: 2}}, nil
}

// showBackend adapts fakeBackend to the ShowBackend add signature
type showBackend struct{ *fakeBackend }

func (s showBackend) Add(ctx context.Context, id int64, seasons []int) (int64, error) {
	return s.AddSeasons(ctx, id, seasons)
}

func newTestClient(opts ...Option) (*Client, *fakeBackend, *fakeBackend) {
	movies := newFakeBackend(media.TypeMovie)
	shows := newFakeBackend(media.TypeShow)
	opts = append([]Option{WithRetryInterval(time.Millisecond)}, opts...)
	return New(movies, showBackend{shows}, zerolog.Nop(), opts...), movies, shows
}

func TestClient_Routing(t *testing.T) {
	client, movies, shows := newTestClient()
	ctx := context.Background()

	_, err := client.BatchStatus(ctx, []int64{1, 2, 3}, media.TypeMovie)
	require.NoError(t, err)
	_, err = client.BatchStatus(ctx, []int64{4, 5}, media.TypeShow)
	require.NoError(t, err)

	assert.Equal(t, [][]int64{{1, 2, 3}}, movies.batchIDs)
	assert.Equal(t, [][]int64{{4, 5}}, shows.batchIDs)

	status, err := client.Status(ctx, 7, media.TypeShow)
	require.NoError(t, err)
	assert.Equal(t, media.TypeShow, status.MediaType)
	assert.Zero(t, movies.calls["status"])

	_, err = client.AddToLibrary(ctx, 8, media.TypeShow, []int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}}, shows.addSeason)
	assert.Empty(t, movies.addSeason)
}

func TestClient_BatchStatusEmpty(t *testing.T) {
	client, movies, _ := newTestClient()

	statuses, err := client.BatchStatus(context.Background(), nil, media.TypeMovie)
	require.NoError(t, err)
	assert.Empty(t, statuses)
	assert.Zero(t, movies.calls["batch"])
}

func TestClient_InvalidMediaType(t *testing.T) {
	client, _, _ := newTestClient()
	ctx := context.Background()

	_, err := client.Status(ctx, 1, "album")
	require.ErrorIs(t, err, media.ErrInvalidMediaType)

	_, err = client.AddToLibrary(ctx, 1, "", nil)
	require.ErrorIs(t, err, media.ErrInvalidMediaType)
}

func TestClient_UnconfiguredBackend(t *testing.T) {
	shows := newFakeBackend(media.TypeShow)
	client := New(nil, showBackend{shows}, zerolog.Nop())

	_, err := client.BatchStatus(context.Background(), []int64{1}, media.TypeMovie)
	require.ErrorIs(t, err, media.ErrBackendUnavailable)

	_, err = client.ListSeasons(context.Background(), 1)
	require.NoError(t, err)
}

func TestClient_ReadsRetryWhileUnavailable(t *testing.T) {
	client, movies, _ := newTestClient(WithMaxRetries(3))
	movies.err = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	movies.failures = 2

	status, err := client.Status(context.Background(), 603, media.TypeMovie)
	require.NoError(t, err)
	assert.True(t, status.InLibrary)
	assert.Equal(t, 3, movies.calls["status"])
}

func TestClient_ReadsGiveUp(t *testing.T) {
	client, _, shows := newTestClient(WithMaxRetries(2))
	shows.err = &starr.ReqError{Code: 503}

	_, err := client.ListSeasons(context.Background(), 1399)
	require.ErrorIs(t, err, media.ErrBackendUnavailable)
	assert.Equal(t, 3, shows.calls["seasons"], "one attempt plus two retries")
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	client, movies, _ := newTestClient()
	movies.err = fmt.Errorf("%w: movie 1", media.ErrNotFound)

	_, err := client.Status(context.Background(), 1, media.TypeMovie)
	require.ErrorIs(t, err, media.ErrNotFound)
	assert.Equal(t, 1, movies.calls["status"])
}

func TestClient_AddIsNotRetried(t *testing.T) {
	client, movies, _ := newTestClient(WithMaxRetries(5))
	movies.err = context.DeadlineExceeded

	_, err := client.AddToLibrary(context.Background(), 603, media.TypeMovie, nil)
	require.ErrorIs(t, err, media.ErrBackendUnavailable)
	assert.Equal(t, 1, movies.calls["add"])
}

func TestClient_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	require.NoError(t, err)

	client, movies, _ := newTestClient(WithMetrics(recorder), WithMaxRetries(0))
	ctx := context.Background()

	_, err = client.AddToLibrary(ctx, 1, media.TypeMovie, nil)
	require.NoError(t, err)

	movies.err = &starr.ReqError{Code: 400}
	_, err = client.AddToLibrary(ctx, 2, media.TypeMovie, nil)
	require.ErrorIs(t, err, media.ErrBackendRejected)

	assert.Equal(t, 2, testutil.CollectAndCount(reg, "watcharr_backend_requests_total"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: media.ErrBackendUnavailable},
		{name: "dial failure", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, want: media.ErrBackendUnavailable},
		{name: "server error", err: &starr.ReqError{Code: 502}, want: media.ErrBackendUnavailable},
		{name: "rate limited", err: &starr.ReqError{Code: 429}, want: media.ErrBackendUnavailable},
		{name: "missing", err: &starr.ReqError{Code: 404}, want: media.ErrNotFound},
		{name: "bad request", err: fmt.Errorf("failed to add: %w", &starr.ReqError{Code: 400}), want: media.ErrBackendRejected},
		{name: "already classified", err: media.NewRejectedError("exists"), want: media.ErrBackendRejected},
		{name: "invalid season", err: media.ErrInvalidSeason, want: media.ErrInvalidSeason},
		{name: "canceled", err: context.Canceled, want: context.Canceled},
		{name: "unknown", err: errors.New("unexpected end of JSON input"), want: media.ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}

	assert.NoError(t, classify(nil))
}
