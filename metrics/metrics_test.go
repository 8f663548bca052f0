package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/watcharr/media"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveBackendCall(media.TypeMovie, "batch_status", 10*time.Millisecond, nil)
	r.ObserveBackendCall(media.TypeShow, "add", time.Millisecond, media.NewRejectedError("exists"))
	r.ReconciledEntry(media.TypeShow, false)
	r.Submitted(media.TypeMovie, nil)
	r.Submitted(media.TypeMovie, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.backendRequests.WithLabelValues("radarr", "batch_status", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.backendRequests.WithLabelValues("sonarr", "add", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reconcileEntries.WithLabelValues("show", "unresolved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.fulfillments.WithLabelValues("movie", "success")))

	_, err = NewRecorder(reg)
	assert.Error(t, err, "registering twice must fail")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveBackendCall(media.TypeMovie, "status", time.Second, nil)
		r.ReconciledEntry(media.TypeMovie, true)
		r.Submitted(media.TypeShow, errors.New("boom"))
	})
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{fmt.Errorf("wrap: %w", media.ErrNotFound), "not_found"},
		{media.NewRejectedError("nope"), "rejected"},
		{fmt.Errorf("dial: %w", media.ErrBackendUnavailable), "unavailable"},
		{errors.New("other"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.err))
		})
	}
}
