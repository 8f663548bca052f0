// Package metrics records prometheus metrics for backend calls, status
// reconciliation and fulfillment. A nil *Recorder is valid and records nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/s0up4200/watcharr/media"
)

const namespace = "watcharr"

// Recorder holds the engine's collectors
type Recorder struct {
	backendRequests  *prometheus.CounterVec
	backendDuration  *prometheus.HistogramVec
	reconcileEntries *prometheus.CounterVec
	fulfillments     *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend requests by backend, operation and outcome.",
		}, []string{"backend", "operation", "outcome"}),
		backendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		reconcileEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_entries_total",
			Help:      "Entries processed by status reconciliation.",
		}, []string{"media_type", "outcome"}),
		fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfillment_submissions_total",
			Help:      "Add-to-library submissions by outcome.",
		}, []string{"media_type", "outcome"}),
	}

	for _, c := range []prometheus.Collector{r.backendRequests, r.backendDuration, r.reconcileEntries, r.fulfillments} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// ObserveBackendCall records one backend request
func (r *Recorder) ObserveBackendCall(mt media.MediaType, operation string, d time.Duration, err error) {
	if r == nil {
		return
	}
	backend := backendName(mt)
	r.backendRequests.WithLabelValues(backend, operation, Outcome(err)).Inc()
	r.backendDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
}

// ReconciledEntry records whether an entry's status was resolved
func (r *Recorder) ReconciledEntry(mt media.MediaType, resolved bool) {
	if r == nil {
		return
	}
	outcome := "resolved"
	if !resolved {
		outcome = "unresolved"
	}
	r.reconcileEntries.WithLabelValues(string(mt), outcome).Inc()
}

// Submitted records the outcome of one add-to-library submission
func (r *Recorder) Submitted(mt media.MediaType, err error) {
	if r == nil {
		return
	}
	r.fulfillments.WithLabelValues(string(mt), Outcome(err)).Inc()
}

// Outcome maps an error to a low-cardinality label value
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, media.ErrNotFound):
		return "not_found"
	case errors.Is(err, media.ErrBackendRejected):
		return "rejected"
	case errors.Is(err, media.ErrBackendUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func backendName(mt media.MediaType) string {
	switch mt {
	case media.TypeMovie:
		return "radarr"
	case media.TypeShow:
		return "sonarr"
	}
	return "unknown"
}
