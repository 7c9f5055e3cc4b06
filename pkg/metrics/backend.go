package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics records calls made to the managed backend.
type BackendMetrics struct {
	duration  *prometheus.HistogramVec
	failure   *prometheus.CounterVec
	snapshots *prometheus.CounterVec
}

// NewBackendMetrics registers the backend metrics on the provided registerer.
func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	if reg == nil {
		return &BackendMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_operation_duration_seconds",
		Help:    "Duration of managed backend operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection", "op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_operation_failure",
		Help: "Failed managed backend operations.",
	}, []string{"collection", "op"})
	snapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_snapshot_delivered",
		Help: "Collection snapshots delivered to listeners.",
	}, []string{"collection"})
	reg.MustRegister(duration, failure, snapshots)
	return &BackendMetrics{
		duration:  duration,
		failure:   failure,
		snapshots: snapshots,
	}
}

// ObserveOp records one backend call and whether it failed.
func (b *BackendMetrics) ObserveOp(collection, op string, duration time.Duration, err error) {
	if b == nil || b.duration == nil {
		return
	}
	label := CollectionLabel(collection)
	b.duration.WithLabelValues(label, normalizeLabel(op)).Observe(duration.Seconds())
	if err != nil {
		b.failure.WithLabelValues(label, normalizeLabel(op)).Inc()
	}
}

// IncSnapshot counts one delivered snapshot.
func (b *BackendMetrics) IncSnapshot(collection string) {
	if b == nil || b.snapshots == nil {
		return
	}
	b.snapshots.WithLabelValues(CollectionLabel(collection)).Inc()
}

// CollectionLabel replaces document ids in a collection path with "*" so
// per-user paths share one series: users/abc/cart -> users/*/cart.
func CollectionLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := range segments {
		if i%2 == 1 {
			segments[i] = "*"
		}
	}
	return normalizeLabel(strings.Join(segments, "/"))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
