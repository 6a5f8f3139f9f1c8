package prometheus

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/mediaview/pkg/media/source"
	"github.com/marmos91/mediaview/pkg/metrics"
)

// sourceMetrics is the Prometheus implementation of source.Metrics.
type sourceMetrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewSourceMetrics creates a Prometheus-backed source.Metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSourceMetrics() source.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newSourceMetrics(metrics.GetRegistry())
}

func newSourceMetrics(reg prometheus.Registerer) *sourceMetrics {
	return &sourceMetrics{
		fetches: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaview_source_fetches_total",
				Help: "Total number of media fetches by scheme and status",
			},
			[]string{"scheme", "status"}, // status: "success", "not_found", "error"
		),
		fetchDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mediaview_source_fetch_duration_milliseconds",
				Help: "Time to open a media object in milliseconds",
				Buckets: []float64{
					1,     // 1ms - local file
					10,    // 10ms
					50,    // 50ms - CDN hit
					100,   // 100ms
					500,   // 500ms - S3 first byte
					1000,  // 1s
					5000,  // 5s
					10000, // 10s - retries
				},
			},
			[]string{"scheme"},
		),
	}
}

func (m *sourceMetrics) ObserveFetch(scheme string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	switch {
	case errors.Is(err, source.ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	m.fetches.WithLabelValues(scheme, status).Inc()
	m.fetchDuration.WithLabelValues(scheme).Observe(millis(duration))
}
