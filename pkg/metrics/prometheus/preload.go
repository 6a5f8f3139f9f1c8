// Package prometheus implements the observer interfaces of the preload
// cache and the media fetchers with Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/mediaview/pkg/metrics"
	"github.com/marmos91/mediaview/pkg/preload"
)

// preloadMetrics is the Prometheus implementation of preload.CacheMetrics.
//
// All sessions share these collectors, so cache size is recorded as a
// distribution rather than a gauge. Per-session sizes are served by the API.
type preloadMetrics struct {
	issued             *prometheus.CounterVec
	completed          *prometheus.CounterVec
	preloadDuration    *prometheus.HistogramVec
	evictions          *prometheus.CounterVec
	lookups            *prometheus.CounterVec
	admissionRejected  prometheus.Counter
	cacheEntries       prometheus.Histogram
	loadDuration       prometheus.Histogram
	navigationDuration prometheus.Histogram
}

// latencyBuckets covers a cached hit (sub-millisecond) up to a slow remote
// fetch.
var latencyBuckets = []float64{
	1,     // 1ms - local file
	5,     // 5ms
	10,    // 10ms
	50,    // 50ms - same-region CDN
	100,   // 100ms
	250,   // 250ms
	500,   // 500ms
	1000,  // 1s - large image over slow link
	5000,  // 5s
	30000, // 30s
}

// NewPreloadMetrics creates a Prometheus-backed preload.CacheMetrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewPreloadMetrics() preload.CacheMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newPreloadMetrics(metrics.GetRegistry())
}

func newPreloadMetrics(reg prometheus.Registerer) *preloadMetrics {
	return &preloadMetrics{
		issued: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaview_preload_issued_total",
				Help: "Total number of prefetches started by media kind",
			},
			[]string{"kind"},
		),
		completed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaview_preload_completed_total",
				Help: "Total number of finished prefetches by media kind and result",
			},
			[]string{"kind", "result"}, // result: "loaded", "failed"
		),
		preloadDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mediaview_preload_duration_milliseconds",
				Help:    "Time from prefetch issue to completion in milliseconds",
				Buckets: latencyBuckets,
			},
			[]string{"kind"},
		),
		evictions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaview_preload_evictions_total",
				Help: "Total number of released cache entries by media kind and reason",
			},
			[]string{"kind", "reason"}, // reason: "capacity", "pressure", "replace", "clear"
		),
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mediaview_preload_lookups_total",
				Help: "Total number of cache lookups by status",
			},
			[]string{"status"}, // status: "hit", "miss"
		),
		admissionRejected: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mediaview_preload_admission_rejected_total",
				Help: "Total number of preload calls cut short by memory pressure",
			},
		),
		cacheEntries: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mediaview_preload_cache_entries",
				Help:    "Distribution of cache entry counts reported after each change",
				Buckets: prometheus.LinearBuckets(0, 2, 11),
			},
		),
		loadDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mediaview_viewer_load_duration_milliseconds",
				Help:    "Load intervals measured by the viewer in milliseconds",
				Buckets: latencyBuckets,
			},
		),
		navigationDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mediaview_viewer_navigation_duration_milliseconds",
				Help:    "Navigation intervals measured by the viewer in milliseconds",
				Buckets: latencyBuckets,
			},
		),
	}
}

func millis(d time.Duration) float64 {
	return d.Seconds() * 1000
}

func (m *preloadMetrics) ObservePreload(kind preload.Kind, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "loaded"
	if !success {
		result = "failed"
	}
	m.completed.WithLabelValues(string(kind), result).Inc()
	m.preloadDuration.WithLabelValues(string(kind)).Observe(millis(duration))
}

func (m *preloadMetrics) RecordIssued(kind preload.Kind) {
	if m == nil {
		return
	}
	m.issued.WithLabelValues(string(kind)).Inc()
}

func (m *preloadMetrics) RecordEviction(kind preload.Kind, reason preload.EvictReason) {
	if m == nil {
		return
	}
	m.evictions.WithLabelValues(string(kind), string(reason)).Inc()
}

func (m *preloadMetrics) RecordLookup(hit bool) {
	if m == nil {
		return
	}
	status := "miss"
	if hit {
		status = "hit"
	}
	m.lookups.WithLabelValues(status).Inc()
}

func (m *preloadMetrics) RecordAdmissionRejected() {
	if m == nil {
		return
	}
	m.admissionRejected.Inc()
}

func (m *preloadMetrics) RecordCacheSize(entries int) {
	if m == nil {
		return
	}
	m.cacheEntries.Observe(float64(entries))
}

func (m *preloadMetrics) ObserveNavigation(duration time.Duration) {
	if m == nil {
		return
	}
	m.navigationDuration.Observe(millis(duration))
}

func (m *preloadMetrics) ObserveLoad(duration time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(millis(duration))
}
