// Package metrics exposes Prometheus instrumentation for refresh runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "athens_bands"

// Recorder holds the refresh collectors on a private registry
type Recorder struct {
	registry *prometheus.Registry

	refreshTotal   *prometheus.CounterVec
	refreshSeconds prometheus.Histogram
	sourceFormat   *prometheus.CounterVec
	bucketEvents   *prometheus.GaugeVec
	skippedTotal   *prometheus.CounterVec
	lastSuccessTS  prometheus.Gauge
	purgeFailures  prometheus.Counter
}

// New creates a Recorder with Go runtime and process collectors registered
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.refreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_total",
		Help:      "Refresh runs by trigger and outcome",
	}, []string{"trigger", "status"})
	r.refreshSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "refresh_duration_seconds",
		Help:      "Wall time of refresh runs",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})
	r.sourceFormat = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_format_total",
		Help:      "Fetched documents by format; markdown means the fallback was used",
	}, []string{"format"})
	r.bucketEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "bucket_events",
		Help:      "Events in the latest stored payload",
	}, []string{"bucket"})
	r.skippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "skipped_records_total",
		Help:      "Source records or lines dropped during parsing",
	}, []string{"format"})
	r.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful refresh",
	})
	r.purgeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_purge_failures_total",
		Help:      "CDN purge requests that failed",
	})

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.refreshTotal, r.refreshSeconds, r.sourceFormat,
		r.bucketEvents, r.skippedTotal, r.lastSuccessTS, r.purgeFailures,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RefreshSucceeded records a completed run
func (r *Recorder) RefreshSucceeded(trigger, format string, today, tomorrow, skipped int, elapsed time.Duration, at time.Time) {
	r.refreshTotal.WithLabelValues(trigger, "ok").Inc()
	r.refreshSeconds.Observe(elapsed.Seconds())
	r.sourceFormat.WithLabelValues(format).Inc()
	r.skippedTotal.WithLabelValues(format).Add(float64(skipped))
	r.bucketEvents.WithLabelValues("today").Set(float64(today))
	r.bucketEvents.WithLabelValues("tomorrow").Set(float64(tomorrow))
	r.lastSuccessTS.Set(float64(at.Unix()))
}

// RefreshFailed records a run that produced no payload
func (r *Recorder) RefreshFailed(trigger string, elapsed time.Duration) {
	r.refreshTotal.WithLabelValues(trigger, "error").Inc()
	r.refreshSeconds.Observe(elapsed.Seconds())
}

// PurgeFailed records a failed CDN purge
func (r *Recorder) PurgeFailed() {
	r.purgeFailures.Inc()
}
