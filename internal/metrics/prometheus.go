// Package metrics provides a metrics collector that stores metrics in Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// promMetrics is a metrics collector that stores metrics in Prometheus.
type promMetrics struct {
	requestDuration *prometheus.HistogramVec
	downloadSpeed   *prometheus.HistogramVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	evictions       *prometheus.CounterVec
}

var _ Metrics = &promMetrics{}

// RecordCacheHit records a request that was served from the cache.
func (m *promMetrics) RecordCacheHit(kind string) {
	m.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss records a request that required a download.
func (m *promMetrics) RecordCacheMiss(kind string) {
	m.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordDownload records the speed of a download from an upstream.
// It calculates the speed (count/duration) and updates the Prometheus metric.
func (m *promMetrics) RecordDownload(hostname string, duration float64, count int64) {
	if duration <= 0 {
		return
	}
	bps := float64(count) / duration
	m.downloadSpeed.WithLabelValues(hostname).Observe(bps / float64(1024*1024))
}

// RecordEviction records the removal of a cached archive by the janitor.
func (m *promMetrics) RecordEviction(reason string) {
	m.evictions.WithLabelValues(reason).Inc()
}

// RecordRequest records the duration of a request for a specific method and handler.
// It updates the Prometheus metric for request duration.
func (m *promMetrics) RecordRequest(method string, handler string, duration float64) {
	m.requestDuration.WithLabelValues(method, handler).Observe(duration)
}

// NewPromMetrics creates a new instance of promMetrics.
func NewPromMetrics(reg prometheus.Registerer, prefix string) *promMetrics {

	requestDurationHist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    prefix + "_request_duration_seconds",
		Help:    "Duration of requests in seconds.",
		Buckets: prometheus.LinearBuckets(0.005, 0.025, 200),
	}, []string{"method", "handler"})
	reg.MustRegister(requestDurationHist)

	downloadSpeedHist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: prefix + "_download_speed_mebibytes_per_second",
		Help: "Speed of upstream downloads in mebibytes per second.",
	}, []string{"hostname"})
	reg.MustRegister(downloadSpeedHist)

	cacheHitsCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_cache_hits_total",
		Help: "Number of requests served from the cache.",
	}, []string{"kind"})
	reg.MustRegister(cacheHitsCounter)

	cacheMissesCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_cache_misses_total",
		Help: "Number of requests that required a download.",
	}, []string{"kind"})
	reg.MustRegister(cacheMissesCounter)

	evictionsCounter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: prefix + "_evictions_total",
		Help: "Number of archives removed by the cache janitor.",
	}, []string{"reason"})
	reg.MustRegister(evictionsCounter)

	return &promMetrics{
		requestDuration: requestDurationHist,
		downloadSpeed:   downloadSpeedHist,
		cacheHits:       cacheHitsCounter,
		cacheMisses:     cacheMissesCounter,
		evictions:       evictionsCounter,
	}
}
