// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package metrics

import (
	"os"
	"syscall"
	"time"

	hmetrics "github.com/hashicorp/go-metrics"
)

var (
	// Path is the default path to write metrics.
	Path = "/var/log/pkgstashmetrics"

	// ReportInterval is the interval to report metrics.
	ReportInterval = 3 * time.Minute

	// AggregationInterval is the interval to aggregate metrics.
	AggregationInterval = 2 * time.Minute

	// RetentionPeriod is the retention period of metrics.
	RetentionPeriod = 10 * time.Minute
)

// memoryMetrics is a metrics collector that stores metrics in memory.
type memoryMetrics struct {
	sink *hmetrics.InmemSink

	reportingInterval time.Duration
	reportFilePath    string
}

// RecordCacheHit records a request that was served from the cache.
func (m *memoryMetrics) RecordCacheHit(kind string) {
	m.sink.IncrCounter([]string{"hits", kind}, 1)
}

// RecordCacheMiss records a request that required a download.
func (m *memoryMetrics) RecordCacheMiss(kind string) {
	m.sink.IncrCounter([]string{"misses", kind}, 1)
}

// RecordDownload records the time it takes to download an archive from an upstream.
func (m *memoryMetrics) RecordDownload(hostname string, duration float64, count int64) {
	m.recordLatency(duration, hostname, "download")
	m.recordBytes(count, hostname, "download")

	if duration > 0 {
		m.recordSpeed(float64(count)/duration, hostname, "download")
	}
}

// RecordEviction records the removal of a cached archive by the janitor.
func (m *memoryMetrics) RecordEviction(reason string) {
	m.sink.IncrCounter([]string{"evictions", reason}, 1)
}

// RecordRequest records the time it takes to process a request.
func (m *memoryMetrics) RecordRequest(method string, handler string, duration float64) {
	m.recordLatency(duration, "server", method+"_"+handler)
}

// recordLatency records the time it takes to perform an operation.
func (m *memoryMetrics) recordLatency(duration float64, host, op string) {
	m.sink.AddSample([]string{"latency", host, op}, float32(duration))
}

// recordSpeed records the speed of a download from a host.
func (m *memoryMetrics) recordSpeed(speed float64, host, op string) {
	m.sink.AddSample([]string{"speed", host, op}, float32(speed))
}

// recordBytes records the number of bytes downloaded from a host.
func (m *memoryMetrics) recordBytes(bytes int64, host, op string) {
	m.sink.AddSample([]string{"bytes", host, op}, float32(bytes))
}

var _ Metrics = &memoryMetrics{}

// reportPeriodically reports the current metrics to a file.
func (m *memoryMetrics) reportPeriodically() {
	go func() {
		ticker := time.NewTicker(m.reportingInterval)
		defer ticker.Stop()
		for range ticker.C {
			f, err := os.OpenFile(m.reportFilePath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
			if err == nil {
				hmetrics.NewInmemSignal(m.sink, hmetrics.DefaultSignal, f)

				_ = syscall.Kill(os.Getpid(), syscall.SIGUSR1)

				// Wait for flush.
				time.Sleep(20 * time.Millisecond)

				_ = f.Sync()
				f.Close()
			}
		}
	}()
}

// NewMemoryMetrics returns a new memory metrics collector.
func NewMemoryMetrics() Metrics {
	sink := hmetrics.NewInmemSink(AggregationInterval, RetentionPeriod)

	c := hmetrics.DefaultConfig("pkgstash")
	c.EnableRuntimeMetrics = false

	_, err := hmetrics.NewGlobal(c, sink)
	if err != nil {
		panic(err)
	}

	m := &memoryMetrics{sink, ReportInterval, Path}
	m.reportPeriodically()

	return m
}
