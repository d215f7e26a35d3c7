// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics defines an interface to collect package cache metrics.
type Metrics interface {
	// RecordCacheHit records a request that was served from the cache.
	RecordCacheHit(kind string)

	// RecordCacheMiss records a request that required a download.
	RecordCacheMiss(kind string)

	// RecordDownload records the time it takes to download an archive from an upstream.
	RecordDownload(hostname string, duration float64, count int64)

	// RecordEviction records the removal of a cached archive by the janitor.
	RecordEviction(reason string)

	// RecordRequest records the time it takes to process a request.
	RecordRequest(method, handler string, duration float64)
}

// Global is the global metrics collector.
var Global Metrics = NewPromMetrics(prometheus.DefaultRegisterer, "pkgstash")
