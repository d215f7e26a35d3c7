// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMemoryMetricsWritten(t *testing.T) {
	Path = filepath.Join(t.TempDir(), "metrics")
	ReportInterval = 200 * time.Millisecond

	m := NewMemoryMetrics()

	m.RecordCacheHit("archive")
	m.RecordCacheMiss("archive")
	m.RecordEviction("outdated")
	m.RecordDownload("gallery.example.com", 1.2, 1024)
	m.RecordRequest("GET", "archives", 1.0)

	time.Sleep(ReportInterval + 300*time.Millisecond)

	contents, err := os.ReadFile(Path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}

	if len(contents) == 0 {
		t.Fatalf("file is empty")
	}

	s := string(contents)

	for _, metric := range []string{"latency", "bytes", "speed", "hits", "evictions"} {
		if !strings.Contains(s, metric) {
			t.Fatalf("file does not contain %v metric", metric)
		}
	}
}
