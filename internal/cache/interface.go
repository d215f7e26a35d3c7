// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package cache

import (
	"context"
	"time"

	"github.com/azure/pkgstash/internal/identity"
)

// DownloadFunc materializes a package archive at the given staging path.
// On success, a complete byte-for-byte file must exist at stagingPath.
// Network retries and backoff are the responsibility of the implementation.
type DownloadFunc func(ctx context.Context, stagingPath string) error

// ArchivePaths holds the resolved cache locations of a package archive and,
// if requested, its detached signature archive.
type ArchivePaths struct {
	Archive   string
	Signature string
}

// Cache describes a local disk cache for downloaded package archives.
//
// The cache directory may be shared by multiple processes. Correctness relies
// on the atomicity of rename and on idempotent existence checks, not on any
// in-memory lock.
type Cache interface {
	// Get returns the cached location of the archive for id, downloading it
	// via archive first if it is not present. If signature is not nil, the
	// paired signature archive is fetched the same way.
	Get(ctx context.Context, id identity.PackageIdentity, archive, signature DownloadFunc) (ArchivePaths, error)

	// Delete removes the file at path. Failures are logged, not returned.
	// Removing a paired signature archive is the caller's responsibility.
	Delete(ctx context.Context, path string)

	// Ready returns a channel that is closed once the startup sweep has
	// finished. Get and Delete await it internally.
	Ready() <-chan struct{}

	// Path returns the cache directory.
	Path() string
}

// Config configures a cache. A capacity of 0 disables identity based naming
// and retention: every download lands under a random name.
type Config struct {
	// Path is the cache directory.
	Path string

	// Capacity is the maximum number of distinct packages retained.
	Capacity int
}

var (
	// RenameRetryWindow bounds how long a publish keeps retrying a rename
	// that fails with a transient permission error.
	RenameRetryWindow = 2 * time.Minute

	// RenameRetryInterval is the pause between rename attempts.
	RenameRetryInterval = 100 * time.Millisecond
)
