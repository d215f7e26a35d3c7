// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/azure/pkgstash/internal/identity"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// diskCache implements Cache.
type diskCache struct {
	fs        afero.Fs
	cfg       Config
	log       zerolog.Logger
	sweepDone chan struct{}
}

var _ Cache = &diskCache{}

// New creates a new package archive cache rooted at cfg.Path. The startup
// sweep is launched exactly once here; every operation awaits its completion
// before touching the directory.
func New(ctx context.Context, cfg Config, fs afero.Fs) Cache {
	log := zerolog.Ctx(ctx).With().Str("component", "cache").Logger()

	c := &diskCache{
		fs:        fs,
		cfg:       cfg,
		log:       log,
		sweepDone: make(chan struct{}),
	}

	go func() {
		defer close(c.sweepDone)
		c.sweep()
	}()

	return c
}

// Ready returns a channel that is closed once the startup sweep has finished.
func (c *diskCache) Ready() <-chan struct{} {
	return c.sweepDone
}

// Path returns the cache directory.
func (c *diskCache) Path() string {
	return c.cfg.Path
}

// Get returns the cached location of the archive for id, downloading it first
// if it is not present.
func (c *diskCache) Get(ctx context.Context, id identity.PackageIdentity, archive, signature DownloadFunc) (ArchivePaths, error) {
	<-c.sweepDone

	if err := c.fs.MkdirAll(c.cfg.Path, 0755); err != nil {
		return ArchivePaths{}, err
	}

	log := c.log.With().Str("package", id.Name).Str("version", id.Version).Logger()
	target := filepath.Join(c.cfg.Path, c.entryName(id))

	if err := c.publish(ctx, log, target, archive, "archive"); err != nil {
		return ArchivePaths{}, err
	}
	paths := ArchivePaths{Archive: target}

	if signature != nil {
		sig := identity.SignatureArchiveName(target)
		if err := c.publish(ctx, log, sig, signature, "signature"); err != nil {
			return ArchivePaths{}, err
		}
		paths.Signature = sig
	}

	return paths, nil
}

// Delete removes the file at path. Failures are logged, not returned.
func (c *diskCache) Delete(ctx context.Context, path string) {
	<-c.sweepDone

	if err := c.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		c.log.Warn().Err(err).Str("path", path).Msg("delete failed")
	}
}

// entryName derives the archive file name for id. With caching disabled the
// name is random, so other processes can never observe a hit.
func (c *diskCache) entryName(id identity.PackageIdentity) string {
	if c.cfg.Capacity <= 0 {
		return uuid.NewString()
	}
	return id.Key()
}
