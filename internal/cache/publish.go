// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/azure/pkgstash/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// renameErrKind classifies rename failures into the cases the publish loop
// handles. The platform specific error codes stay behind this enumeration.
type renameErrKind int

const (
	// renameTransient is a permission race that resolves itself; the rename
	// is retried until RenameRetryWindow elapses.
	renameTransient renameErrKind = iota

	// renameConflict means another writer already produced the target; the
	// publish is treated as a success.
	renameConflict

	// renameOther is any other failure and aborts the publish.
	renameOther
)

func classifyRenameError(err error) renameErrKind {
	switch {
	case errors.Is(err, os.ErrPermission):
		return renameTransient
	case errors.Is(err, syscall.ENOTEMPTY), errors.Is(err, syscall.EEXIST), errors.Is(err, afero.ErrDestinationExists):
		return renameConflict
	default:
		return renameOther
	}
}

// publish ensures a complete file exists at target, invoking produce to
// materialize it at a private staging path and renaming it into place. An
// existing target is returned as-is; that existence check is the sole
// deduplication between concurrent producers, in this process or another.
func (c *diskCache) publish(ctx context.Context, log zerolog.Logger, target string, produce DownloadFunc, kind string) error {
	if ok, err := afero.Exists(c.fs, target); err != nil {
		return err
	} else if ok {
		metrics.Global.RecordCacheHit(kind)
		log.Debug().Str("target", target).Str("kind", kind).Msg("cache hit")
		return nil
	}
	metrics.Global.RecordCacheMiss(kind)

	staging := filepath.Join(filepath.Dir(target), "."+uuid.NewString())
	if ok, err := afero.Exists(c.fs, staging); err != nil {
		return err
	} else if !ok {
		if err := produce(ctx, staging); err != nil {
			c.discardStaging(staging)
			return err
		}
	}

	deadline := time.Now().Add(RenameRetryWindow)
	for {
		err := c.fs.Rename(staging, target)
		if err == nil {
			log.Debug().Str("target", target).Str("kind", kind).Msg("published")
			return nil
		}

		switch classifyRenameError(err) {
		case renameTransient:
			if time.Now().After(deadline) {
				return fmt.Errorf("publish %s: rename retries exhausted: %w", target, err)
			}
			log.Debug().Err(err).Str("target", target).Msg("transient rename failure, retrying")
			time.Sleep(RenameRetryInterval)

		case renameConflict:
			// Another producer won the race; the target is complete.
			log.Info().Str("target", target).Str("kind", kind).Msg("concurrent publish won the rename")
			c.discardStaging(staging)
			return nil

		default:
			c.discardStaging(staging)
			return err
		}
	}
}

// discardStaging removes a staging file, best effort.
func (c *diskCache) discardStaging(path string) {
	if err := c.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		c.log.Debug().Err(err).Str("path", path).Msg("staging cleanup failed")
	}
}
