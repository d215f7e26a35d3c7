// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/azure/pkgstash/internal/identity"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestGetAwaitsSweep(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArchive(t, fs, "a-1.0.0", 5*time.Hour)
	writeArchive(t, fs, "b-1.0.0", 4*time.Hour)
	writeArchive(t, fs, "c-1.0.0", 3*time.Hour)
	writeArchive(t, fs, "d-1.0.0", 2*time.Hour)
	writeArchive(t, fs, "e-1.0.0", time.Hour)

	c := New(context.Background(), Config{Path: "/cache", Capacity: 3}, fs)

	// Get must not observe the directory before the sweep has finished.
	var calls int32
	_, err := c.Get(context.Background(), identity.New("f", "1.0.0"), producer(fs, "f", &calls), nil)
	require.NoError(t, err)

	require.Equal(t, []string{"c-1.0.0", "d-1.0.0", "e-1.0.0", "f-1.0.0"}, cacheNames(t, fs))
}

func TestDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := newTestCache(t, fs, 5)

	var calls int32
	paths, err := c.Get(context.Background(), identity.New("pkg", "1.0.0"), producer(fs, "data", &calls), producer(fs, "sig", &calls))
	require.NoError(t, err)

	c.Delete(context.Background(), paths.Archive)

	ok, err := afero.Exists(fs, paths.Archive)
	require.NoError(t, err)
	require.False(t, ok)

	// Delete only touches the given path; the signature stays behind.
	ok, err = afero.Exists(fs, paths.Signature)
	require.NoError(t, err)
	require.True(t, ok)

	// Deleting a missing path is a logged no-op.
	c.Delete(context.Background(), paths.Archive)
}

func TestPath(t *testing.T) {
	c := newTestCache(t, afero.NewMemMapFs(), 5)
	require.Equal(t, "/cache", c.Path())
}
