// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package cache

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// openFailFs fails directory listings of the cache directory.
type openFailFs struct {
	afero.Fs
	dir string
}

func (f *openFailFs) Open(name string) (afero.File, error) {
	if name == f.dir {
		return nil, errors.New("input/output error")
	}
	return f.Fs.Open(name)
}

func writeArchive(t *testing.T, fs afero.Fs, name string, age time.Duration) {
	t.Helper()
	p := filepath.Join("/cache", name)
	require.NoError(t, afero.WriteFile(fs, p, []byte(name), 0644))
	mt := time.Now().Add(-age)
	require.NoError(t, fs.Chtimes(p, mt, mt))
}

func cacheNames(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	infos, err := afero.ReadDir(fs, "/cache")
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names
}

func TestSweepRetentionCount(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArchive(t, fs, "a-1.0.0", 5*time.Hour)
	writeArchive(t, fs, "b-1.0.0", 4*time.Hour)
	writeArchive(t, fs, "c-1.0.0", 3*time.Hour)
	writeArchive(t, fs, "d-1.0.0", 2*time.Hour)
	writeArchive(t, fs, "e-1.0.0", time.Hour)

	newTestCache(t, fs, 3)

	require.Equal(t, []string{"c-1.0.0", "d-1.0.0", "e-1.0.0"}, cacheNames(t, fs))
}

func TestSweepCollapsesVersions(t *testing.T) {
	fs := afero.NewMemMapFs()
	// The highest version wins even when an older version was modified last.
	writeArchive(t, fs, "a-1.0.0", time.Minute)
	writeArchive(t, fs, "a-2.0.0", 10*time.Hour)
	writeArchive(t, fs, "a-1.5.0", time.Hour)
	writeArchive(t, fs, "b-1.0.0", time.Hour)

	newTestCache(t, fs, 5)

	require.Equal(t, []string{"a-2.0.0", "b-1.0.0"}, cacheNames(t, fs))
}

func TestSweepGroupsNamesCaseInsensitively(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArchive(t, fs, "Pkg-1.0.0", time.Hour)
	writeArchive(t, fs, "pkg-2.0.0", 2*time.Hour)

	newTestCache(t, fs, 5)

	require.Equal(t, []string{"pkg-2.0.0"}, cacheNames(t, fs))
}

func TestSweepDeletesPairedSignature(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArchive(t, fs, "a-1.0.0", 2*time.Hour)
	writeArchive(t, fs, "a-1.0.0.sigzip", 2*time.Hour)
	writeArchive(t, fs, "b-1.0.0", time.Hour)
	writeArchive(t, fs, "b-1.0.0.sigzip", time.Hour)

	newTestCache(t, fs, 1)

	// a is evicted together with its signature; b keeps its signature.
	require.Equal(t, []string{"b-1.0.0", "b-1.0.0.sigzip"}, cacheNames(t, fs))
}

func TestSweepIgnoresStagingAndUnknownFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArchive(t, fs, ".5f3c9a", time.Hour)
	writeArchive(t, fs, "README", time.Hour)
	writeArchive(t, fs, "a-1.0.0", 3*time.Hour)
	writeArchive(t, fs, "b-1.0.0", 2*time.Hour)
	writeArchive(t, fs, "c-1.0.0", time.Hour)

	newTestCache(t, fs, 3)

	// Leftover staging files and unknown names neither count toward
	// capacity nor get deleted.
	require.Equal(t, []string{".5f3c9a", "README", "a-1.0.0", "b-1.0.0", "c-1.0.0"}, cacheNames(t, fs))
}

func TestSweepMissingDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	newTestCache(t, fs, 3)
}

func TestSweepDisabledCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeArchive(t, fs, "a-1.0.0", 2*time.Hour)
	writeArchive(t, fs, "a-2.0.0", time.Hour)

	newTestCache(t, fs, 0)

	require.Equal(t, []string{"a-1.0.0", "a-2.0.0"}, cacheNames(t, fs))
}

func TestSweepListFailureIsFailOpen(t *testing.T) {
	mem := afero.NewMemMapFs()
	writeArchive(t, mem, "a-1.0.0", 2*time.Hour)
	writeArchive(t, mem, "a-2.0.0", time.Hour)
	writeArchive(t, mem, "b-1.0.0", time.Hour)

	fs := &openFailFs{Fs: mem, dir: "/cache"}
	newTestCache(t, fs, 1)

	// The oversized cache survives a failed scan.
	require.Equal(t, []string{"a-1.0.0", "a-2.0.0", "b-1.0.0"}, cacheNames(t, mem))
}
