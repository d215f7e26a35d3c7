// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/pkgstash/config.toml", []byte(`
cache_dir = "/data/archives"
capacity = 25
upstream = "https://gallery.example.com"
`), 0644))

	cfg, err := Load(fs, "/etc/pkgstash/config.toml")
	require.NoError(t, err)
	require.Equal(t, "/data/archives", cfg.CacheDir)
	require.Equal(t, 25, cfg.Capacity)
	require.Equal(t, "https://gallery.example.com", cfg.Upstream)

	// Unset fields keep their defaults.
	require.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/etc/pkgstash/config.toml")
	require.Error(t, err)
}

func TestLoadInvalidFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/config.toml", []byte(`capacity = "lots"`), 0644))

	_, err := Load(fs, "/config.toml")
	require.Error(t, err)
}

func TestLoadNegativeCapacity(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/config.toml", []byte(`capacity = -1`), 0644))

	_, err := Load(fs, "/config.toml")
	require.Error(t, err)
	require.ErrorContains(t, err, "capacity")
}
