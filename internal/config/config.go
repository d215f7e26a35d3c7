// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

// Defaults.
const (
	DefaultCacheDir = "/var/cache/pkgstash"
	DefaultCapacity = 10
	DefaultHTTPAddr = "127.0.0.1:5080"
)

// Config holds the process configuration.
type Config struct {
	// CacheDir is the cache directory.
	CacheDir string `toml:"cache_dir"`

	// Capacity is the maximum number of distinct packages retained.
	// 0 disables caching.
	Capacity int `toml:"capacity"`

	// Upstream is the base URL of the upstream archive gallery.
	Upstream string `toml:"upstream"`

	// HTTPAddr is the listen address of the cache server.
	HTTPAddr string `toml:"http_addr"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		CacheDir: DefaultCacheDir,
		Capacity: DefaultCapacity,
		HTTPAddr: DefaultHTTPAddr,
	}
}

// Load reads the TOML configuration at path, applying defaults for missing
// fields. An empty path yields the defaults.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration %s: %w", path, err)
	}

	if cfg.Capacity < 0 {
		return Config{}, fmt.Errorf("capacity must be >= 0, got: %d", cfg.Capacity)
	}

	return cfg, nil
}
