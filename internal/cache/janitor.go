// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package cache

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/azure/pkgstash/internal/identity"
	"github.com/azure/pkgstash/internal/metrics"
	"github.com/spf13/afero"
)

// entry is a cached archive discovered by the startup sweep.
type entry struct {
	id      identity.PackageIdentity
	name    string
	modTime time.Time
}

// sweep reconciles the cache directory once at startup. For every package
// only the highest version survives, and the set of survivors is bounded by
// the configured capacity, evicting oldest-modified first. Failures never
// abort the sweep: an oversized cache is preferable to a failed startup.
func (c *diskCache) sweep() {
	if c.cfg.Capacity <= 0 {
		return
	}

	if ok, err := afero.DirExists(c.fs, c.cfg.Path); err != nil || !ok {
		if err != nil {
			c.log.Warn().Err(err).Str("path", c.cfg.Path).Msg("cache scan failed")
		}
		return
	}

	infos, err := afero.ReadDir(c.fs, c.cfg.Path)
	if err != nil {
		c.log.Warn().Err(err).Str("path", c.cfg.Path).Msg("cache scan failed")
		return
	}

	signatures := map[string]bool{}
	groups := map[string][]entry{}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		if identity.IsSignatureArchive(name) {
			signatures[identity.PrimaryArchiveName(name)] = true
			continue
		}
		id, ok := identity.Parse(name)
		if !ok {
			// Staging files and unknown names are not cache entries.
			continue
		}
		key := strings.ToLower(id.Name)
		groups[key] = append(groups[key], entry{id: id, name: name, modTime: info.ModTime()})
	}

	type doomedEntry struct {
		entry
		reason string
	}

	var current []entry
	var doomed []doomedEntry
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].id.Compare(g[j].id) > 0 })
		current = append(current, g[0])
		for _, e := range g[1:] {
			doomed = append(doomed, doomedEntry{e, "outdated"})
		}
	}

	sort.Slice(current, func(i, j int) bool { return current[i].modTime.Before(current[j].modTime) })
	if excess := len(current) - c.cfg.Capacity; excess > 0 {
		for _, e := range current[:excess] {
			doomed = append(doomed, doomedEntry{e, "capacity"})
		}
	}

	c.log.Debug().Int("entries", len(current)+len(doomed)).Int("evicting", len(doomed)).Msg("cache sweep")

	var wg sync.WaitGroup
	for _, d := range doomed {
		wg.Add(1)
		go func(e entry, reason string) {
			defer wg.Done()
			c.evict(e, signatures[e.name], reason)
		}(d.entry, d.reason)
	}
	wg.Wait()
}

// evict removes a cached archive and, first, its paired signature archive, so
// a crash between the two deletes never leaves an orphaned signature.
func (c *diskCache) evict(e entry, hasSignature bool, reason string) {
	if hasSignature {
		sig := filepath.Join(c.cfg.Path, identity.SignatureArchiveName(e.name))
		if err := c.fs.Remove(sig); err != nil {
			c.log.Warn().Err(err).Str("path", sig).Msg("signature eviction failed")
		}
	}

	p := filepath.Join(c.cfg.Path, e.name)
	if err := c.fs.Remove(p); err != nil {
		c.log.Warn().Err(err).Str("path", p).Msg("eviction failed")
		return
	}

	metrics.Global.RecordEviction(reason)
	c.log.Debug().Str("path", p).Str("reason", reason).Msg("evicted")
}
