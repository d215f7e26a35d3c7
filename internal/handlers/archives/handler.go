// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package archives

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/azure/pkgstash/internal/cache"
	pscontext "github.com/azure/pkgstash/internal/context"
	"github.com/azure/pkgstash/internal/downloader"
	"github.com/azure/pkgstash/internal/identity"
	"github.com/azure/pkgstash/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

// ArchivesHandler serves package archives out of the cache, downloading them
// from the upstream gallery on a miss.
type ArchivesHandler struct {
	cache  cache.Cache
	client *downloader.Client
	fs     afero.Fs
}

// New creates a new archives handler.
func New(ctx context.Context, c cache.Cache, client *downloader.Client, fs afero.Fs) *ArchivesHandler {
	return &ArchivesHandler{cache: c, client: client, fs: fs}
}

// HandleGet serves the primary archive of the requested package version.
// With ?signature=true the paired signature archive is fetched alongside it.
func (h *ArchivesHandler) HandleGet(c *gin.Context) {
	log := pscontext.Logger(c)
	log.Debug().Msg("archives handler start")
	s := time.Now()
	defer func() {
		dur := time.Since(s)
		metrics.Global.RecordRequest(c.Request.Method, "archives", float64(dur.Milliseconds()))
		log.Debug().Dur("duration", dur).Msg("archives handler stop")
	}()

	id, ok := h.identity(c)
	if !ok {
		return
	}

	var signature cache.DownloadFunc
	if c.Query("signature") == "true" {
		signature = h.client.Signature(id)
	}

	paths, err := h.cache.Get(c.Request.Context(), id, h.client.Archive(id), signature)
	if err != nil {
		h.abort(c, err)
		return
	}

	h.serveFile(c, paths.Archive)
}

// HandleSignature serves the signature archive of the requested package version.
func (h *ArchivesHandler) HandleSignature(c *gin.Context) {
	log := pscontext.Logger(c)
	log.Debug().Msg("signature handler start")
	s := time.Now()
	defer func() {
		dur := time.Since(s)
		metrics.Global.RecordRequest(c.Request.Method, "signature", float64(dur.Milliseconds()))
		log.Debug().Dur("duration", dur).Msg("signature handler stop")
	}()

	id, ok := h.identity(c)
	if !ok {
		return
	}

	paths, err := h.cache.Get(c.Request.Context(), id, h.client.Archive(id), h.client.Signature(id))
	if err != nil {
		h.abort(c, err)
		return
	}

	h.serveFile(c, paths.Signature)
}

// HandleDelete removes the cached archive of the requested package version
// and its paired signature archive.
func (h *ArchivesHandler) HandleDelete(c *gin.Context) {
	s := time.Now()
	defer func() {
		metrics.Global.RecordRequest(c.Request.Method, "archives", float64(time.Since(s).Milliseconds()))
	}()

	id, ok := h.identity(c)
	if !ok {
		return
	}

	target := filepath.Join(h.cache.Path(), id.Key())
	h.cache.Delete(c.Request.Context(), identity.SignatureArchiveName(target))
	h.cache.Delete(c.Request.Context(), target)

	c.Status(http.StatusNoContent)
}

// identity parses and validates the package identity of the request.
func (h *ArchivesHandler) identity(c *gin.Context) (identity.PackageIdentity, bool) {
	id := identity.New(c.Param("name"), c.Param("version"))
	if !id.Valid() {
		c.AbortWithStatus(http.StatusBadRequest)
		return identity.PackageIdentity{}, false
	}
	return id, true
}

// abort translates a cache failure into a response status.
func (h *ArchivesHandler) abort(c *gin.Context, err error) {
	if errors.Is(err, downloader.ErrNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	// nolint
	c.AbortWithError(http.StatusBadGateway, err)
}

// serveFile streams a cached file to the client.
func (h *ArchivesHandler) serveFile(c *gin.Context, path string) {
	f, err := h.fs.Open(path)
	if err != nil {
		// nolint
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	w := c.Writer
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(pscontext.NodeHeaderKey, pscontext.NodeName)
	w.Header().Set(pscontext.CorrelationHeaderKey, c.GetString(pscontext.CorrelationIdCtxKey))

	http.ServeContent(w, c.Request, filepath.Base(path), time.Now(), f)
}
