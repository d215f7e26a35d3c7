// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.

// Package downloader implements the download capability of the package cache,
// fetching archives and their signature archives from an upstream gallery.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/azure/pkgstash/internal/cache"
	"github.com/azure/pkgstash/internal/identity"
	"github.com/azure/pkgstash/internal/metrics"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
)

// ErrNotFound indicates the upstream gallery does not have the requested
// archive.
var ErrNotFound = errors.New("archive not found upstream")

// Client downloads package archives from an upstream gallery.
type Client struct {
	fs         afero.Fs
	httpClient *http.Client
	baseURL    string
	progress   bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithProgress reports download progress on stderr.
func WithProgress() Option {
	return func(c *Client) { c.progress = true }
}

// New creates a new downloader for the gallery at baseURL, writing files
// through fs.
func New(baseURL string, fs afero.Fs, opts ...Option) *Client {
	c := &Client{
		fs:         fs,
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Archive returns the download capability for the primary archive of id.
func (c *Client) Archive(id identity.PackageIdentity) cache.DownloadFunc {
	u := c.archiveURL(id)
	return func(ctx context.Context, stagingPath string) error {
		return c.fetch(ctx, u, stagingPath)
	}
}

// Signature returns the download capability for the signature archive of id.
func (c *Client) Signature(id identity.PackageIdentity) cache.DownloadFunc {
	u := identity.SignatureArchiveName(c.archiveURL(id))
	return func(ctx context.Context, stagingPath string) error {
		return c.fetch(ctx, u, stagingPath)
	}
}

func (c *Client) archiveURL(id identity.PackageIdentity) string {
	return fmt.Sprintf("%s/archives/%s", c.baseURL, id.Key())
}

// fetch downloads u to stagingPath in full.
func (c *Client) fetch(ctx context.Context, u, stagingPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	s := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("download %s: %w", u, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", u, resp.Status)
	}

	var r io.Reader = resp.Body
	if c.progress {
		bar := progressbar.DefaultBytes(resp.ContentLength, "downloading")
		r = io.TeeReader(resp.Body, bar)
	}

	if err := afero.WriteReader(c.fs, stagingPath, r); err != nil {
		return err
	}

	size := int64(0)
	if info, err := c.fs.Stat(stagingPath); err == nil {
		size = info.Size()
	}
	metrics.Global.RecordDownload(req.URL.Host, time.Since(s).Seconds(), size)

	return nil
}
