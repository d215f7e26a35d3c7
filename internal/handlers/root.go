// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/azure/pkgstash/internal/cache"
	pscontext "github.com/azure/pkgstash/internal/context"
	"github.com/azure/pkgstash/internal/downloader"
	"github.com/azure/pkgstash/internal/handlers/archives"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Handler creates the HTTP handler of the cache server.
func Handler(ctx context.Context, c cache.Cache, client *downloader.Client, fs afero.Fs) http.Handler {
	ah := archives.New(ctx, c, client, fs)

	engine := newEngine(ctx)
	registerRoutes(engine, ah)

	return engine
}

// newEngine creates a new gin engine.
func newEngine(ctx context.Context) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	baseLog := zerolog.Ctx(ctx)

	engine.Use(func(c *gin.Context) {
		pscontext.FillCorrelationId(c)
		c.Set(pscontext.LoggerCtxKey, baseLog)

		l := pscontext.Logger(c)
		l.Debug().Msg("request start")
		s := time.Now()

		c.Next()

		status := c.Writer.Status()
		event := l.Info()
		if status >= 400 && status < 500 {
			event = l.Warn()
		} else if status >= 500 {
			event = l.Error()
		}

		if c.Errors != nil {
			errs := []error{}
			for _, e := range c.Errors {
				errs = append(errs, e.Err)
			}
			event = event.Errs("error", errs)
		}

		event.Dur("duration", time.Since(s)).Str("method", c.Request.Method).Int("status", status).Msg("request served")
	})

	engine.Use(gin.Recovery())
	return engine
}

// registerRoutes registers the routes for the HTTP server.
func registerRoutes(engine *gin.Engine, ah *archives.ArchivesHandler) {
	engine.GET("/archives/:name/:version", ah.HandleGet)
	engine.GET("/archives/:name/:version/signature", ah.HandleSignature)
	engine.DELETE("/archives/:name/:version", ah.HandleDelete)

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
}
