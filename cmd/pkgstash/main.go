package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/azure/pkgstash/internal/cache"
	"github.com/azure/pkgstash/internal/config"
	pscontext "github.com/azure/pkgstash/internal/context"
	"github.com/azure/pkgstash/internal/downloader"
	"github.com/azure/pkgstash/internal/handlers"
	"github.com/azure/pkgstash/internal/identity"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

func main() {
	args := &Arguments{}
	arg.MustParse(args)

	ll, err := zerolog.ParseLevel(args.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %s\n", args.LogLevel)
		os.Exit(1)
	}

	zerolog.SetGlobalLevel(ll)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	l := zerolog.New(os.Stdout).With().Timestamp().Str("self", pscontext.NodeName).Str("version", version).Logger()
	ctx := l.WithContext(context.Background())

	err = run(ctx, args)
	if err != nil {
		l.Error().Err(err).Msg("command error")
		os.Exit(1)
	}
}

func run(ctx context.Context, args *Arguments) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	switch {
	case args.Version:
		zerolog.Ctx(ctx).Info().Msg("version") // version field is already added to the logger
		return nil
	case args.Serve != nil:
		return serveCommand(ctx, args)
	case args.Fetch != nil:
		return fetchCommand(ctx, args)
	case args.Prune != nil:
		return pruneCommand(ctx, args)
	default:
		return fmt.Errorf("unknown subcommand")
	}
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig(fs afero.Fs, args *Arguments) (config.Config, error) {
	cfg, err := config.Load(fs, args.Config)
	if err != nil {
		return config.Config{}, err
	}

	if args.Upstream != "" {
		cfg.Upstream = args.Upstream
	}
	if args.CacheDir != "" {
		cfg.CacheDir = args.CacheDir
	}
	if args.Capacity >= 0 {
		cfg.Capacity = args.Capacity
	}
	if args.Serve != nil && args.Serve.HttpAddr != "" {
		cfg.HTTPAddr = args.Serve.HttpAddr
	}

	// Prune works offline; the other subcommands need an upstream.
	if cfg.Upstream == "" && args.Prune == nil {
		return config.Config{}, fmt.Errorf("no upstream gallery configured")
	}

	return cfg, nil
}

func serveCommand(ctx context.Context, args *Arguments) error {
	l := zerolog.Ctx(ctx)

	fs := afero.NewOsFs()
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	c := cache.New(ctx, cache.Config{Path: cfg.CacheDir, Capacity: cfg.Capacity}, fs)
	client := downloader.New(cfg.Upstream, fs)

	handler := handlers.Handler(ctx, c, client, fs)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	l.Info().Str("http", cfg.HTTPAddr).Str("cache", cfg.CacheDir).Int("capacity", cfg.Capacity).Msg("server start")
	if err := g.Wait(); err != nil {
		return err
	}

	l.Info().Msg("server shutdown")
	return nil
}

func fetchCommand(ctx context.Context, args *Arguments) error {
	l := zerolog.Ctx(ctx)

	fs := afero.NewOsFs()
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	c := cache.New(ctx, cache.Config{Path: cfg.CacheDir, Capacity: cfg.Capacity}, fs)
	client := downloader.New(cfg.Upstream, fs, downloader.WithProgress())

	id := identity.New(args.Fetch.Name, args.Fetch.Version)
	if !id.Valid() {
		return fmt.Errorf("invalid package version: %s", args.Fetch.Version)
	}

	var signature cache.DownloadFunc
	if args.Fetch.Signature {
		signature = client.Signature(id)
	}

	paths, err := c.Get(ctx, id, client.Archive(id), signature)
	if err != nil {
		return err
	}

	e := l.Info().Str("archive", paths.Archive)
	if paths.Signature != "" {
		e = e.Str("signature", paths.Signature)
	}
	e.Msg("fetched")
	return nil
}

func pruneCommand(ctx context.Context, args *Arguments) error {
	fs := afero.NewOsFs()
	cfg, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	c := cache.New(ctx, cache.Config{Path: cfg.CacheDir, Capacity: cfg.Capacity}, fs)
	<-c.Ready()

	zerolog.Ctx(ctx).Info().Str("cache", cfg.CacheDir).Msg("prune complete")
	return nil
}
