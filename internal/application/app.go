package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pep299/article-feed-api/internal/cache"
	"github.com/pep299/article-feed-api/internal/config"
	"github.com/pep299/article-feed-api/internal/export"
	"github.com/pep299/article-feed-api/internal/handlers"
	"github.com/pep299/article-feed-api/internal/service"
	"github.com/pep299/article-feed-api/internal/store"
)

// Version is reported by the health endpoint and newsctl version.
var Version = "dev"

// Application represents the application with all components wired
type Application struct {
	Config   *config.Config
	Store    *store.Store
	Cache    *cache.Manager
	Articles *service.Articles
	Server   *handlers.Server

	// Exporter is nil when EXPORT_TYPE is unset.
	Exporter *export.Exporter

	cleanup []func() error
}

// New creates a new application instance with all dependencies
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	st, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	app.Store = st
	app.cleanup = append(app.cleanup, st.Close)

	if err := st.Migrate(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	cacheManager, err := cache.NewFromConfig(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("creating cache manager: %w", err)
	}
	app.Cache = cacheManager
	app.cleanup = append(app.cleanup, cacheManager.Close)

	app.Articles = service.NewArticles(st,
		service.WithCache(cacheManager),
		service.WithLookupLimit(cfg.LookupLimit),
	)

	app.Server = handlers.NewServer(app.Articles,
		handlers.WithAuthToken(cfg.APIAuthToken),
		handlers.WithHealthCheck(st),
		handlers.WithCacheAdmin(cacheManager),
		handlers.WithVersion(Version),
	)

	if cfg.ExportEnabled() {
		sink, err := export.NewSinkFromConfig(ctx, cfg)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("creating export sink: %w", err)
		}
		app.cleanup = append(app.cleanup, sink.Close)
		app.Exporter = export.NewExporter(st, sink, cfg.ExportPrefix, cfg.ExportRetention())
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Str("cache_type", cfg.CacheType).
		Str("export_type", cfg.ExportType).
		Bool("auth", cfg.APIAuthToken != "").
		Msg("Application initialized")

	return app, nil
}

// Handler returns the HTTP API
func (a *Application) Handler() http.Handler {
	return a.Server.Handler()
}

// Close cleans up application resources in reverse order
func (a *Application) Close() error {
	var errs []error
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanup = nil
	return errors.Join(errs...)
}
