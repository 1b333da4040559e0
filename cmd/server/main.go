package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/httpapi"
	"github.com/p-n-ai/pai-planner/internal/plan"
	"github.com/p-n-ai/pai-planner/internal/planner"
	"github.com/p-n-ai/pai-planner/internal/platform/cache"
	"github.com/p-n-ai/pai-planner/internal/platform/config"
	"github.com/p-n-ai/pai-planner/internal/platform/database"
	"github.com/p-n-ai/pai-planner/internal/syllabus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.Log.NewLogger())

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	handler, cleanup, err := newHandler(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newHandler wires the planner API from cfg. An empty database URL selects
// the in-memory store; an empty cache URL disables the extraction cache.
// The returned cleanup closes every opened connection.
func newHandler(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	rules := curriculum.DefaultRules()
	if cfg.RulesPath != "" {
		loaded, err := curriculum.LoadRules(cfg.RulesPath)
		if err != nil {
			return fail(fmt.Errorf("loading rules: %w", err))
		}
		rules = loaded
	}

	extractor, err := syllabus.NewExtractor(syllabus.ExtractorConfig{
		Rules:          rules,
		TopicLimit:     cfg.Planner.TopicLimit,
		ReferenceLimit: cfg.Planner.ReferenceLimit,
		FlatLineLimit:  cfg.Planner.FlatLineLimit,
	})
	if err != nil {
		return fail(fmt.Errorf("creating extractor: %w", err))
	}

	checks := map[string]httpapi.HealthChecker{}

	var byteCache syllabus.ByteCache
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fail(fmt.Errorf("connecting cache: %w", err))
		}
		closers = append(closers, func() { c.Close() })
		checks["cache"] = c
		byteCache = c
		slog.Info("extraction cache enabled", "ttl", cfg.Cache.TTL())
	}

	var (
		store  plan.Store
		events plan.EventLogger
	)
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("connecting database: %w", err))
		}
		closers = append(closers, db.Close)
		checks["database"] = db

		pg, err := plan.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		if cfg.Database.Migrate {
			if err := pg.Migrate(ctx); err != nil {
				return fail(fmt.Errorf("migrating schema: %w", err))
			}
		}
		store = pg
		events = plan.NewPostgresEventLogger(db.Pool)
	} else {
		slog.Warn("no database configured, plans are kept in memory")
		store = plan.NewMemoryStore()
		events = plan.NopEventLogger{}
	}

	generator := planner.NewGenerator(planner.Config{
		Predictor:      extractor.Predictor(),
		MinTasksPerDay: cfg.Planner.MinTasksPerDay,
		MaxTasksPerDay: cfg.Planner.MaxTasksPerDay,
		SearchURL:      cfg.Planner.SearchURL,
	})

	srv, err := httpapi.New(httpapi.Config{
		Extractor:      syllabus.NewCachedExtractor(extractor, byteCache, cfg.Cache.TTL()),
		Generator:      generator,
		Store:          store,
		Events:         events,
		Checks:         checks,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	})
	if err != nil {
		return fail(fmt.Errorf("creating server: %w", err))
	}
	return srv, cleanup, nil
}
