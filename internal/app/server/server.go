package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"kpitrack/internal/domain/audit"
	"kpitrack/internal/domain/auth"
	"kpitrack/internal/domain/kpi"
	"kpitrack/internal/platform/cache"
	"kpitrack/internal/platform/config"
	"kpitrack/internal/platform/db"
	"kpitrack/internal/platform/jobs"
	"kpitrack/internal/platform/metrics"
	audithandler "kpitrack/internal/transport/http/handlers/audit"
	kpihandler "kpitrack/internal/transport/http/handlers/kpi"
	reportshandler "kpitrack/internal/transport/http/handlers/reports"
	"kpitrack/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Cache   cache.Cache
	KPI     *kpi.Service
	Audit   *audit.Service
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
}

// New connects to the database, applies migrations and the seed file when
// configured, and assembles the HTTP router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, pool, cfg.MigrationsDir)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
		log.Info().Int("applied", applied).Msg("migrations complete")
	}

	reportCache, err := newCache(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	kpiSvc := kpi.NewService(kpi.NewStore(pool), reportCache)
	kpiSvc.CacheTTL = cfg.ReportCacheTTL
	kpiSvc.Concurrency = cfg.ReportConcurrency

	if cfg.RunSeed {
		seed, err := db.LoadSeedFile(cfg.SeedFile)
		if err != nil {
			reportCache.Close()
			pool.Close()
			return nil, err
		}
		if err := db.Seed(ctx, kpiSvc, seed); err != nil {
			reportCache.Close()
			pool.Close()
			return nil, fmt.Errorf("seed failed: %w", err)
		}
	}

	app := &App{
		Config: cfg,
		DB:     pool,
		Cache:  reportCache,
		KPI:    kpiSvc,
		Audit:  audit.New(pool),
		Jobs:   jobs.New(jobs.NewPGStore(pool)),
	}
	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
		app.Jobs.Observer = app.Metrics
	}
	app.Router = app.routes()
	return app, nil
}

func newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	switch {
	case cfg.RedisURL != "":
		c, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("report cache: %w", err)
		}
		log.Info().Msg("report cache backed by redis")
		return c, nil
	case cfg.ReportCacheTTL > 0:
		return cache.NewMemory(), nil
	default:
		return cache.Noop{}, nil
	}
}

func (a *App) routes() http.Handler {
	var (
		requests middleware.RequestRecorder
		reports  kpihandler.ReportObserver
	)
	if a.Metrics != nil {
		requests = a.Metrics
		reports = a.Metrics
	}
	perms := auth.StaticPermissions{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger(requests))
	router.Use(middleware.SecureHeaders(a.Config.IsProduction()))
	router.Use(middleware.BodyLimit(a.Config.MaxBodyBytes))
	router.Use(middleware.Auth(a.Config.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if a.Metrics != nil {
		router.Handle("/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(a.Config.RateLimitPerMinute))

		kpihandler.NewHandler(a.KPI, perms, a.Audit, reports).RegisterRoutes(r)
		reportshandler.NewHandler(a.KPI, a.Jobs, perms).RegisterRoutes(r)
		audithandler.NewHandler(a.Audit, perms).RegisterRoutes(r)
	})

	return router
}

// Run serves HTTP and the job worker until ctx is cancelled, then drains
// both.
func (a *App) Run(ctx context.Context) error {
	a.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", a.Config.Addr).Msg("kpitrack listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.Jobs.Wait()
	return err
}

func (a *App) Close() {
	if err := a.Cache.Close(); err != nil {
		log.Warn().Err(err).Msg("report cache close failed")
	}
	a.DB.Close()
}
