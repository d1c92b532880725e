package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/audit"
	"opscore/internal/domain/auth"
	"opscore/internal/domain/bulkimport"
	"opscore/internal/domain/compensation"
	"opscore/internal/domain/core"
	"opscore/internal/domain/leave"
	"opscore/internal/domain/timetrack"
	"opscore/internal/platform/config"
	cryptoutil "opscore/internal/platform/crypto"
	"opscore/internal/platform/db"
	"opscore/internal/platform/jobs"
	"opscore/internal/platform/metrics"
	"opscore/internal/transport/http/api"
	attendancehandler "opscore/internal/transport/http/handlers/attendance"
	audithandler "opscore/internal/transport/http/handlers/audit"
	compensationhandler "opscore/internal/transport/http/handlers/compensation"
	importhandler "opscore/internal/transport/http/handlers/imports"
	timetrackhandler "opscore/internal/transport/http/handlers/timetrack"
	"opscore/internal/transport/http/middleware"
)

const (
	importRateLimit  = 20
	periodRateLimit  = 10
	rateLimitWindow  = time.Minute
	readinessTimeout = 2 * time.Second
	permissionTTL    = 30 * time.Second
)

type App struct {
	Config       config.Config
	DB           *pgxpool.Pool
	Metrics      *metrics.Collector
	Attendance   *attendance.Service
	Imports      *bulkimport.Service
	Compensation *compensation.Service
	Router       http.Handler
}

// Services holds everything the router mounts. Nil services are allowed for routes that are never hit.
type Services struct {
	Attendance   *attendance.Service
	Holidays     *leave.Service
	Employees    *core.Store
	TimeTrack    *timetrack.Service
	Imports      *bulkimport.Service
	Compensation *compensation.Service
	Audit        *audit.Service
	Perms        middleware.PermissionStore
	Idempotency  importhandler.IdempotencyStore
	Metrics      *metrics.Collector
	Ping         func(ctx context.Context) error
}

// New connects to the database, applies migrations and seed data when enabled, and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	if !crypto.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set; salary rates stored in plaintext")
	}

	thresholds, err := attendance.ParseThresholds(cfg.StandardCheckIn, cfg.StandardCheckOut, cfg.Location())
	if err != nil {
		pool.Close()
		return nil, err
	}

	services := Build(pool, crypto, thresholds)
	app := &App{
		Config:       cfg,
		DB:           pool,
		Metrics:      services.Metrics,
		Attendance:   services.Attendance,
		Imports:      services.Imports,
		Compensation: services.Compensation,
	}
	app.Router = NewRouter(cfg, services)
	return app, nil
}

// Build wires stores and services on top of a database handle.
func Build(pool *pgxpool.Pool, crypto *cryptoutil.Service, thresholds attendance.Thresholds) Services {
	collector := metrics.New()
	jobsSvc := jobs.New(jobs.NewStore(pool))
	employees := core.NewStore(pool)
	calendar := leave.NewService(leave.NewStore(pool))
	attendanceSvc := attendance.NewService(attendance.NewStore(pool), calendar, thresholds)

	return Services{
		Attendance:   attendanceSvc,
		Holidays:     calendar,
		Employees:    employees,
		TimeTrack:    timetrack.NewService(timetrack.NewStore(pool)),
		Imports:      bulkimport.NewService(attendanceSvc, employees, jobsSvc, collector),
		Compensation: compensation.NewService(compensation.NewStore(pool, crypto), attendanceSvc, employees, jobsSvc, collector),
		Audit:        audit.New(pool),
		Perms:        middleware.NewPermissionCache(auth.NewStore(pool), permissionTTL),
		Idempotency:  middleware.NewIdempotencyStore(pool),
		Metrics:      collector,
		Ping:         pool.Ping,
	}
}

func NewRouter(cfg config.Config, svc Services) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Metrics(svc.Metrics))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ping == nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := svc.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled && svc.Metrics != nil {
		router.With(middleware.RequirePermission(auth.PermMetricsRead, svc.Perms)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, svc.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

			attendancehandler.NewHandler(svc.Attendance, svc.Holidays, svc.Employees, svc.Perms, svc.Audit).RegisterRoutes(r)
			timetrackhandler.NewHandler(svc.TimeTrack, svc.Perms, svc.Audit).RegisterRoutes(r)

			compensationHandler := compensationhandler.NewHandler(svc.Compensation, svc.Perms, svc.Audit)
			compensationHandler.PeriodLimit = middleware.RateLimit(periodRateLimit, rateLimitWindow)
			compensationHandler.RegisterRoutes(r)

			audithandler.NewHandler(svc.Audit, svc.Perms).RegisterRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(cfg.MaxUploadBytes))
			r.Use(middleware.RateLimit(importRateLimit, rateLimitWindow))
			importhandler.NewHandler(svc.Imports, svc.Perms, svc.Audit, svc.Idempotency).RegisterRoutes(r)
		})
	})

	return router
}

// Serve blocks until ctx is cancelled or the listener fails, then drains in-flight requests.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", a.Config.Addr, "env", a.Config.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	slog.Info("server shutting down", "timeout", a.Config.ShutdownTimeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}
