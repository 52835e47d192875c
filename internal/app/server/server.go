package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrleave/internal/domain/audit"
	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/leave"
	"hrleave/internal/domain/notifications"
	"hrleave/internal/domain/reports"
	"hrleave/internal/platform/config"
	"hrleave/internal/platform/db"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/platform/metrics"
	"hrleave/internal/platform/storage"
	"hrleave/internal/transport/http/api"
	audithandler "hrleave/internal/transport/http/handlers/audit"
	leavehandler "hrleave/internal/transport/http/handlers/leave"
	notificationshandler "hrleave/internal/transport/http/handlers/notifications"
	reportshandler "hrleave/internal/transport/http/handlers/reports"
	"hrleave/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Leave   *leave.Service
	Jobs    *jobs.Service
	Metrics *metrics.Collector
	Router  http.Handler
}

// NewLogger builds the JSON slog handler used by the binaries.
func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With("service", "hrleave", "env", cfg.Environment)
}

// New connects to Postgres, applies migrations when enabled and wires the
// router. Background jobs are built but not started.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if _, err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	var files storage.Store
	if cfg.Attachments.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, storage.Options{
			Bucket:    cfg.Attachments.Bucket,
			Endpoint:  cfg.Attachments.Endpoint,
			Region:    cfg.Attachments.Region,
			AccessKey: cfg.Attachments.AccessKey,
			SecretKey: cfg.Attachments.SecretKey,
			PublicURL: cfg.Attachments.PublicURL,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("attachment storage: %w", err)
		}
		files = s3Store
	} else {
		slog.Info("attachment storage disabled")
	}

	store := leave.NewStore(pool)
	store.MaxRetries = cfg.TxRetries

	notifySvc := notifications.New(notifications.NewStore(pool))
	leaveSvc := leave.NewService(store, notifySvc)
	leaveSvc.DayCounting = cfg.DayCounting
	leaveSvc.LowBalanceThreshold = cfg.LowBalanceThreshold

	jobsSvc := jobs.New(leaveSvc, store, jobs.PGRuns{DB: pool})
	jobsSvc.SweepInterval = cfg.TakenSweepInterval
	jobsSvc.ProvisionInterval = cfg.ProvisionInterval

	collector := metrics.New()
	auditSvc := audit.New(pool)
	perms := auth.StaticPermissions{}

	leaveHandler := leavehandler.NewHandler(leaveSvc, perms, auditSvc, files)
	leaveHandler.Metrics = collector
	leaveHandler.Idempotency = middleware.NewIdempotencyStore(pool)
	if cfg.Attachments.MaxBytes > 0 {
		leaveHandler.MaxAttachmentBytes = cfg.Attachments.MaxBytes
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		leaveHandler.RegisterRoutes(r)

		auditHandler := audithandler.NewHandler(auditSvc, perms)
		auditHandler.RegisterRoutes(r)

		notificationsHandler := notificationshandler.NewHandler(notifySvc)
		notificationsHandler.RegisterRoutes(r)

		reportsSvc := reports.NewService(reports.NewStore(pool))
		reportsSvc.LowBalanceThreshold = cfg.LowBalanceThreshold
		reportsHandler := reportshandler.NewHandler(reportsSvc, jobsSvc, perms)
		reportsHandler.RegisterRoutes(r)
	})

	return &App{
		Config:  cfg,
		DB:      pool,
		Leave:   leaveSvc,
		Jobs:    jobsSvc,
		Metrics: collector,
		Router:  router,
	}, nil
}

func (a *App) Close() {
	a.DB.Close()
}

// Serve starts the background jobs and the HTTP server, and shuts both down
// when ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	a.Jobs.Start(jobCtx)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("hrleave server listening", "addr", a.Config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("hrleave server stopped")
	return nil
}

// Run is the server binary's entry point.
func Run() error {
	cfg := config.Load()
	slog.SetDefault(NewLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}
