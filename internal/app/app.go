// Package app wires configuration, services, and the HTTP router into
// a runnable web application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"tyrepulse/internal/config"
	apierrors "tyrepulse/internal/errors"
	"tyrepulse/internal/exporter"
	"tyrepulse/internal/infrastructure"
	"tyrepulse/internal/ingest"
	"tyrepulse/internal/middleware"
	"tyrepulse/internal/normalize"
	"tyrepulse/internal/pipeline"
	"tyrepulse/internal/registry"
	"tyrepulse/internal/services"
	"tyrepulse/internal/store"
	transporthttp "tyrepulse/internal/transport/http"
	"tyrepulse/internal/trend"
	"tyrepulse/pkg/contracts"
)

// Version mirrors the contracts package so the health endpoint and
// startup logs report the same build.
var Version = contracts.Version

// Application is the assembled web application.
type Application struct {
	Config *config.Config
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger

	Metrics   *infrastructure.MetricsProvider
	Process   *services.ProcessService
	Dashboard *services.DashboardService
	Health    *services.HealthService

	pipelineMetrics *infrastructure.PipelineMetrics
}

// New builds the application from configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the application over an already loaded
// configuration. Tests use this to avoid the env/file lookup.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("build", contracts.GetFullVersionString()),
		slog.Int("port", cfg.Server.Port))

	metrics, err := infrastructure.InitializeMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	pipelineMetrics, err := infrastructure.NewPipelineMetrics(metrics.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}

	reg, err := loadRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	pipeCfg := pipeline.Config{
		Normalize: normalize.Options{
			HeaderScanRows: cfg.Pipeline.HeaderScanRows,
			MinHeaderScore: cfg.Pipeline.MinHeaderScore,
			FuzzyThreshold: cfg.Pipeline.FuzzyThreshold,
		},
		Trend: trend.Config{
			WindowSizes: cfg.Pipeline.WindowSizes,
			Z:           cfg.Pipeline.ZThreshold,
			MinSamples:  cfg.Pipeline.MinSamples,
		},
	}

	pipe := pipeline.New(reg, pipeCfg, logger)
	history := store.NewHistoryStore(cfg.Paths.HistoryFile, logger)
	csv := exporter.NewCSVWriter(cfg.Paths.ExportDir, logger)
	reader := ingest.NewReader(logger)
	detector := trend.NewDetector(pipeCfg.Trend, logger)

	app := &Application{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Process:   services.NewProcessService(reader, pipe, history, csv, pipelineMetrics, logger),
		Dashboard: services.NewDashboardService(history, detector, logger),
		Health:    services.NewHealthService(Version, cfg.Paths.HistoryFile, logger),

		pipelineMetrics: pipelineMetrics,
	}

	app.setupRouter()
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

// loadRegistry reads the column registry from the configured file, or
// falls back to the built-in defaults.
func loadRegistry(cfg *config.Config, logger *slog.Logger) (*registry.Registry, error) {
	if cfg.Paths.RegistryFile == "" {
		return registry.Default(), nil
	}
	reg, err := registry.Load(cfg.Paths.RegistryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load column registry: %w", err)
	}
	logger.Info("column registry loaded",
		slog.String("path", cfg.Paths.RegistryFile),
		slog.String("version", reg.Version))
	return reg, nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Metrics(a.pipelineMetrics))
	r.Use(middleware.Recoverer(a.Logger))

	errorHandler := apierrors.NewHandler(a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		if a.Config.RateLimit.Enabled {
			limiter := middleware.NewRateLimiter(a.Config.RateLimit.RPS, a.Config.RateLimit.Burst, a.Logger)
			r.Use(limiter.Handler)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(a.Config.Server.ReadTimeout))
			r.Mount("/health", transporthttp.NewHealthHandler(a.Health, a.Logger).Routes())

			dashboard := transporthttp.NewDashboardHandler(a.Dashboard, a.Logger, errorHandler)
			r.Get("/dashboard-data", dashboard.DashboardData)
			r.Get("/anomalies", dashboard.Anomalies)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(a.Config.Server.WriteTimeout))
			r.Mount("/process", transporthttp.NewProcessHandler(a.Process, a.Logger, errorHandler).Routes())
		})
	})

	r.Handle("/metrics", a.Metrics.PrometheusHTTP)

	a.Router = r
}

// Run starts the HTTP server and blocks until a shutdown signal
// arrives, then drains connections within the configured timeout.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.Warn("failed to close log file", slog.String("error", err.Error()))
	}
	return nil
}
