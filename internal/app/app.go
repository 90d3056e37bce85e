package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"salesinsight/internal/config"
	apperrors "salesinsight/internal/errors"
	"salesinsight/internal/infrastructure"
	customMiddleware "salesinsight/internal/middleware"
	"salesinsight/internal/operations"
	"salesinsight/internal/services"
	handlers "salesinsight/internal/transport/http"
	"salesinsight/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config          *config.Config
	Router          *chi.Mux
	Server          *http.Server
	Logger          *slog.Logger
	OTelProviders   *infrastructure.OTelProviders
	Pipeline        *operations.Manager
	AnalysisService *services.AnalysisService
	HealthService   *services.HealthService
	ErrorHandler    *apperrors.ErrorHandler
}

// NewApplication builds the server from a loaded configuration
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, apperrors.NewConfigError("configuration is required", nil)
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version),
		slog.String("output_dir", cfg.Output.Dir))

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, apperrors.NewStorageError("failed to create output directory", err).
			WithContext("path", cfg.Output.Dir)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apperrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

func (a *Application) initializeServices() error {
	tracer, err := operations.NewOperationTracer(a.OTelProviders)
	if err != nil {
		return err
	}

	a.Pipeline = operations.NewPipeline(operations.ConfigFrom(a.Config), a.Logger, operations.WithTracer(tracer))
	a.AnalysisService = services.NewAnalysisService(a.Pipeline, a.Config.Output.Dir, a.Logger)
	a.HealthService = services.NewHealthService(contracts.Version, a.Config.Output.Dir, a.Pipeline, a.Logger)

	a.Logger.Info("services initialized",
		slog.Int("pipeline_steps", a.Pipeline.GetRegistry().Count()))
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Logger)
	if err != nil {
		a.Logger.Error("failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.ErrorHandler))

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout))

			healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
		})

		// Analyses run synchronously and get the longer analysis timeout
		r.Group(func(r chi.Router) {
			if rl := a.Config.Server.RateLimit; rl.Enabled {
				r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger, a.ErrorHandler).Handler)
			}
			r.Use(customMiddleware.Timeout(a.Config.Server.AnalysisTimeout))

			analysisHandler := handlers.NewAnalysisHandler(a.AnalysisService, a.ErrorHandler, handlers.AnalysisHandlerOptions{
				MaxUploadBytes: a.Config.Server.MaxUploadBytes,
				Timeout:        a.Config.Server.AnalysisTimeout,
			}, a.Logger)
			r.Mount("/v1/analyses", analysisHandler.Routes())
		})
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Serve accepts connections on l until ctx is cancelled, then shuts down
// gracefully
func (a *Application) Serve(ctx context.Context, l net.Listener) error {
	a.Logger.InfoContext(ctx, "server listening",
		slog.String("address", l.Addr().String()),
		slog.String("version", contracts.Version))

	errCh := make(chan error, 1)
	go func() {
		if err := a.Server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			_ = a.Stop(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "shutdown requested")
	}
	return a.Stop(context.Background())
}

// Run listens on the configured port until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, l)
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application",
		slog.Int("active_runs", a.Pipeline.ActiveCount()))

	shutdownCtx := ctx
	if a.Config.Server.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
		defer cancel()
	}

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}
