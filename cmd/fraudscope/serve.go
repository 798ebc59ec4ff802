package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/okian/fraudscope/internal/adapters/http/api"
	"github.com/okian/fraudscope/internal/adapters/http/swagger"
	service "github.com/okian/fraudscope/internal/app"
	"github.com/okian/fraudscope/internal/config"
	"github.com/okian/fraudscope/pkg/logger"
	"github.com/okian/fraudscope/pkg/metrics"
	"github.com/okian/fraudscope/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func serveCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scoring pipeline and its HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configPath == "" {
				configPath = os.Getenv("FRAUDSCOPE_CONFIG")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file, watched for threshold and log level changes")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	lg := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		lg.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			lg.Warn(ctx, "tracer shutdown failed", logger.Error(err))
		}
	}()

	opts, err := buildServerOptions(cfg)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}

	svc, release, err := buildService(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			lg.Warn(ctx, "release failed", logger.Error(err))
		}
	}()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			lg.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	if configPath != "" {
		watchConfig(ctx, configPath, svc, lg)
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, cfg.MaxListLimit, opts...),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		lg.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	lg.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	lg.Info(ctx, "server stopped")
	return nil
}

// newHandler registers every route and wraps the mux for tracing.
func newHandler(ctx context.Context, svc api.Dependencies, maxListLimit int, opts ...api.ServerOption) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, maxListLimit, opts...).Register(ctx, mux)
	return otelhttp.NewHandler(mux, "fraudscope.http")
}

// watchConfig applies threshold and log level edits without a restart.
// Other keys need a restart.
func watchConfig(ctx context.Context, path string, svc *service.Service, lg logger.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.Config) {
		if err := svc.SetThresholds(thresholdsFrom(cfg)); err != nil {
			lg.Warn(ctx, "rejected reloaded thresholds", logger.Error(err))
		}
		if err := logger.SetLevelString(cfg.LogLevel); err != nil {
			lg.Warn(ctx, "rejected reloaded log_level", logger.String("log_level", cfg.LogLevel))
		}
		lg.Info(ctx, "configuration reloaded",
			logger.Float64("low_risk_threshold", cfg.LowRiskThreshold),
			logger.Float64("high_risk_threshold", cfg.HighRiskThreshold),
		)
	}, func(err error) {
		lg.Warn(ctx, "configuration reload failed", logger.Error(err))
	})
	if err != nil {
		lg.Warn(ctx, "config watcher disabled", logger.Error(err))
	}
}

// startSystemMetricsUpdater refreshes the process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
