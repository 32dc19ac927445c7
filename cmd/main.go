package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/UnknownOlympus/mapwatch/internal/browser"
	"github.com/UnknownOlympus/mapwatch/internal/config"
	"github.com/UnknownOlympus/mapwatch/internal/geocoding"
	"github.com/UnknownOlympus/mapwatch/internal/metrics"
	"github.com/UnknownOlympus/mapwatch/internal/models"
	"github.com/UnknownOlympus/mapwatch/internal/report"
	"github.com/UnknownOlympus/mapwatch/internal/repository"
	"github.com/UnknownOlympus/mapwatch/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

const (
	modeOnce  = "once"
	modeWatch = "watch"

	defaultRecentLimit = 20
	shutdownTimeout    = 5 * time.Second
)

// main is the entry point of the application.
func main() {
	os.Exit(run())
}

// run wires the application together and returns the process exit code:
// 0 when the map is healthy (or watch mode stopped cleanly), 1 otherwise.
func run() int {
	// Create a context that will be canceled when an interrupt signal is received.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	launcher, err := browser.NewLauncher(browser.Options{
		Driver:          browser.DriverType(cfg.Browser.Driver),
		Headless:        cfg.Browser.Headless,
		InstallBrowsers: cfg.Browser.InstallBrowsers,
		ExecutablePath:  cfg.Browser.ExecutablePath,
		ViewportWidth:   cfg.Browser.ViewportWidth,
		ViewportHeight:  cfg.Browser.ViewportHeight,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create browser launcher: %v", err)
	}

	directory, err := report.NewDirectory(cfg.ReportDir, logger)
	if err != nil {
		log.Fatalf("Failed to prepare report directory: %v", err)
	}
	sink := report.Multi{report.NewLogSink(logger), directory}

	// Persistence is optional: without DB_HOST results only go to the sinks.
	var (
		store repository.Interface
		ping  pinger
	)
	if cfg.Database.Enabled() {
		dtb, dbErr := repository.NewDatabase(
			ctx, cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if dbErr != nil {
			log.Fatalf("Failed to connect to DB: %v", dbErr)
		}
		defer dtb.Close()

		repo := repository.NewRepository(dtb, logger)
		if dbErr = repo.EnsureSchema(ctx); dbErr != nil {
			log.Fatalf("Failed to prepare DB schema: %v", dbErr)
		}
		store, ping = repo, dtb
	}

	// Reverse geocoding only annotates drifted coordinates; "none" disables it.
	locator, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:   geocoding.ProviderType(cfg.Geocoder.Provider),
		APIKey: cfg.Geocoder.APIKey,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("Failed to create geocoding provider: %v", err)
	}

	healthCheck := service.NewHealthCheck(logger, launcher, sink, store, locator, appMetrics, service.Settings{
		TargetURL: cfg.Target.URL,
		Selectors: browser.Selectors{
			Map:   cfg.Target.MapSelector,
			Popup: cfg.Target.PopupSelector,
		},
		WaitTimeout: cfg.Target.WaitTimeout,
		Thresholds: service.Thresholds{
			SLA:              cfg.Target.SLAThreshold,
			ExpectedLatitude: cfg.Target.ExpectedLatitude,
			Tolerance:        cfg.Target.Tolerance,
		},
	})

	if cfg.Mode == modeOnce {
		return runOnce(ctx, logger, healthCheck)
	}

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.", "mode", modeWatch)

	server := newMonitoringServer(ctx, logger, reg, ping, healthCheck, store, cfg.Port)
	go func() {
		logger.InfoContext(ctx, "Starting monitoring server", "port", cfg.Port)
		if srvErr := server.ListenAndServe(); srvErr != nil && !errors.Is(srvErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "Monitoring server failed", "error", srvErr)
		}
	}()

	healthCheck.Run(ctx, cfg.Interval)

	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(ctx, "Monitoring server shutdown failed", "error", err)
	}

	logger.InfoContext(ctx, "Application stopped gracefully.")
	return 0
}

// runOnce performs a single check and maps its verdict to an exit code.
func runOnce(ctx context.Context, log *slog.Logger, healthCheck *service.HealthCheck) int {
	result := healthCheck.Check(ctx)
	if !result.Passed() {
		log.ErrorContext(ctx, "Map health check failed", "reason", result.Reason, "message", result.Message)
		return 1
	}

	log.InfoContext(ctx, "Map health check passed", "latency", result.Latency)
	return 0
}

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

// lastResulter exposes the most recent finished check.
type lastResulter interface {
	Last() (models.CheckResult, bool)
}

// newMonitoringServer builds the HTTP server for watch mode.
//
// Endpoints:
// - /healthz: OK, or 503 when the database ping fails (ping may be nil).
// - /metrics: Prometheus collectors from reg.
// - /status: the last finished check as JSON, 204 before the first one.
// - /checks: recent stored checks as JSON, 404 when persistence is off.
func newMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	ping pinger,
	checks lastResulter,
	store repository.Interface,
	port int,
) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, req *http.Request) {
		log.DebugContext(ctx, "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if ping != nil {
			if err := ping.Ping(req.Context()); err != nil {
				status, body = http.StatusServiceUnavailable, "DB ping failed"
			}
		}
		writer.WriteHeader(status)
		if _, err := writer.Write([]byte(body)); err != nil {
			log.ErrorContext(ctx, "failed to write reply", "error", err)
		}

		log.DebugContext(ctx, "Health checks completed", "status", status)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("/status", func(writer http.ResponseWriter, _ *http.Request) {
		result, ok := checks.Last()
		if !ok {
			writer.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(ctx, log, writer, result)
	})

	mux.HandleFunc("/checks", func(writer http.ResponseWriter, req *http.Request) {
		if store == nil {
			http.Error(writer, "persistence disabled", http.StatusNotFound)
			return
		}

		limit := defaultRecentLimit
		if raw := req.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				http.Error(writer, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		results, err := store.RecentResults(req.Context(), limit)
		if err != nil {
			log.ErrorContext(ctx, "Failed to load recent checks", "error", err)
			http.Error(writer, "failed to load checks", http.StatusInternalServerError)
			return
		}
		writeJSON(ctx, log, writer, results)
	})

	readTimeout := 5
	writeTimeout := 10
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}
}

func writeJSON(ctx context.Context, log *slog.Logger, writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		log.ErrorContext(ctx, "failed to write reply", "error", err)
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
