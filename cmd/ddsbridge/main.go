// Package main implements the bridge daemon: it hosts a participant on
// the configured transport and serves metrics and health endpoints for
// the domain it joins.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/c360/ddsbridge/config"
	"github.com/c360/ddsbridge/health"
	"github.com/c360/ddsbridge/metric"
	"github.com/c360/ddsbridge/rmw"
	"github.com/c360/ddsbridge/transport"
	"github.com/c360/ddsbridge/transport/memtransport"
	"github.com/c360/ddsbridge/transport/natstransport"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "ddsbridge"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("daemon failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = flag.String("config", os.Getenv("DDSBRIDGE_CONFIG"), "path to configuration file (env: DDSBRIDGE_CONFIG)")
		logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(*logLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger.Info("configuration loaded",
		"participant", cfg.Participant.Name,
		"transport", cfg.Transport.Mode)

	tc, err := buildTransport(cfg, logger)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	defer func() { _ = tc.Close() }()

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()

	rmwOpts := []rmw.Option{
		rmw.WithName(cfg.Participant.Name),
		rmw.WithTransport(tc),
		rmw.WithLogger(&transport.SlogLogger{L: logger}),
		rmw.WithMetrics(metrics),
		rmw.WithEnclave(cfg.Participant.Enclave),
	}
	if cfg.Transport.FallbackDepth > 0 {
		rmwOpts = append(rmwOpts, rmw.WithFallbackDepth(cfg.Transport.FallbackDepth))
	}
	rctx, err := rmw.Init(rmwOpts...)
	if err != nil {
		return fmt.Errorf("initialize middleware: %w", err)
	}

	monitor := health.NewMonitor()
	monitor.UpdateHealthy("transport", cfg.Transport.Mode+" transport up")

	shutdownCtx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		logger.Info("metrics server started", "port", cfg.Metrics.Port)
	}

	var healthServer *http.Server
	if cfg.Health.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/healthz", monitor.Handler(appName))
		healthServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if herr := healthServer.ListenAndServe(); herr != nil && herr != http.ErrServerClosed {
				logger.Error("health server failed", "error", herr)
			}
		}()
		logger.Info("health server started", "port", cfg.Health.Port)
	}

	go watchGraph(shutdownCtx, rctx, metrics, monitor, logger)

	logger.Info("bridge running", "participant", cfg.Participant.Name)
	<-shutdownCtx.Done()
	logger.Info("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if healthServer != nil {
		_ = healthServer.Shutdown(drainCtx)
	}
	if metricsServer != nil {
		_ = metricsServer.Stop(drainCtx)
	}
	if err := rctx.Shutdown(); err != nil {
		logger.Warn("middleware shutdown", "error", err)
	}
	if err := rctx.Fini(); err != nil {
		logger.Warn("middleware finalize", "error", err)
	}
	return nil
}

func buildTransport(cfg *config.Config, logger *slog.Logger) (transport.Context, error) {
	tlog := &transport.SlogLogger{L: logger}
	switch cfg.Transport.Mode {
	case config.TransportNATS:
		opts := []natstransport.Option{
			natstransport.WithLogger(tlog),
			natstransport.WithShmTopics(cfg.Transport.ShmTopics...),
		}
		if cfg.NATS.SubjectPrefix != "" {
			opts = append(opts, natstransport.WithSubjectPrefix(cfg.NATS.SubjectPrefix))
		}
		if cfg.NATS.MaxReconnects != 0 {
			opts = append(opts, natstransport.WithMaxReconnects(cfg.NATS.MaxReconnects))
		}
		if cfg.NATS.ReconnectWait > 0 {
			opts = append(opts, natstransport.WithReconnectWait(cfg.NATS.ReconnectWait))
		}
		if cfg.NATS.Username != "" {
			opts = append(opts, natstransport.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
		}
		if cfg.NATS.Token != "" {
			opts = append(opts, natstransport.WithToken(cfg.NATS.Token))
		}
		if cfg.NATS.TLS.Enabled {
			opts = append(opts, natstransport.WithTLS(
				cfg.NATS.TLS.CertFile, cfg.NATS.TLS.KeyFile, cfg.NATS.TLS.CAFile))
		}
		if cfg.Transport.QueueDepth > 0 {
			opts = append(opts, natstransport.WithDefaultQueueDepth(cfg.Transport.QueueDepth))
		}
		return natstransport.New(cfg.NATS.URL, cfg.Participant.Name, opts...)
	default:
		opts := []memtransport.Option{
			memtransport.WithLogger(tlog),
			memtransport.WithShmTopics(cfg.Transport.ShmTopics...),
		}
		if cfg.Transport.QueueDepth > 0 {
			opts = append(opts, memtransport.WithDefaultQueueDepth(cfg.Transport.QueueDepth))
		}
		return memtransport.New(cfg.Participant.Name, opts...)
	}
}

// watchGraph periodically mirrors the graph version into metrics and
// logs topology changes.
func watchGraph(ctx context.Context, rctx *rmw.Context, metrics *metric.Metrics,
	monitor *health.Monitor, logger *slog.Logger) {

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var lastVersion uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		version := rctx.Graph().Version()
		metrics.RecordGraphVersion(version)
		if version == lastVersion {
			continue
		}
		lastVersion = version

		topics, err := rctx.GetTopicNamesAndTypes()
		if err != nil {
			monitor.UpdateDegraded("graph", "enumeration failed: "+err.Error())
			continue
		}
		names := make([]string, 0, len(topics))
		for _, tp := range topics {
			names = append(names, tp.Name)
		}
		monitor.UpdateHealthy("graph", fmt.Sprintf("%d topics", len(topics)))
		logger.Debug("graph changed", "version", version, "topics", strings.Join(names, ","))
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler).With("service", appName, "version", Version, "pid", os.Getpid())
}
