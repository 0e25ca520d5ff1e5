package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/apexsports/shotform/internal/adapters/http/api"
	"github.com/apexsports/shotform/internal/adapters/http/stream"
	app "github.com/apexsports/shotform/internal/app"
	"github.com/apexsports/shotform/internal/config"
	"github.com/apexsports/shotform/internal/domain/flaw"
	"github.com/apexsports/shotform/internal/domain/model"
	"github.com/apexsports/shotform/internal/domain/scoring"
	"github.com/apexsports/shotform/internal/domain/segment"
	"github.com/apexsports/shotform/pkg/logger"
	"github.com/apexsports/shotform/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			logger.Error(err)
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Handedness and flaw threshold keys were validated with the config.
	hand, err := model.ParseHand(cfg.Handedness)
	if err != nil {
		os.Stderr.WriteString("failed to parse handedness: " + err.Error() + "\n")
		return
	}
	overrides := make(map[model.FlawType]float64, len(cfg.FlawThresholds))
	for name, v := range cfg.FlawThresholds {
		overrides[model.FlawType(name)] = v
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithFrameRate(cfg.FrameRate),
		app.WithReliabilityFloor(cfg.ReliabilityFloor),
		app.WithMinCoverage(cfg.MinCoverage),
		app.WithHandedness(hand),
		app.WithSegmentOptions(
			segment.WithMinDwell(cfg.MinPhaseDwell),
			segment.WithMaxDwell(cfg.MaxPhaseDwell),
			segment.WithReleaseWindow(cfg.ReleaseWindow),
			segment.WithStillnessDwell(cfg.StillnessDwell),
			segment.WithRiseSpeed(cfg.RiseSpeed),
			segment.WithStillness(cfg.Stillness),
			segment.WithLoadKneeBend(cfg.LoadKneeBend),
		),
		app.WithFlawOptions(
			flaw.WithThresholdOverrides(overrides),
		),
		app.WithScoringOptions(
			scoring.WithPenaltyWeights(scoring.Weights{
				Minor:    cfg.PenaltyMinor,
				Moderate: cfg.PenaltyModerate,
				Major:    cfg.PenaltyMajor,
			}),
			scoring.WithConsistencyScale(cfg.ConsistencyScale),
			scoring.WithReleaseCVThreshold(cfg.ReleaseCVThreshold),
		),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux, svc)

	// Live landmark ingest over WebSocket.
	streamHandler := stream.NewHandler(svc)
	mux.HandleFunc("/stream", streamHandler.HandleStream)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
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

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average GC pause across all cycles so far
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	// GetStats already refreshes queue and worker gauges; session and shot
	// totals are refreshed here from the returned snapshot.
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}

	if totalSessions, ok := stats["totalSessions"].(int); ok {
		metrics.UpdateTotalSessions(totalSessions)
	}

	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
}
