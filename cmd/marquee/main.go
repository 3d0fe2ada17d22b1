package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/marquee/internal/adapters/http/api"
	"github.com/okian/marquee/internal/adapters/http/swagger"
	"github.com/okian/marquee/internal/adapters/metadata"
	"github.com/okian/marquee/internal/adapters/repository"
	app "github.com/okian/marquee/internal/app"
	"github.com/okian/marquee/internal/config"
	"github.com/okian/marquee/internal/supervisor"
	"github.com/okian/marquee/pkg/logger"
	"github.com/okian/marquee/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 15 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 15 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Only the custom registry is served; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Get()

	svc, srv, err := build(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "startup failed", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("store", cfg.Store))
	if err := run(ctx, svc, srv, log); err != nil {
		log.Error(ctx, "server stopped with error", logger.Error(err))
		svc.Stop()
		os.Exit(1)
	}
	log.Info(ctx, "server stopped")
}

// run supervises the HTTP server and the metrics refreshers until ctx ends.
func run(ctx context.Context, svc *app.Service, srv *http.Server, log logger.Logger) error {
	tree := supervisor.NewTree(logger.Slog(log.Named("supervisor")),
		supervisor.WithShutdownTimeout(shutdownTimeout))
	tree.AddAPIService(supervisor.NewHTTPService(srv, shutdownTimeout))
	tree.AddBackgroundService(supervisor.NewTickerService("system-metrics", systemMetricsInterval,
		func(context.Context) { updateSystemMetrics() }))
	tree.AddBackgroundService(supervisor.NewTickerService("service-metrics", serviceMetricsInterval,
		func(context.Context) { updateServiceMetrics(svc) }))

	err := <-tree.ServeBackground(ctx)
	log.Info(ctx, "shutting down server...")

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		log.Warn(ctx, "services did not stop in time", logger.Int("count", len(report)))
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// build opens the store, starts the service and assembles the HTTP server.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, *http.Server, error) {
	store, err := repository.Open(ctx, cfg.Store, cfg.DatabaseURL,
		repository.WithMaxConns(int32(cfg.DBMaxConns)))
	if err != nil {
		return nil, nil, err
	}

	fetcher := metadata.New(cfg.MetadataURL,
		metadata.WithAPIKey(cfg.MetadataAPIKey),
		metadata.WithTimeout(cfg.MetadataTimeout()),
		metadata.WithRateLimit(cfg.MetadataRPS, cfg.MetadataBurst),
		metadata.WithBreaker(cfg.BreakerFailures, cfg.BreakerTimeout()),
		metadata.WithLogger(log.Named("metadata")),
	)

	svc := app.New(
		app.WithStore(store),
		app.WithFetcher(fetcher),
		app.WithLogger(log.Named("service")),
	)
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	router := api.NewServer(svc, svc,
		api.WithLogger(log.Named("api")),
		api.WithRateLimit(cfg.HTTPRateLimit, time.Minute),
	).Router()
	swagger.Register(router)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return svc, srv, nil
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics relies on GetStats updating the movie and comment
// gauges as a side effect.
func updateServiceMetrics(svc *app.Service) {
	_ = svc.GetStats()
}
