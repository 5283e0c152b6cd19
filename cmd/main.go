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

	"github.com/okian/trafficrobot/internal/adapters/http/api"
	"github.com/okian/trafficrobot/internal/adapters/http/site"
	"github.com/okian/trafficrobot/internal/adapters/http/swagger"
	"github.com/okian/trafficrobot/internal/adapters/notifier"
	"github.com/okian/trafficrobot/internal/adapters/source"
	app "github.com/okian/trafficrobot/internal/app"
	"github.com/okian/trafficrobot/internal/config"
	"github.com/okian/trafficrobot/internal/domain/evaluator"
	"github.com/okian/trafficrobot/internal/domain/model"
	"github.com/okian/trafficrobot/pkg/logger"
	"github.com/okian/trafficrobot/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Only the custom registry is exposed; drop the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> PORT -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Get().Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}

	if cfg.LogFormat != logger.FormatText {
		if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
			logger.Get().Warn(ctx, "invalid log_format; keeping text", logger.String("log_format", cfg.LogFormat), logger.Error(err))
		}
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	loggerInstance := logger.Get()

	svc, err := newService(cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		os.Exit(1)
	}
	// Status workers outlive the signal so Stop can drain them.
	if err := svc.Start(context.WithoutCancel(ctx)); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newSource builds the configured route source. A live source without an
// API key fails here, before anything is served.
func newSource(cfg *config.Config) (app.Source, error) {
	if cfg.Source == config.SourceStatic {
		s, err := source.NewStaticSource(cfg.Fixture)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	opts := []source.Option{source.WithTimeout(time.Duration(cfg.FetchTimeoutMS) * time.Millisecond)}
	if cfg.MapsBaseURL != "" {
		opts = append(opts, source.WithBaseURL(cfg.MapsBaseURL))
	}
	s, err := source.NewLiveSource(cfg.MapsAPIKey, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newService wires source, evaluator, notifier and status channel.
func newService(cfg *config.Config) (*app.Service, error) {
	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}
	deliveryTimeout := time.Duration(cfg.DeliveryTimeoutMS) * time.Millisecond

	return app.New(
		app.WithLogger(logger.Get().Named("service")),
		app.WithSource(src),
		app.WithEvaluator(evaluator.New(evaluator.WithRouteName(cfg.RouteName))),
		app.WithNotifier(notifier.New(notifier.WithTimeout(deliveryTimeout))),
		app.WithStatusChannel(notifier.NewStatusChannel(cfg.StatusWebhookURL, cfg.StatusEventName, cfg.StatusUsername,
			notifier.WithTimeout(deliveryTimeout))),
		app.WithRoute(model.RouteSpec{Name: cfg.RouteName, Origin: cfg.Origin, Destination: cfg.Destination}),
		app.WithStatusQueueSize(cfg.StatusQueueSize),
		app.WithStatusWorkers(cfg.StatusWorkers),
	), nil
}

// newMux registers the landing page, docs and API routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(svc, svc, api.NewManifest(cfg.AppURL, cfg.AppLogo, cfg.TickInterval))
	apiServer.Register(ctx, mux)
	return mux
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
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges derived from service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["statusQueueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
