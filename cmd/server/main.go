package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"opagate/internal/debuglog"
	debughandler "opagate/internal/debuglog/handler"
	debugmetrics "opagate/internal/debuglog/metrics"
	"opagate/internal/decision"
	decisionhandler "opagate/internal/decision/handler"
	decisionmetrics "opagate/internal/decision/metrics"
	"opagate/internal/health"
	healthhandler "opagate/internal/health/handler"
	healthmetrics "opagate/internal/health/metrics"
	"opagate/internal/opa"
	"opagate/internal/opal"
	"opagate/internal/platform/config"
	"opagate/internal/platform/httpserver"
	"opagate/internal/platform/logger"
	"opagate/internal/platform/metrics"
	"opagate/internal/platform/redis"
	"opagate/internal/platform/tracing"
	httptransport "opagate/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal module packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	tp, err := tracing.NewProvider(cfg.Tracing, os.Stdout)
	if err != nil {
		return err
	}
	shutdownTracing := tracing.Install(tp)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("failed to flush traces", "error", err)
		}
	}()

	engine, err := opa.New(cfg.OPA.BaseURL, opa.WithPolicyPath(cfg.OPA.PolicyPath))
	if err != nil {
		return err
	}
	opalClient, err := opal.New(cfg.OPAL.ServerURL, nil)
	if err != nil {
		return err
	}

	buffer := debuglog.NewBuffer()
	defer buffer.Close()
	debugmetrics.New(reg, buffer)

	decisionMetrics := decisionmetrics.New(reg)
	decisions, err := decision.New(engine,
		decision.WithLogger(log),
		decision.WithRecorder(buffer),
		decision.WithMetrics(decisionMetrics),
	)
	if err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	checks := map[string]httptransport.Check{}
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
	}
	store := statusStore(redisClient, cfg, log)

	engineProbe := health.NewEngineProbe(engine)
	aggregator := health.NewAggregator(engineProbe, health.NewOPALProbe(opalClient),
		health.WithDevelopmentMode(cfg.DevelopmentMode),
		health.WithLogger(log),
		health.WithMetrics(healthmetrics.New(reg)),
	)
	poller := health.NewPoller(aggregator, store, cfg.Health.PollInterval, log)
	if err := poller.Start(ctx); err != nil {
		return err
	}
	defer poller.Stop()

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Checks:   checks,
		Handlers: []httptransport.Registrar{
			decisionhandler.New(engine, decisions, log, decisionMetrics),
			debughandler.New(buffer, log),
			healthhandler.New(engineProbe, poller, opalClient, log),
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting opagate",
		"addr", cfg.Addr,
		"opa_base_url", cfg.OPA.BaseURL,
		"opa_decision_path", engine.DecisionPath(),
		"opal_server_url", cfg.OPAL.ServerURL,
		"data_provider_url", cfg.DataProviderURL,
		"poll_interval", cfg.Health.PollInterval.String(),
		"development_mode", cfg.DevelopmentMode,
		"trace_exporter", cfg.Tracing.Exporter,
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// statusStore selects Redis when configured so several gateway instances
// share the last polled status.
func statusStore(client *redis.Client, cfg config.Server, log *slog.Logger) health.StatusStore {
	if client == nil {
		return health.NewMemoryStore()
	}
	log.Info("sharing system status through redis", "key", cfg.Redis.StatusKey)
	return health.NewRedisStore(client, cfg.Redis.StatusKey, cfg.Redis.StatusTTL)
}
