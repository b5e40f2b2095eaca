package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BearBump/BagTrace/config"
	bagtraceapi "github.com/BearBump/BagTrace/internal/api/bagtrace_api"
	"github.com/BearBump/BagTrace/internal/broker/kafka"
	"github.com/BearBump/BagTrace/internal/cache/rediscache"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/chain"
	"github.com/BearBump/BagTrace/internal/logging"
	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/services/luggage"
	"github.com/BearBump/BagTrace/internal/services/matching"
	"github.com/BearBump/BagTrace/internal/services/routes"
	"github.com/BearBump/BagTrace/internal/services/verification"
	"github.com/BearBump/BagTrace/internal/storage/pgluggage"
)

const metricsNamespace = "bagtrace"

type apiApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   apiOpts
	api    *bagtraceapi.BagTraceAPI

	closers []func()
}

func mustBootstrapBagTraceAPI() *apiApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	logging.Setup(os.Stdout, cfg.Log)

	httpAddr := cfg.BagTrace.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	routeTTL := time.Duration(cfg.BagTrace.RouteCacheTTLSeconds) * time.Second

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(metricsNamespace, reg)

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)

	redisOpts := rediscache.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	rc := rediscache.New(redisOpts)
	rl := rediscache.NewRateLimiter(redisOpts)

	producer := kafka.NewProducer(cfg.Kafka.Brokers())

	providers, limits := chain.Build(cfg.Providers)
	resolver := routes.New(providers...).
		WithCache(rc, routeTTL).
		WithRateLimit(rl, limits).
		WithObservers(m)

	verifier := verification.NewService(resolver, verification.ScorerFromConfig(cfg.Verification), m)
	lug := luggage.New(st, producer, cfg.Kafka.LuggageReportedTopicName)
	engine := matching.NewEngine(st, m).WithSettings(cfg.Matching.TopK, cfg.Matching.Threshold)
	aggregator := matching.NewAggregator(st)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &apiApp{
		ctx:    ctx,
		cancel: cancel,
		opts: apiOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
			gatherer:    reg,
			ready: func(ctx context.Context) error {
				if err := st.Ping(ctx); err != nil {
					return err
				}
				return rc.Ping(ctx)
			},
		},
		api: bagtraceapi.New(resolver, verifier, lug, engine, aggregator),
		closers: []func(){
			func() { _ = producer.Close() },
			func() { _ = rl.Close() },
			func() { _ = rc.Close() },
			st.Close,
		},
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgluggage.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		st, err := pgluggage.New(ctx, connString)
		cancel()
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *apiApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *apiApp) Run() error {
	return runBagTraceAPI(a.ctx, a.opts, a.api)
}
