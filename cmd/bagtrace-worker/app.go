package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BearBump/BagTrace/config"
	"github.com/BearBump/BagTrace/internal/broker/kafka"
	"github.com/BearBump/BagTrace/internal/broker/messages"
	"github.com/BearBump/BagTrace/internal/integrations/embedder"
	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/services/backfill"
	"github.com/BearBump/BagTrace/internal/services/luggage"
	"github.com/BearBump/BagTrace/internal/services/matching"
	"github.com/BearBump/BagTrace/internal/storage/pgluggage"
)

const (
	metricsNamespace     = "bagtrace_worker"
	defaultConsumerGroup = "bagtrace-worker"
	consumeRestartDelay  = 2 * time.Second
)

type workerStore interface {
	luggage.Repository
	backfill.Repository
	matching.Index
	Ping(ctx context.Context) error
}

type messageConsumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error
	Close() error
}

type workerFactories struct {
	newStorage  func(ctx context.Context, cfg *config.Config) (st workerStore, closeFn func(), err error)
	newConsumer func(cfg *config.Config) messageConsumer
	newEmbedder func(cfg *config.Config) luggage.Embedder
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(ctx context.Context, cfg *config.Config) (workerStore, func(), error) {
			st, err := pgluggage.New(ctx, cfg.Database.ConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(cfg *config.Config) messageConsumer {
			group := cfg.BagTrace.KafkaConsumerGroup
			if group == "" {
				group = defaultConsumerGroup
			}
			return kafka.NewConsumer(cfg.Kafka.Brokers(), reportedTopic(cfg), group)
		},
		newEmbedder: func(cfg *config.Config) luggage.Embedder {
			return embedder.New(cfg.Embedder.BaseURL, time.Duration(cfg.Embedder.TimeoutSeconds)*time.Second)
		},
	}
}

func reportedTopic(cfg *config.Config) string {
	if cfg.Kafka.LuggageReportedTopicName == "" {
		return messages.DefaultLuggageReportedTopic
	}
	return cfg.Kafka.LuggageReportedTopicName
}

func backoffFromConfig(c config.BagTraceConfig) *luggage.Backoff {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return luggage.NewBackoff(luggage.BackoffConfig{
		Backoff1: sec(c.EmbedBackoff1Seconds),
		Backoff2: sec(c.EmbedBackoff2Seconds),
		Backoff3: sec(c.EmbedBackoff3Seconds),
		Backoff4: sec(c.EmbedBackoff4Seconds),
	})
}

type workerOpts struct {
	httpAddr    string
	swaggerPath string
	registry    *prometheus.Registry
	onListen    func(httpAddr string)
}

func RunBagTraceWorker(ctx context.Context, cfg *config.Config, f workerFactories, opts workerOpts) error {
	pollInterval := time.Duration(cfg.BagTrace.WorkerPollIntervalSeconds) * time.Second
	lease := time.Duration(cfg.BagTrace.WorkerLeaseSeconds) * time.Second

	reg := opts.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(metricsNamespace, reg)

	st, closeFn, err := f.newStorage(ctx, cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	engine := matching.NewEngine(st, m).WithSettings(cfg.Matching.TopK, cfg.Matching.Threshold)
	svc := luggage.New(st, nil, reportedTopic(cfg)).
		WithPipeline(f.newEmbedder(cfg), engine, backoffFromConfig(cfg.BagTrace), m)

	sweeper := backfill.New(st, svc, m).
		WithSettings(pollInterval, cfg.BagTrace.WorkerBatchSize, cfg.BagTrace.WorkerConcurrency, lease)

	consumer := f.newConsumer(cfg)
	defer func() { _ = consumer.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweepErr := make(chan error, 1)
	go func() { sweepErr <- sweeper.Run(ctx) }()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr:    opts.httpAddr,
			swaggerPath: opts.swaggerPath,
			onListen:    opts.onListen,
			sweeper:     sweeper,
			cfg:         cfg,
			gatherer:    reg,
			ready:       st.Ping,
		})
	}()

	go consumeLoop(ctx, consumer, svc.HandleReported, reportedTopic(cfg))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-sweepErr:
		return err
	case err := <-httpErr:
		return err
	}
}

// consumeLoop restarts the consumer after handler or broker failures until ctx is done.
func consumeLoop(ctx context.Context, c messageConsumer, handler func(ctx context.Context, key, value []byte) error, topic string) {
	slog.Info("kafka consumer started", "topic", topic)
	for {
		err := c.Consume(ctx, handler)
		if ctx.Err() != nil {
			return
		}
		slog.Error("kafka consume failed, restarting", "topic", topic, "error", errString(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(consumeRestartDelay):
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
