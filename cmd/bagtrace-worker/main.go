package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/BearBump/BagTrace/config"
	"github.com/BearBump/BagTrace/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}
	logging.Setup(os.Stdout, cfg.Log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = RunBagTraceWorker(ctx, cfg, defaultWorkerFactories(), workerOpts{
		httpAddr:    cfg.BagTrace.WorkerHTTPAddr,
		swaggerPath: os.Getenv("workerSwaggerPath"),
		registry:    reg,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bagtrace worker stopped", "error", err.Error())
		panic(err)
	}
}
