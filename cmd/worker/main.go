package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cmlabs-hris/payroll-engine/internal/app"
	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/jobs"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.App.Env, cfg.App.LogFormat, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("init app", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	opts, ok := a.RedisOpts()
	if !ok {
		log.Error("REDIS_ADDR is required for the worker")
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   opts,
		Queue:       cfg.Worker.Queue,
		Concurrency: cfg.Worker.Concurrency,
		Logger:      log,
		Generate:    jobs.NewGenerateJob(a.Payroll, log),
	})
	if err != nil {
		log.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("worker started", slog.String("queue", cfg.Worker.Queue))
	if err := worker.Run(ctx); err != nil {
		log.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
