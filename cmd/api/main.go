package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/app"
	"github.com/cmlabs-hris/payroll-engine/internal/config"
	appHTTP "github.com/cmlabs-hris/payroll-engine/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine/internal/jobs"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.App.Env, cfg.App.LogFormat, cfg.App.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to start", slog.Any("error", err))
		os.Exit(1)
	}
	defer a.Close()

	var enqueuer appHTTP.GenerateEnqueuer
	if opts, ok := a.RedisOpts(); ok {
		client := jobs.NewClient(opts, cfg.Worker.Queue, a.Authorizer)
		defer client.Close()
		enqueuer = client
	} else {
		log.Warn("REDIS_ADDR not set, async generation disabled")
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret)
	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:      log,
			CORSOrigins: cfg.App.CORSOrigins,
			Production:  cfg.IsProduction(),
			Metrics:     a.Metrics,
		},
		JWTService,
		appHTTP.NewPayrollHandler(a.Payroll, enqueuer),
		appHTTP.NewSalaryHandler(a.Salary),
		appHTTP.NewAuditHandler(a.Audit),
	)

	scheduler := cron.NewScheduler(log)
	cron.NewPayrollJobs(a.Payroll, log, cfg.Payroll.RefreshHour, nil).RegisterJobs(scheduler, cfg.Payroll.RefreshInterval)
	scheduler.Start()
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown", slog.Any("error", err))
	}
	log.Info("Server stopped")
}
