package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/firewatch/incident-push/internal/api"
	apimw "github.com/firewatch/incident-push/internal/api/middleware"
	"github.com/firewatch/incident-push/internal/config"
	"github.com/firewatch/incident-push/internal/db"
	"github.com/firewatch/incident-push/internal/dispatch"
	"github.com/firewatch/incident-push/internal/metrics"
	"github.com/firewatch/incident-push/internal/push/apns"
	"github.com/firewatch/incident-push/internal/push/fcm"
	"github.com/firewatch/incident-push/internal/push/webpush"
	"github.com/firewatch/incident-push/internal/ratelimiter"
	"github.com/firewatch/incident-push/internal/repository"
	"github.com/firewatch/incident-push/internal/service"
	"github.com/firewatch/incident-push/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- push transports ----
	webClient, err := webpush.New(webpush.Config{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subject:    cfg.VAPIDSubject,
		Timeout:    cfg.PushTimeout,
	}, logger.Named("webpush"))
	if err != nil {
		logger.Fatal("failed to initialize web push", zap.Error(err))
	}

	androidClient := fcm.New(fcm.Config{
		ServerKey: cfg.FCMServerKey,
		Timeout:   cfg.PushTimeout,
	}, logger.Named("fcm"))

	iosClient, err := apns.New(apns.Config{
		KeyPEM:  cfg.APNSKeyPEM,
		KeyID:   cfg.APNSKeyID,
		TeamID:  cfg.APNSTeamID,
		Topic:   cfg.APNSTopic,
		Sandbox: cfg.APNSSandbox,
		Timeout: cfg.PushTimeout,
	}, logger.Named("apns"))
	if err != nil {
		logger.Fatal("failed to initialize apns", zap.Error(err))
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	queueRepo := repository.NewPgQueueRepository(pool)
	subscriberRepo := repository.NewPgSubscriberRepository(pool)
	regionRepo := repository.NewPgRegionRepository(pool)
	limiter := ratelimiter.New(cfg.RateLimit)
	dispatcher := dispatch.New(webClient, androidClient, iosClient, limiter, logger.Named("dispatch"))

	onSent, onFailed, onDrained := m.DispatchHooks()
	svc := service.NewDispatchService(
		queueRepo, subscriberRepo, regionRepo, dispatcher,
		cfg.DrainLimit, logger.Named("service"),
		service.MetricHooks{OnSent: onSent, OnFailed: onFailed, OnDrained: onDrained},
	)

	// ---- optional scheduled drain ----
	// Context for background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	workerDone := make(chan struct{})
	if cfg.DrainInterval > 0 {
		dw := worker.NewDrainWorker(svc, cfg.DrainInterval, logger.Named("worker"))
		go func() {
			defer close(workerDone)
			dw.Run(workerCtx)
		}()
	} else {
		close(workerDone)
	}

	// ---- HTTP server ----
	router := api.NewRouter(svc, queueRepo, apimw.PermissiveVerifier{}, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop the scheduled drain and wait for an in-flight run to finish.
	cancelWorkers()
	<-workerDone

	logger.Info("server stopped cleanly")
}
