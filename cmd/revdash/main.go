package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"revdash/internal/amqp"
	"revdash/internal/backend"
	"revdash/internal/cache"
	"revdash/internal/cli"
	apphttp "revdash/internal/http"
	"revdash/internal/log"
	"revdash/internal/notify"
	"revdash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	loc := cli.MustLocation(logger, cfg)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())

	// Notifications are fanned out over AMQP only when a broker is configured.
	var amqpClient *amqp.Client
	notifyOpts := []notify.Option{notify.WithLogger(logger.WithComponent(log.ComponentNotify).Slog())}
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, notifications stay local", log.FieldError, err)
		} else {
			notifyOpts = append(notifyOpts, notify.WithPublisher(amqpClient))
			logger.Info("Publishing notifications to AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	center := notify.NewCenter(cfg.NotificationTTL, notifyOpts...)
	caches.Register(center.Cache())

	syncMgr := services.NewSyncManager(result.Backend,
		services.SyncManagerConfig{RefreshInterval: cfg.AutoRefreshInterval},
		center, logger.WithComponent(log.ComponentSync))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Sync:           syncMgr,
		Notifications:  center,
		BankExclusions: cfg.BankExcludeKeywords,
		Location:       loc,
		Logger:         logger,
		Caches:         caches,
	})
	caches.StartCleanup(time.Minute)

	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := syncMgr.Connect(connectCtx); err != nil {
		logger.Error("Initial connect failed, use POST /api/connect to retry", log.FieldError, err)
	}
	cancel()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := syncMgr.Disconnect(ctx); err != nil {
			logger.Error("Disconnect failed", log.FieldError, err)
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		center.Close()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
		if amqpClient != nil {
			amqpClient.Close()
		}
	})

	logger.Info("Starting revdash server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"timezone", loc.String(),
		"auto_refresh", cfg.AutoRefreshInterval.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
