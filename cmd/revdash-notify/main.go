package main

import (
	"context"
	"errors"
	"os"
	"time"

	"revdash/internal/amqp"
	"revdash/internal/cli"
	"revdash/internal/log"
)

// revdash-notify tails the notification queue and writes each message to
// the structured log, for ops channels that scrape logs.
func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentAMQP)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for revdash-notify")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func(context.Context) {
		client.Close()
	})

	logger.Info("Starting revdash-notify", "queue", cfg.AMQPQueue)
	err = client.ConsumeNotifications(ctx, func(msg *amqp.NotificationMessage) error {
		args := []any{
			"id", msg.ID,
			"level", msg.Level,
			"source", msg.Source,
			"created_at", msg.CreatedAt.Format(time.RFC3339),
		}
		if msg.Level == "error" {
			logger.Warn(msg.Message, args...)
		} else {
			logger.Info(msg.Message, args...)
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
