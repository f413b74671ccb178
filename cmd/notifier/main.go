package main

import (
	"context"
	"errors"
	"os"

	"github.com/example/slick-storefront/internal/config"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/order"
	"github.com/example/slick-storefront/internal/email"
	"github.com/example/slick-storefront/internal/infrastructure/kafka"
	"github.com/example/slick-storefront/internal/infrastructure/store"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/notification"
	"github.com/example/slick-storefront/internal/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "order-notifier", Env: cfg.AppEnv, Level: cfg.LogLevel})

	if len(cfg.KafkaBrokers) == 0 {
		log.Error("KAFKA_BROKERS is required")
		os.Exit(1)
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// The catalog backend only supplies product names for the email.
	backend, err := store.Open(ctx, cfg)
	if err != nil {
		log.Error("failed to open storage backend", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	reader := catalog.NewReader(backend.Products, backend.Testimonials, log)
	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	mailer := notification.NewOrderMailer(emailSvc, reader, log)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ConsumerGroup, log, order.EventOrderPlaced)
	defer consumer.Close()

	log.Info("consuming order events",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic,
		"group", cfg.ConsumerGroup,
		"smtp", cfg.SMTPHost+":"+cfg.SMTPPort,
	)
	if err := consumer.Consume(ctx, mailer.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	log.Info("notifier stopped")
}
