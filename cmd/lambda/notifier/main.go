package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/example/slick-storefront/internal/config"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/email"
	"github.com/example/slick-storefront/internal/infrastructure/kinesis"
	"github.com/example/slick-storefront/internal/infrastructure/store"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/notification"
)

var mailer *notification.OrderMailer

// init runs once per Lambda container. Order inserts reach this function
// from the orders table's DynamoDB stream via Kinesis.
func init() {
	cfg := config.Load()
	if os.Getenv("STORE_BACKEND") == "" {
		cfg.Backend = config.BackendDynamo
	}

	backend, err := store.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[Lambda Notifier] Failed to open %s backend: %v", cfg.Backend, err)
	}

	slogger := logger.New(logger.Options{Service: "order-notifier-lambda", Env: cfg.AppEnv, Level: cfg.LogLevel})
	reader := catalog.NewReader(backend.Products, backend.Testimonials, slogger)
	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	mailer = notification.NewOrderMailer(emailSvc, reader, slogger)

	log.Printf("[Lambda Notifier] Initialized successfully (backend: %s, SMTP: %s:%s)", backend.Name, cfg.SMTPHost, cfg.SMTPPort)
}

func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	log.Printf("[Lambda Notifier] Received %d records", len(kinesisEvent.Records))

	var batchItemFailures []events.KinesisBatchItemFailure
	fail := func(record events.KinesisEventRecord) {
		batchItemFailures = append(batchItemFailures, events.KinesisBatchItemFailure{
			ItemIdentifier: record.Kinesis.SequenceNumber,
		})
	}

	for _, record := range kinesisEvent.Records {
		o, err := kinesis.ConvertFromKinesisRecord(record)
		if err != nil {
			log.Printf("[Lambda Notifier] Failed to convert record %s: %v", record.EventID, err)
			fail(record)
			continue
		}

		// Skip non-INSERT records
		if o == nil {
			continue
		}

		if err := mailer.SendConfirmation(ctx, *o); err != nil {
			log.Printf("[Lambda Notifier] Failed to send confirmation for order %s: %v", o.ID, err)
			fail(record)
		}
	}

	successCount := len(kinesisEvent.Records) - len(batchItemFailures)
	log.Printf("[Lambda Notifier] Processed %d/%d records successfully", successCount, len(kinesisEvent.Records))

	return events.KinesisEventResponse{
		BatchItemFailures: batchItemFailures,
	}, nil
}

func main() {
	lambda.Start(handler)
}
