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

// init wires the mailer for the orders table's DynamoDB stream when it
// triggers the function directly, without a Kinesis hop.
func init() {
	cfg := config.Load()
	if os.Getenv("STORE_BACKEND") == "" {
		cfg.Backend = config.BackendDynamo
	}

	backend, err := store.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("[Lambda Stream] Failed to open %s backend: %v", cfg.Backend, err)
	}

	slogger := logger.New(logger.Options{Service: "order-stream-lambda", Env: cfg.AppEnv, Level: cfg.LogLevel})
	reader := catalog.NewReader(backend.Products, backend.Testimonials, slogger)
	mailer = notification.NewOrderMailer(email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom), reader, slogger)

	log.Println("[Lambda Stream] Initialized successfully")
}

func handler(ctx context.Context, event events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	log.Printf("[Lambda Stream] Received %d records", len(event.Records))

	var batchItemFailures []events.DynamoDBBatchItemFailure
	for _, record := range event.Records {
		o, err := kinesis.ConvertFromDynamoDBStreamRecord(record)
		if err == nil && o != nil {
			err = mailer.SendConfirmation(ctx, *o)
		}
		if err != nil {
			log.Printf("[Lambda Stream] Failed to process record %s: %v", record.EventID, err)
			batchItemFailures = append(batchItemFailures, events.DynamoDBBatchItemFailure{
				ItemIdentifier: record.Change.SequenceNumber,
			})
		}
	}

	log.Printf("[Lambda Stream] Processed %d/%d records successfully",
		len(event.Records)-len(batchItemFailures), len(event.Records))
	return events.DynamoDBEventResponse{BatchItemFailures: batchItemFailures}, nil
}

func main() {
	lambda.Start(handler)
}
