// Command stream-lambda is an AWS Lambda function subscribed to the DynamoDB
// streams of the dimension tables. It is the invalidation source when
// DIMENSIONS_INVALIDATION_SOURCE=stream, in which case the service publishes
// nothing and every change, including service writes, is announced here on
// Redis.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/redis/go-redis/v9"

	"github.com/jacentio/dimensions/broadcast"
	"github.com/jacentio/dimensions/config"
	"github.com/jacentio/dimensions/stream"
)

type handlerFunc func(ctx context.Context, event events.DynamoDBEvent) error

// newFunction refuses to run unless the stream is the configured source, so
// a deployment never announces the same write from both sides.
func newFunction(cfg *config.Configuration, publisher broadcast.Publisher, logger *slog.Logger) (handlerFunc, error) {
	if !cfg.StreamInvalidation() {
		return nil, fmt.Errorf("stream function requires DIMENSIONS_INVALIDATION_SOURCE=%s, got %q",
			config.InvalidationStream, cfg.Invalidation.Source)
	}
	handler := stream.NewHandler(publisher, logger)
	tables := stream.TablesFor(cfg.StoreConfig())
	return func(ctx context.Context, event events.DynamoDBEvent) error {
		return handler.HandleEvent(ctx, tables, event)
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load configuration", "error", err)
		os.Exit(1)
	}
	logger, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		slog.Error("build logger", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.URL == "" {
		logger.Error("REDIS_URL is required")
		os.Exit(1)
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("parse redis url", "error", err)
		os.Exit(1)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	fn, err := newFunction(cfg, broadcast.NewRedis(client, cfg.Redis.Channel, logger), logger)
	if err != nil {
		logger.Error("stream function disabled", "error", err)
		os.Exit(1)
	}
	lambda.Start(fn)
}
