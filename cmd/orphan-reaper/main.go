// Package main implements the Lambda handler that retries the release of
// physical resources left behind by failed dataset or session deletes.
// It is triggered by EventBridge rules matching physical_resource.orphaned.
package main

import (
	"context"
	"log"

	"dataworkspace/infrastructure/config"
	"dataworkspace/infrastructure/di"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer func() { _ = container.Shutdown(ctx) }()

	reaper := NewReaper(container.Registry, container.Logger)
	lambda.Start(func(ctx context.Context, event awsevents.CloudWatchEvent) error {
		defer container.FlushMetrics(ctx)
		return reaper.Handle(ctx, event)
	})
}
