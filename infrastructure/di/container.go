package di

import (
	"context"
	"fmt"
	"net/http"

	"dataworkspace/application/services"
	"dataworkspace/infrastructure/config"
	"dataworkspace/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *services.Registry
	Metrics  *observability.Collector
	Exporter *observability.CloudWatchExporter
	Handler  http.Handler

	shutdownFunctions []func() error
}

// NewContainer assembles the container from its wired parts
func NewContainer(
	cfg *config.Config,
	logger *zap.Logger,
	registry *services.Registry,
	metrics *observability.Collector,
	exporter *observability.CloudWatchExporter,
	handler http.Handler,
) *Container {
	return &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  metrics,
		Exporter: exporter,
		Handler:  handler,
	}
}

// FlushMetrics pushes the collector to CloudWatch when an exporter is wired.
// Failures are logged, never returned to the invocation.
func (c *Container) FlushMetrics(ctx context.Context) {
	if err := c.Exporter.Flush(ctx); err != nil {
		c.Logger.Warn("Failed to flush metrics", zap.Error(err))
	}
}

// AddShutdownFunction adds a function to be called during container shutdown
func (c *Container) AddShutdownFunction(fn func() error) {
	c.shutdownFunctions = append(c.shutdownFunctions, fn)
}

// Shutdown runs the shutdown functions in reverse registration order
func (c *Container) Shutdown(ctx context.Context) error {
	var failures int
	for i := len(c.shutdownFunctions) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.shutdownFunctions[i](); err != nil {
			failures++
			c.Logger.Error("Error during shutdown", zap.Error(err))
		}
	}
	c.shutdownFunctions = nil

	if failures > 0 {
		return fmt.Errorf("shutdown completed with %d errors", failures)
	}
	return nil
}

// Build wires a container and registers the provider cleanups for Shutdown
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	container, cleanup, err := InitializeContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	container.AddShutdownFunction(func() error {
		cleanup()
		return nil
	})
	return container, nil
}
