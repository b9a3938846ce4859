package di

import "github.com/google/wire"

// InfrastructureSet provides logging, metrics, AWS clients and the stores
var InfrastructureSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideMetricsExporter,
	ProvideAWSConfig,
	ProvideDatabase,
	ProvideCatalog,
	ProvideTabularStore,
	ProvideRelationalExecutor,
	ProvideGraphStore,
	ProvideEventPublisher,
)

// ServiceSet provides the application services
var ServiceSet = wire.NewSet(
	ProvideQueryLimits,
	ProvideExportLimits,
	ProvideRegistry,
	ProvideTabularService,
	ProvideGraphService,
	ProvideQueryRouter,
	ProvideExportService,
)

// HTTPSet provides authentication and the router
var HTTPSet = wire.NewSet(
	ProvideAPIKeyValidator,
	ProvideJWTValidator,
	ProvideLimiters,
	ProvideErrorHandler,
	ProvideAuthenticator,
	ProvideRouterConfig,
	ProvideHandler,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	InfrastructureSet,
	ServiceSet,
	HTTPSet,
	NewContainer,
)
