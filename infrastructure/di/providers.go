package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/application/services"
	"dataworkspace/infrastructure/config"
	"dataworkspace/infrastructure/messaging/eventbridge"
	"dataworkspace/infrastructure/messaging/logpublisher"
	"dataworkspace/infrastructure/persistence/decorators"
	"dataworkspace/infrastructure/persistence/memory"
	"dataworkspace/infrastructure/persistence/neo4jstore"
	"dataworkspace/infrastructure/persistence/sqlstore"
	"dataworkspace/interfaces/http/rest"
	"dataworkspace/interfaces/http/rest/middleware"
	"dataworkspace/pkg/auth"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	metricsNamespace = "dataworkspace"
	rateLimitWindow  = time.Minute
	shutdownTimeout  = 10 * time.Second
)

// Limiters holds the two request limiters the authenticator consults
type Limiters struct {
	IP     auth.RateLimiter
	Caller auth.RateLimiter
}

// ProvideLogger creates a new logger instance honoring the configured level
func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() || cfg.IsLambda {
		zapCfg = zap.NewProductionConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = logger.Sync()
	}
	return logger, cleanup, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetricsExporter creates the CloudWatch exporter for Lambda deployments.
// Servers are scraped through /metrics and get a nil exporter.
func ProvideMetricsExporter(awsCfg aws.Config, cfg *config.Config, metrics *observability.Collector) *observability.CloudWatchExporter {
	if !cfg.IsLambda || !cfg.EnableMetrics {
		return nil
	}
	namespace := cfg.MetricsNamespace
	if namespace == "" {
		namespace = fmt.Sprintf("DataWorkspace/%s", cfg.Environment)
	}
	return observability.NewCloudWatchExporter(ProvideCloudWatchClient(awsCfg), namespace, metrics)
}

// ProvideDatabase opens the relational pool shared by the catalog and both
// relational stores
func ProvideDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlstore.Database, func(), error) {
	db, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:       cfg.RelationalDriver,
		DSN:          cfg.DSN(),
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close relational store", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// ProvideCatalog creates the session and dataset catalog
func ProvideCatalog(db *sqlstore.Database) ports.Catalog {
	return sqlstore.NewCatalog(db)
}

// ProvideTabularStore creates the instrumented tabular adapter
func ProvideTabularStore(db *sqlstore.Database, metrics *observability.Collector, logger *zap.Logger) ports.TabularStore {
	return decorators.NewInstrumentedTabularStore(sqlstore.NewTabularStore(db, logger), metrics)
}

// ProvideRelationalExecutor creates the raw relational query executor
func ProvideRelationalExecutor(db *sqlstore.Database) ports.RelationalExecutor {
	return sqlstore.NewExecutor(db)
}

// ProvideGraphStore selects the graph backend and wraps it in the circuit breaker
// and instrumentation decorators
func ProvideGraphStore(
	ctx context.Context,
	cfg *config.Config,
	metrics *observability.Collector,
	logger *zap.Logger,
) (ports.GraphStore, func(), error) {
	var (
		store   ports.GraphStore
		cleanup = func() {}
	)

	switch cfg.GraphBackend {
	case "neo4j":
		runner, err := neo4jstore.NewDriverRunner(ctx, neo4jstore.Options{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUser,
			Password: cfg.Neo4jPassword,
			Database: cfg.Neo4jDatabase,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		store = neo4jstore.NewGraphStore(runner, logger)
		cleanup = func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := runner.Close(closeCtx); err != nil {
				logger.Warn("Failed to close graph store", zap.Error(err))
			}
		}
	case "memory", "":
		store = memory.NewGraphStore()
	default:
		return nil, nil, fmt.Errorf("unsupported graph backend %q", cfg.GraphBackend)
	}

	if cfg.GraphBreakerEnabled {
		store = decorators.NewGraphStoreBreaker(store, decorators.DefaultBreakerConfig("graph-store"), metrics, logger)
	}
	return decorators.NewInstrumentedGraphStore(store, metrics), cleanup, nil
}

// ProvideEventPublisher publishes to EventBridge when a bus is configured and
// otherwise logs events
func ProvideEventPublisher(awsCfg aws.Config, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return logpublisher.NewPublisher(logger)
	}
	return eventbridge.NewPublisher(ProvideEventBridgeClient(awsCfg), cfg.EventBusName, logger)
}

// ProvideQueryLimits bounds row and node reads
func ProvideQueryLimits(cfg *config.Config) services.QueryLimits {
	return services.QueryLimits{Default: cfg.QueryDefaultLimit, Max: cfg.QueryMaxLimit}
}

// ProvideExportLimits bounds the size of export bundles
func ProvideExportLimits(cfg *config.Config) services.ExportLimits {
	return services.ExportLimits{MaxRows: cfg.ExportMaxRows, MaxNodes: cfg.ExportMaxNodes}
}

// ProvideRegistry creates the session and dataset registry
func ProvideRegistry(
	catalog ports.Catalog,
	tabular ports.TabularStore,
	graph ports.GraphStore,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.Registry {
	return services.NewRegistry(catalog, tabular, graph, publisher, metrics, logger)
}

// ProvideTabularService creates the tabular dataset service
func ProvideTabularService(
	registry *services.Registry,
	store ports.TabularStore,
	limits services.QueryLimits,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.TabularService {
	return services.NewTabularService(registry, store, limits, metrics, logger)
}

// ProvideGraphService creates the graph dataset service
func ProvideGraphService(
	registry *services.Registry,
	store ports.GraphStore,
	limits services.QueryLimits,
	logger *zap.Logger,
) *services.GraphService {
	return services.NewGraphService(registry, store, limits, logger)
}

// ProvideQueryRouter creates the raw query router
func ProvideQueryRouter(
	registry *services.Registry,
	relational ports.RelationalExecutor,
	graph ports.GraphStore,
	logger *zap.Logger,
) *services.QueryRouter {
	return services.NewQueryRouter(registry, relational, graph, logger)
}

// ProvideExportService creates the session export service
func ProvideExportService(
	registry *services.Registry,
	tabular ports.TabularStore,
	graph ports.GraphStore,
	limits services.ExportLimits,
	metrics *observability.Collector,
	logger *zap.Logger,
) *services.ExportService {
	return services.NewExportService(registry, tabular, graph, limits, metrics, logger)
}

// ProvideAPIKeyValidator creates the API key validator
func ProvideAPIKeyValidator(cfg *config.Config) *auth.APIKeyValidator {
	return auth.NewAPIKeyValidator(cfg.AllowedKeys)
}

// ProvideJWTValidator creates a bearer token validator when a secret is
// configured. A nil validator disables bearer tokens.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
	})
}

// ProvideLimiters creates the per-IP and per-caller limiters. A configured
// rate limit table moves the counters to DynamoDB so they hold across instances.
func ProvideLimiters(awsCfg aws.Config, cfg *config.Config) Limiters {
	if cfg.RateLimitPerMinute <= 0 {
		return Limiters{}
	}

	var limiter auth.RateLimiter
	if cfg.RateLimitTable != "" {
		limiter = auth.NewDistributedRateLimiter(ProvideDynamoDBClient(awsCfg), cfg.RateLimitTable, cfg.RateLimitPerMinute, rateLimitWindow)
	} else {
		limiter = auth.NewSlidingWindowLimiter(cfg.RateLimitPerMinute, rateLimitWindow)
	}
	return Limiters{
		IP:     auth.NewPrefixedLimiter(limiter, "ip"),
		Caller: auth.NewPrefixedLimiter(limiter, "caller"),
	}
}

// ProvideErrorHandler creates the HTTP error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.Debug)
}

// ProvideAuthenticator creates the authentication middleware
func ProvideAuthenticator(
	apiKeys *auth.APIKeyValidator,
	jwt *auth.JWTValidator,
	limiters Limiters,
	cfg *config.Config,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *middleware.Authenticator {
	return middleware.NewAuthenticator(apiKeys, jwt, limiters.IP, limiters.Caller, cfg.RateLimitPerMinute, errorHandler, logger)
}

// ProvideRouterConfig maps configuration onto the HTTP surface toggles
func ProvideRouterConfig(cfg *config.Config) rest.RouterConfig {
	return rest.RouterConfig{
		EnableCORS:    cfg.EnableCORS,
		CORSOrigins:   cfg.CORSOrigins,
		EnableMetrics: cfg.EnableMetrics,
	}
}

// ProvideHandler builds the HTTP handler serving the whole API
func ProvideHandler(
	registry *services.Registry,
	tabular *services.TabularService,
	graphs *services.GraphService,
	queries *services.QueryRouter,
	exports *services.ExportService,
	authenticator *middleware.Authenticator,
	errorHandler *pkgerrors.ErrorHandler,
	metrics *observability.Collector,
	routerConfig rest.RouterConfig,
	logger *zap.Logger,
) http.Handler {
	return rest.NewRouter(registry, tabular, graphs, queries, exports, authenticator, errorHandler, metrics, routerConfig, logger).Setup()
}
