package rest

import (
	"context"
	"net/http"
	"time"

	"dataworkspace/application/services"
	"dataworkspace/interfaces/http/rest/handlers"
	"dataworkspace/interfaces/http/rest/middleware"
	"dataworkspace/pkg/common"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const readinessTimeout = 3 * time.Second

// RouterConfig holds the HTTP surface toggles
type RouterConfig struct {
	EnableCORS    bool
	CORSOrigins   []string
	EnableMetrics bool
}

// Router creates and configures the HTTP router
type Router struct {
	registry *services.Registry
	tabular  *services.TabularService
	graphs   *services.GraphService
	queries  *services.QueryRouter
	exports  *services.ExportService
	auth     *middleware.Authenticator
	errors   *pkgerrors.ErrorHandler
	metrics  *observability.Collector
	config   RouterConfig
	logger   *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	registry *services.Registry,
	tabular *services.TabularService,
	graphs *services.GraphService,
	queries *services.QueryRouter,
	exports *services.ExportService,
	authenticator *middleware.Authenticator,
	errorHandler *pkgerrors.ErrorHandler,
	metrics *observability.Collector,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		registry: registry,
		tabular:  tabular,
		graphs:   graphs,
		queries:  queries,
		exports:  exports,
		auth:     authenticator,
		errors:   errorHandler,
		metrics:  metrics,
		config:   config,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.errors.Middleware)
	if rt.config.EnableMetrics && rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.config.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", handlers.ExportPartialHeader, "Content-Disposition"},
			MaxAge:         300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.config.EnableMetrics && rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	sessions := handlers.NewSessionHandler(rt.registry, rt.errors, rt.logger)
	tabular := handlers.NewTabularHandler(rt.registry, rt.tabular, rt.errors, rt.logger)
	graphs := handlers.NewGraphHandler(rt.registry, rt.graphs, rt.errors, rt.logger)
	queries := handlers.NewQueryHandler(rt.queries, rt.errors, rt.logger)
	exports := handlers.NewExportHandler(rt.exports, rt.errors, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.auth.Middleware)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessions.CreateSession)
			r.Get("/", sessions.ListSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessions.GetSession)
				r.Delete("/", sessions.DeleteSession)
				r.Post("/query", queries.Execute)
				r.Get("/export", exports.ExportSession)

				r.Route("/datasets/tabular", func(r chi.Router) {
					r.Post("/", tabular.CreateDataset)
					r.Get("/", tabular.ListDatasets)
					r.Get("/{datasetID}", tabular.GetDataset)
					r.Delete("/{datasetID}", tabular.DeleteDataset)
					r.Post("/{datasetID}/records", tabular.InsertRecords)
					r.Get("/{datasetID}/records", tabular.QueryRecords)
				})

				r.Route("/datasets/graph", func(r chi.Router) {
					r.Post("/", graphs.CreateDataset)
					r.Get("/", graphs.ListDatasets)
					r.Get("/{datasetID}", graphs.GetDataset)
					r.Delete("/{datasetID}", graphs.DeleteDataset)
					r.Post("/{datasetID}/nodes", graphs.CreateNode)
					r.Get("/{datasetID}/nodes", graphs.ListNodes)
					r.Get("/{datasetID}/nodes/{nodeID}/neighbors", graphs.Neighbors)
					r.Post("/{datasetID}/edges", graphs.CreateEdge)
					r.Post("/{datasetID}/algorithms/shortest_path", graphs.ShortestPath)
					r.Get("/{datasetID}/algorithms/shortest_path", graphs.ShortestPath)
				})
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, common.StatusResponse{Status: "healthy"})
}

// readinessCheck pings the catalog and both stores
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readinessTimeout)
	defer cancel()

	if err := rt.registry.Ready(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		common.RespondJSON(w, http.StatusServiceUnavailable, common.StatusResponse{Status: "unavailable"})
		return
	}
	common.RespondJSON(w, http.StatusOK, common.StatusResponse{Status: "ready"})
}
