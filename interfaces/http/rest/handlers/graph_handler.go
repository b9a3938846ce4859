package handlers

import (
	"net/http"

	"dataworkspace/application/services"
	"dataworkspace/domain/core/entities"
	"dataworkspace/pkg/common"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GraphHandler handles graph dataset, node and relationship requests
type GraphHandler struct {
	registry *services.Registry
	graphs   *services.GraphService
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(
	registry *services.Registry,
	graphs *services.GraphService,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *GraphHandler {
	return &GraphHandler{
		registry: registry,
		graphs:   graphs,
		errors:   errorHandler,
		logger:   logger,
	}
}

// CreateGraphDatasetRequest represents the request body for creating a graph dataset
type CreateGraphDatasetRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// CreateNodeRequest represents the request body for creating a node
type CreateNodeRequest struct {
	Label      string                 `json:"label" validate:"required"`
	Properties map[string]interface{} `json:"properties"`
}

// CreateEdgeRequest represents the request body for creating a relationship
type CreateEdgeRequest struct {
	FromNodeID *int64                 `json:"from_node_id" validate:"required"`
	ToNodeID   *int64                 `json:"to_node_id" validate:"required"`
	Type       string                 `json:"type" validate:"required"`
	Properties map[string]interface{} `json:"properties"`
}

// CreateDataset handles POST /sessions/{sessionID}/datasets/graph
func (h *GraphHandler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req CreateGraphDatasetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	dataset, err := h.registry.CreateGraphDataset(r.Context(), chi.URLParam(r, "sessionID"), caller, req.Name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, dataset)
}

// ListDatasets handles GET /sessions/{sessionID}/datasets/graph
func (h *GraphHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	listDatasets(w, r, h.registry, h.errors, entities.DatasetKindGraph)
}

// GetDataset handles GET /sessions/{sessionID}/datasets/graph/{datasetID}
func (h *GraphHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	getDataset(w, r, h.registry, h.errors, entities.DatasetKindGraph)
}

// DeleteDataset handles DELETE /sessions/{sessionID}/datasets/graph/{datasetID}
func (h *GraphHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	deleteDataset(w, r, h.registry, h.errors, entities.DatasetKindGraph)
}

// CreateNode handles POST .../datasets/graph/{datasetID}/nodes
func (h *GraphHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req CreateNodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	node, err := h.graphs.CreateNode(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller, req.Label, req.Properties)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, node)
}

// ListNodes handles GET .../datasets/graph/{datasetID}/nodes?label=&limit=
func (h *GraphHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	limit, err := common.QueryInt(r, "limit", 0)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	nodes, err := h.graphs.ListNodes(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller, r.URL.Query().Get("label"), limit)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondList(w, nodes, len(nodes), nil)
}

// CreateEdge handles POST .../datasets/graph/{datasetID}/edges
func (h *GraphHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req CreateEdgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	rel, err := h.graphs.CreateRelationship(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller,
		*req.FromNodeID, *req.ToNodeID, req.Type, req.Properties)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, rel)
}

// Neighbors handles GET .../datasets/graph/{datasetID}/nodes/{nodeID}/neighbors
func (h *GraphHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	nodeID, err := pathInt64(r, "nodeID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	neighbors, err := h.graphs.Neighbors(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller, nodeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondList(w, neighbors, len(neighbors), nil)
}

// ShortestPath handles .../datasets/graph/{datasetID}/algorithms/shortest_path?from_id=&to_id=
func (h *GraphHandler) ShortestPath(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	fromID, err := common.QueryInt64(r, "from_id")
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}
	toID, err := common.QueryInt64(r, "to_id")
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	path, err := h.graphs.ShortestPath(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller, fromID, toID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, path)
}
