package handlers

import (
	"net/http"

	"dataworkspace/application/services"
	"dataworkspace/pkg/common"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// QueryHandler handles raw query passthrough
type QueryHandler struct {
	router *services.QueryRouter
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(router *services.QueryRouter, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		router: router,
		errors: errorHandler,
		logger: logger,
	}
}

// ExecuteQueryRequest is a raw statement and its kind: relational (sql) or
// graph-pattern (cypher). Params is an array for positional or an object for
// named parameters.
type ExecuteQueryRequest struct {
	Query  string      `json:"query"`
	Type   string      `json:"type"`
	Params interface{} `json:"params,omitempty"`
}

// Execute handles POST /sessions/{sessionID}/query
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req ExecuteQueryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := h.router.Execute(r.Context(), chi.URLParam(r, "sessionID"), caller, services.QueryRequest{
		Query:  req.Query,
		Kind:   req.Type,
		Params: plainNumbers(req.Params),
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
