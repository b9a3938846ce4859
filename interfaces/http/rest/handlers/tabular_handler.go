package handlers

import (
	"net/http"
	"sort"
	"strings"

	"dataworkspace/application/ports"
	"dataworkspace/application/services"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/core/valueobjects"
	"dataworkspace/pkg/common"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TabularHandler handles tabular dataset and record requests
type TabularHandler struct {
	registry *services.Registry
	rows     *services.TabularService
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewTabularHandler creates a new tabular handler
func NewTabularHandler(
	registry *services.Registry,
	rows *services.TabularService,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *TabularHandler {
	return &TabularHandler{
		registry: registry,
		rows:     rows,
		errors:   errorHandler,
		logger:   logger,
	}
}

// CreateTabularDatasetRequest defines a dataset by name and an ordered object of
// column name to type tag
type CreateTabularDatasetRequest struct {
	Name   string                  `json:"name" validate:"required,max=200"`
	Schema valueobjects.ColumnDefs `json:"schema_def"`
}

// InsertRecordsRequest carries the rows of one batch insert
type InsertRecordsRequest struct {
	Rows []ports.Row `json:"rows"`
}

// InsertRecordsResponse reports how many rows were written
type InsertRecordsResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CreateDataset handles POST /sessions/{sessionID}/datasets/tabular
func (h *TabularHandler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req CreateTabularDatasetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	dataset, err := h.registry.CreateTabularDataset(r.Context(), chi.URLParam(r, "sessionID"), caller, req.Name, req.Schema)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, dataset)
}

// ListDatasets handles GET /sessions/{sessionID}/datasets/tabular
func (h *TabularHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	listDatasets(w, r, h.registry, h.errors, entities.DatasetKindTabular)
}

// GetDataset handles GET /sessions/{sessionID}/datasets/tabular/{datasetID}
func (h *TabularHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	getDataset(w, r, h.registry, h.errors, entities.DatasetKindTabular)
}

// DeleteDataset handles DELETE /sessions/{sessionID}/datasets/tabular/{datasetID}
func (h *TabularHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	deleteDataset(w, r, h.registry, h.errors, entities.DatasetKindTabular)
}

// InsertRecords handles POST /sessions/{sessionID}/datasets/tabular/{datasetID}/records
func (h *TabularHandler) InsertRecords(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req InsertRecordsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	count, err := h.rows.InsertRows(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller, req.Rows)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, InsertRecordsResponse{Status: "success", Count: count})
}

// QueryRecords handles GET /sessions/{sessionID}/datasets/tabular/{datasetID}/records.
// Query parameters other than limit, offset, sort and select are equality filters.
func (h *TabularHandler) QueryRecords(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	page, err := common.ExtractPaginationParams(r)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return
	}

	query := r.URL.Query()
	req := services.RowsRequest{
		Sort:    query.Get("sort"),
		Limit:   page.Limit,
		Offset:  page.Offset,
		Filters: recordFilters(r),
	}
	if sel := query.Get("select"); sel != "" {
		for _, col := range strings.Split(sel, ",") {
			req.Columns = append(req.Columns, strings.TrimSpace(col))
		}
	}

	rows, err := h.rows.QueryRows(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller, req)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondList(w, rows, len(rows), nil)
}

// recordFilters turns non-reserved query parameters into equality filters in a
// stable order
func recordFilters(r *http.Request) []ports.Filter {
	query := r.URL.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		if !valueobjects.IsQueryControl(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var filters []ports.Filter
	for _, key := range keys {
		for _, value := range query[key] {
			filters = append(filters, ports.Filter{Column: key, Value: value})
		}
	}
	return filters
}

func listDatasets(w http.ResponseWriter, r *http.Request, registry *services.Registry, errorHandler *pkgerrors.ErrorHandler, kind entities.DatasetKind) {
	caller, err := callerID(r)
	if err != nil {
		errorHandler.Handle(w, r, err)
		return
	}
	datasets, err := registry.ListDatasets(r.Context(), chi.URLParam(r, "sessionID"), caller, kind)
	if err != nil {
		errorHandler.Handle(w, r, err)
		return
	}
	common.RespondList(w, datasets, len(datasets), nil)
}

func getDataset(w http.ResponseWriter, r *http.Request, registry *services.Registry, errorHandler *pkgerrors.ErrorHandler, kind entities.DatasetKind) {
	caller, err := callerID(r)
	if err != nil {
		errorHandler.Handle(w, r, err)
		return
	}
	dataset, err := registry.ResolveDataset(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller, kind)
	if err != nil {
		errorHandler.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, dataset)
}

func deleteDataset(w http.ResponseWriter, r *http.Request, registry *services.Registry, errorHandler *pkgerrors.ErrorHandler, kind entities.DatasetKind) {
	caller, err := callerID(r)
	if err != nil {
		errorHandler.Handle(w, r, err)
		return
	}
	if err := registry.DeleteDataset(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "datasetID"), caller, kind); err != nil {
		errorHandler.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
