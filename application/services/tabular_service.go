package services

import (
	"context"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/core/valueobjects"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/observability"

	"go.uber.org/zap"
)

// QueryLimits bounds the page size of row and node reads
type QueryLimits struct {
	Default int
	Max     int
}

// RowsRequest is a read against one tabular dataset. Sort uses the "column:dir" form.
// A zero Limit means the default page size.
type RowsRequest struct {
	Columns []string
	Filters []ports.Filter
	Sort    string
	Limit   int
	Offset  int
}

// TabularService runs row operations on tabular datasets after the registry has
// resolved ownership
type TabularService struct {
	registry *Registry
	store    ports.TabularStore
	limits   QueryLimits
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewTabularService creates a new tabular service
func NewTabularService(
	registry *Registry,
	store ports.TabularStore,
	limits QueryLimits,
	metrics *observability.Collector,
	logger *zap.Logger,
) *TabularService {
	return &TabularService{
		registry: registry,
		store:    store,
		limits:   limits,
		metrics:  metrics,
		logger:   logger,
	}
}

// InsertRows appends rows to the dataset in one all-or-nothing batch
func (s *TabularService) InsertRows(ctx context.Context, sessionID, datasetID, callerID string, rows []ports.Row) (int, error) {
	dataset, err := s.registry.ResolveDataset(ctx, sessionID, datasetID, callerID, entities.DatasetKindTabular)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, pkgerrors.NewValidationError("rows must not be empty")
	}

	inserted, err := s.store.InsertRows(ctx, dataset.ID(), dataset.Schema(), rows)
	if err != nil {
		return 0, storeError(err, storeRelational, "insert_rows", dataset.ID())
	}

	s.metrics.RowsAdded(inserted)
	s.logger.Debug("Rows inserted",
		zap.String("dataset_id", dataset.ID().String()),
		zap.Int("rows", inserted),
	)
	return inserted, nil
}

// QueryRows reads a page of rows. Unknown columns in the projection, filters or sort
// are validation errors.
func (s *TabularService) QueryRows(ctx context.Context, sessionID, datasetID, callerID string, req RowsRequest) ([]ports.Row, error) {
	dataset, err := s.registry.ResolveDataset(ctx, sessionID, datasetID, callerID, entities.DatasetKindTabular)
	if err != nil {
		return nil, err
	}

	limit, err := s.limits.resolve(req.Limit)
	if err != nil {
		return nil, err
	}
	if req.Offset < 0 {
		return nil, pkgerrors.NewValidationError("offset must not be negative")
	}
	sortSpec, err := valueobjects.ParseSort(req.Sort)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	rows, err := s.store.QueryRows(ctx, dataset.ID(), dataset.Schema(), ports.RowQuery{
		Columns: req.Columns,
		Filters: req.Filters,
		Sort:    sortSpec,
		Limit:   limit,
		Offset:  req.Offset,
	})
	if err != nil {
		return nil, storeError(err, storeRelational, "query_rows", dataset.ID())
	}
	return rows, nil
}

// resolve applies the default page size and caps it at the maximum
func (l QueryLimits) resolve(requested int) (int, error) {
	if requested < 0 {
		return 0, pkgerrors.NewValidationError("limit must not be negative")
	}
	if requested == 0 {
		requested = l.Default
	}
	if l.Max > 0 && requested > l.Max {
		requested = l.Max
	}
	return requested, nil
}
