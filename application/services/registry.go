package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/core/valueobjects"
	"dataworkspace/domain/events"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/observability"

	"go.uber.org/zap"
)

const (
	storeCatalog    = "catalog"
	storeRelational = "relational"
	storeGraph      = "graph"
)

// ErrDatasetStillRegistered is the cause attached when an orphan release names a
// dataset whose record still exists
var ErrDatasetStillRegistered = errors.New("dataset is still registered")

// OrphanedResource names a dataset whose physical resource could not be released
type OrphanedResource struct {
	DatasetID string `json:"dataset_id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
}

// DeletionReport is the outcome of deleting a session
type DeletionReport struct {
	SessionID       string             `json:"session_id"`
	DatasetsDeleted int                `json:"datasets_deleted"`
	Orphaned        []OrphanedResource `json:"orphaned,omitempty"`
}

// Registry owns session and dataset identities and is the ownership gate in front
// of every store. A session that is missing and a session owned by someone else
// produce the same NotFound.
type Registry struct {
	catalog   ports.Catalog
	tabular   ports.TabularStore
	graph     ports.GraphStore
	publisher ports.EventPublisher
	metrics   *observability.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistry creates a new registry
func NewRegistry(
	catalog ports.Catalog,
	tabular ports.TabularStore,
	graph ports.GraphStore,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Registry {
	return &Registry{
		catalog:   catalog,
		tabular:   tabular,
		graph:     graph,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateSession creates a session owned by callerID
func (r *Registry) CreateSession(ctx context.Context, callerID, name, description string) (*entities.Session, error) {
	session, err := entities.NewSession(callerID, name, description, r.now())
	if err != nil {
		return nil, err
	}
	if err := r.catalog.CreateSession(ctx, session); err != nil {
		return nil, pkgerrors.Classify(err, storeCatalog, "create_session")
	}

	r.metrics.SessionCreated()
	r.publish(ctx, session.PullEvents())
	r.logger.Info("Session created", zap.String("session_id", session.ID()))
	return session, nil
}

// ListSessions returns the caller's sessions, oldest first
func (r *Registry) ListSessions(ctx context.Context, callerID string) ([]*entities.Session, error) {
	if callerID == "" {
		return []*entities.Session{}, nil
	}
	sessions, err := r.catalog.ListSessionsByOwner(ctx, callerID)
	if err != nil {
		return nil, pkgerrors.Classify(err, storeCatalog, "list_sessions")
	}
	return sessions, nil
}

// ResolveSession returns the session when it exists and callerID owns it
func (r *Registry) ResolveSession(ctx context.Context, sessionID, callerID string) (*entities.Session, error) {
	if sessionID == "" || callerID == "" {
		return nil, pkgerrors.NewNotFoundError("session")
	}
	session, err := r.catalog.GetSession(ctx, sessionID)
	if errors.Is(err, ports.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError("session")
	}
	if err != nil {
		return nil, pkgerrors.Classify(err, storeCatalog, "get_session")
	}
	if !session.OwnedBy(callerID) {
		return nil, pkgerrors.NewNotFoundError("session")
	}
	return session, nil
}

// ResolveDataset returns the dataset of the given kind when it lives in an owned
// session. Ids that do not parse are reported the same way as unknown ids.
func (r *Registry) ResolveDataset(ctx context.Context, sessionID, datasetID, callerID string, kind entities.DatasetKind) (*entities.Dataset, error) {
	if _, err := r.ResolveSession(ctx, sessionID, callerID); err != nil {
		return nil, err
	}
	id, err := valueobjects.ParseDatasetID(datasetID)
	if err != nil {
		return nil, pkgerrors.NewNotFoundError("dataset")
	}

	dataset, err := r.catalog.GetDataset(ctx, sessionID, kind, id)
	if errors.Is(err, ports.ErrRecordNotFound) {
		return nil, pkgerrors.NewNotFoundError("dataset")
	}
	if err != nil {
		return nil, pkgerrors.Classify(err, storeCatalog, "get_dataset")
	}
	if dataset.SessionID() != sessionID || dataset.Kind() != kind || !dataset.ID().Equals(id) {
		return nil, pkgerrors.NewNotFoundError("dataset")
	}
	return dataset, nil
}

// ListDatasets returns the datasets of one kind in an owned session
func (r *Registry) ListDatasets(ctx context.Context, sessionID, callerID string, kind entities.DatasetKind) ([]*entities.Dataset, error) {
	if _, err := r.ResolveSession(ctx, sessionID, callerID); err != nil {
		return nil, err
	}
	datasets, err := r.catalog.ListDatasets(ctx, sessionID, kind)
	if err != nil {
		return nil, pkgerrors.Classify(err, storeCatalog, "list_datasets")
	}
	return datasets, nil
}

// CreateTabularDataset provisions the dataset's table and then records the dataset.
// A failed record write drops the new table again, so a record never exists
// without its table.
func (r *Registry) CreateTabularDataset(ctx context.Context, sessionID, callerID, name string, defs valueobjects.ColumnDefs) (*entities.Dataset, error) {
	if _, err := r.ResolveSession(ctx, sessionID, callerID); err != nil {
		return nil, err
	}
	schema, err := valueobjects.NewSchema(defs)
	if err != nil {
		return nil, pkgerrors.NewSchemaError(err.Error())
	}
	dataset, err := entities.NewTabularDataset(sessionID, name, schema, r.now())
	if err != nil {
		return nil, err
	}

	if err := r.tabular.CreateTable(ctx, dataset.ID(), schema); err != nil {
		if pkgerrors.IsSchema(err) || pkgerrors.IsValidation(err) {
			return nil, err
		}
		r.logger.Error("Failed to create dataset table",
			zap.String("dataset_id", dataset.ID().String()),
			zap.Error(err),
		)
		return nil, pkgerrors.NewConflictOnCreateError("dataset", err).WithDetail("dataset_id", dataset.ID().String())
	}

	if err := r.catalog.CreateDataset(ctx, dataset); err != nil {
		if dropErr := r.tabular.DropTable(ctx, dataset.ID()); dropErr != nil {
			r.publish(ctx, []events.DomainEvent{r.orphaned(dataset, "create_dataset", dropErr)})
		}
		return nil, pkgerrors.NewConflictOnCreateError("dataset", err).WithDetail("dataset_id", dataset.ID().String())
	}

	r.metrics.DatasetCreated(string(entities.DatasetKindTabular))
	r.publish(ctx, dataset.PullEvents())
	r.logger.Info("Tabular dataset created",
		zap.String("session_id", sessionID),
		zap.String("dataset_id", dataset.ID().String()),
		zap.Int("columns", schema.Len()),
	)
	return dataset, nil
}

// CreateGraphDataset records a graph dataset. Its partition needs no provisioning:
// it exists as soon as a node carries its label.
func (r *Registry) CreateGraphDataset(ctx context.Context, sessionID, callerID, name string) (*entities.Dataset, error) {
	if _, err := r.ResolveSession(ctx, sessionID, callerID); err != nil {
		return nil, err
	}
	dataset, err := entities.NewGraphDataset(sessionID, name, r.now())
	if err != nil {
		return nil, err
	}
	if err := r.catalog.CreateDataset(ctx, dataset); err != nil {
		return nil, pkgerrors.Classify(err, storeCatalog, "create_dataset")
	}

	r.metrics.DatasetCreated(string(entities.DatasetKindGraph))
	r.publish(ctx, dataset.PullEvents())
	r.logger.Info("Graph dataset created",
		zap.String("session_id", sessionID),
		zap.String("dataset_id", dataset.ID().String()),
	)
	return dataset, nil
}

// DeleteDataset releases the dataset's physical resource and then removes its
// record. Both steps are idempotent so a failed delete can be retried.
func (r *Registry) DeleteDataset(ctx context.Context, sessionID, datasetID, callerID string, kind entities.DatasetKind) error {
	dataset, err := r.ResolveDataset(ctx, sessionID, datasetID, callerID, kind)
	if err != nil {
		return err
	}

	if err := r.release(ctx, dataset); err != nil {
		return storeError(err, storeFor(kind), "release_dataset", dataset.ID())
	}
	if err := r.catalog.DeleteDataset(ctx, dataset.ID()); err != nil {
		return pkgerrors.Classify(err, storeCatalog, "delete_dataset")
	}

	dataset.MarkDeleted(r.now())
	r.metrics.DatasetDeleted(string(kind))
	r.publish(ctx, dataset.PullEvents())
	r.logger.Info("Dataset deleted",
		zap.String("session_id", sessionID),
		zap.String("dataset_id", dataset.ID().String()),
		zap.String("kind", string(kind)),
	)
	return nil
}

// DeleteSession releases every dataset's physical resource and then removes the
// session with all its dataset records in one transaction. Resources that fail to
// release do not block the delete; they are returned in the report, logged, and
// published as orphan events once the records are gone.
func (r *Registry) DeleteSession(ctx context.Context, sessionID, callerID string) (*DeletionReport, error) {
	session, err := r.ResolveSession(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	datasets, err := r.catalog.ListDatasets(ctx, sessionID, "")
	if err != nil {
		return nil, pkgerrors.Classify(err, storeCatalog, "list_datasets")
	}

	report := &DeletionReport{SessionID: sessionID}
	var orphans []events.DomainEvent
	for _, dataset := range datasets {
		if err := r.release(ctx, dataset); err != nil {
			orphans = append(orphans, r.orphaned(dataset, "delete_session", err))
			report.Orphaned = append(report.Orphaned, OrphanedResource{
				DatasetID: dataset.ID().String(),
				Kind:      string(dataset.Kind()),
				Name:      dataset.Name(),
			})
		}
	}

	if err := r.catalog.DeleteSession(ctx, sessionID); err != nil {
		return nil, pkgerrors.Classify(err, storeCatalog, "delete_session")
	}
	report.DatasetsDeleted = len(datasets)
	r.publish(ctx, orphans)

	now := r.now()
	for _, dataset := range datasets {
		dataset.MarkDeleted(now)
		r.metrics.DatasetDeleted(string(dataset.Kind()))
		r.publish(ctx, dataset.PullEvents())
	}
	session.MarkDeleted(len(datasets), now)
	r.metrics.SessionDeleted()
	r.publish(ctx, session.PullEvents())

	r.logger.Info("Session deleted",
		zap.String("session_id", sessionID),
		zap.Int("datasets", len(datasets)),
		zap.Int("orphaned", len(report.Orphaned)),
	)
	return report, nil
}

// ReleaseOrphan retries the release of a physical resource whose dataset record is
// already gone. An id that is still registered anywhere, under any session or kind,
// is refused with ErrDatasetStillRegistered as the cause; it must be deleted through
// DeleteDataset so ownership is checked.
func (r *Registry) ReleaseOrphan(ctx context.Context, sessionID, datasetID string, kind entities.DatasetKind) error {
	if !kind.Valid() {
		return pkgerrors.NewValidationError(fmt.Sprintf("unknown dataset kind %q", kind))
	}
	id, err := valueobjects.ParseDatasetID(datasetID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid dataset id").WithDetail("dataset_id", datasetID)
	}

	registered, err := r.catalog.DatasetRegistered(ctx, id)
	if err != nil {
		return pkgerrors.Classify(err, storeCatalog, "dataset_registered")
	}
	if registered {
		return pkgerrors.NewValidationError("dataset is still registered").
			WithCode("STILL_REGISTERED").
			WithDetail("dataset_id", datasetID).
			WithCause(ErrDatasetStillRegistered)
	}

	dataset := entities.ReconstructDataset(id, sessionID, "", kind, valueobjects.Schema{}, r.now())
	if err := r.release(ctx, dataset); err != nil {
		return storeError(err, storeFor(kind), "release_orphan", id)
	}
	r.logger.Info("Orphaned resource released",
		zap.String("session_id", sessionID),
		zap.String("dataset_id", datasetID),
		zap.String("kind", string(kind)),
	)
	return nil
}

// Ready checks every backing store
func (r *Registry) Ready(ctx context.Context) error {
	if err := r.catalog.Ping(ctx); err != nil {
		return pkgerrors.NewBackingStoreError(storeCatalog, "ping", err)
	}
	if err := r.tabular.Ping(ctx); err != nil {
		return pkgerrors.NewBackingStoreError(storeRelational, "ping", err)
	}
	if err := r.graph.Ping(ctx); err != nil {
		return pkgerrors.NewBackingStoreError(storeGraph, "ping", err)
	}
	return nil
}

func (r *Registry) release(ctx context.Context, dataset *entities.Dataset) error {
	switch dataset.Kind() {
	case entities.DatasetKindTabular:
		return r.tabular.DropTable(ctx, dataset.ID())
	case entities.DatasetKindGraph:
		return r.graph.DeletePartition(ctx, dataset.ID())
	default:
		return fmt.Errorf("unknown dataset kind %q", dataset.Kind())
	}
}

// orphaned logs and counts a resource that outlived its release and returns the
// event announcing it. Callers publish the event only once no record points at
// the resource.
func (r *Registry) orphaned(dataset *entities.Dataset, operation string, cause error) events.DomainEvent {
	resource := "table"
	if dataset.Kind() == entities.DatasetKindGraph {
		resource = "partition"
	}
	r.logger.Error("Physical resource orphaned",
		zap.String("dataset_id", dataset.ID().String()),
		zap.String("session_id", dataset.SessionID()),
		zap.String("kind", string(dataset.Kind())),
		zap.String("operation", operation),
		zap.Error(cause),
	)
	r.metrics.Orphaned(string(dataset.Kind()))
	return events.NewPhysicalResourceOrphaned(
		dataset.ID().String(),
		dataset.SessionID(),
		string(dataset.Kind()),
		resource,
		operation,
		cause.Error(),
		r.now(),
	)
}

// publish hands events to the publisher. Delivery failures are logged and never
// fail the operation that raised them.
func (r *Registry) publish(ctx context.Context, evts []events.DomainEvent) {
	if r.publisher == nil || len(evts) == 0 {
		return
	}
	if err := r.publisher.Publish(ctx, evts); err != nil {
		r.logger.Warn("Failed to publish events", zap.Int("count", len(evts)), zap.Error(err))
	}
}

func storeFor(kind entities.DatasetKind) string {
	if kind == entities.DatasetKindGraph {
		return storeGraph
	}
	return storeRelational
}

// storeError classifies err and tags backing store failures with the dataset id
func storeError(err error, store, operation string, id valueobjects.DatasetID) error {
	classified := pkgerrors.Classify(err, store, operation)
	if appErr := pkgerrors.GetAppError(classified); appErr != nil && appErr.Type == pkgerrors.ErrorTypeBackingStore {
		if _, ok := appErr.Details["dataset_id"]; !ok {
			appErr.WithDetail("dataset_id", id.String())
		}
	}
	return classified
}
