package decorators

import (
	"context"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/valueobjects"
	"dataworkspace/pkg/observability"
)

// InstrumentedTabularStore records a count and latency for every tabular store call
type InstrumentedTabularStore struct {
	next    ports.TabularStore
	metrics *observability.Collector
}

// NewInstrumentedTabularStore wraps next with Prometheus instrumentation
func NewInstrumentedTabularStore(next ports.TabularStore, metrics *observability.Collector) *InstrumentedTabularStore {
	return &InstrumentedTabularStore{next: next, metrics: metrics}
}

var _ ports.TabularStore = (*InstrumentedTabularStore)(nil)

func (s *InstrumentedTabularStore) CreateTable(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema) (err error) {
	defer s.observe("create_table", time.Now(), &err)
	return s.next.CreateTable(ctx, id, schema)
}

func (s *InstrumentedTabularStore) InsertRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, rows []ports.Row) (n int, err error) {
	defer s.observe("insert_rows", time.Now(), &err)
	return s.next.InsertRows(ctx, id, schema, rows)
}

func (s *InstrumentedTabularStore) QueryRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, query ports.RowQuery) (rows []ports.Row, err error) {
	defer s.observe("query_rows", time.Now(), &err)
	return s.next.QueryRows(ctx, id, schema, query)
}

func (s *InstrumentedTabularStore) DropTable(ctx context.Context, id valueobjects.DatasetID) (err error) {
	defer s.observe("drop_table", time.Now(), &err)
	return s.next.DropTable(ctx, id)
}

func (s *InstrumentedTabularStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *InstrumentedTabularStore) observe(operation string, start time.Time, err *error) {
	s.metrics.RecordStoreOperation("relational", operation, *err, time.Since(start))
}

// InstrumentedGraphStore records a count and latency for every graph store call
type InstrumentedGraphStore struct {
	next    ports.GraphStore
	metrics *observability.Collector
}

// NewInstrumentedGraphStore wraps next with Prometheus instrumentation
func NewInstrumentedGraphStore(next ports.GraphStore, metrics *observability.Collector) *InstrumentedGraphStore {
	return &InstrumentedGraphStore{next: next, metrics: metrics}
}

var _ ports.GraphStore = (*InstrumentedGraphStore)(nil)

func (s *InstrumentedGraphStore) CreateNode(ctx context.Context, id valueobjects.DatasetID, label string, props map[string]interface{}) (node *ports.Node, err error) {
	defer s.observe("create_node", time.Now(), &err)
	return s.next.CreateNode(ctx, id, label, props)
}

func (s *InstrumentedGraphStore) CreateRelationship(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64, relType string, props map[string]interface{}) (rel *ports.Relationship, err error) {
	defer s.observe("create_relationship", time.Now(), &err)
	return s.next.CreateRelationship(ctx, id, fromID, toID, relType, props)
}

func (s *InstrumentedGraphStore) ListNodes(ctx context.Context, id valueobjects.DatasetID, label string, limit int) (nodes []ports.Node, err error) {
	defer s.observe("list_nodes", time.Now(), &err)
	return s.next.ListNodes(ctx, id, label, limit)
}

func (s *InstrumentedGraphStore) Neighbors(ctx context.Context, id valueobjects.DatasetID, nodeID int64) (neighbors []ports.Neighbor, err error) {
	defer s.observe("neighbors", time.Now(), &err)
	return s.next.Neighbors(ctx, id, nodeID)
}

func (s *InstrumentedGraphStore) ShortestPath(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64) (path *ports.Path, err error) {
	defer s.observe("shortest_path", time.Now(), &err)
	return s.next.ShortestPath(ctx, id, fromID, toID)
}

func (s *InstrumentedGraphStore) DeletePartition(ctx context.Context, id valueobjects.DatasetID) (err error) {
	defer s.observe("delete_partition", time.Now(), &err)
	return s.next.DeletePartition(ctx, id)
}

func (s *InstrumentedGraphStore) Execute(ctx context.Context, statement string, params map[string]interface{}) (rows []ports.Row, err error) {
	defer s.observe("execute", time.Now(), &err)
	return s.next.Execute(ctx, statement, params)
}

func (s *InstrumentedGraphStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *InstrumentedGraphStore) observe(operation string, start time.Time, err *error) {
	s.metrics.RecordStoreOperation("graph", operation, *err, time.Since(start))
}
