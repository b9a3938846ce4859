package mocks

import (
	"context"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/core/valueobjects"
	"dataworkspace/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockTabularStore is a testify mock of ports.TabularStore
type MockTabularStore struct {
	mock.Mock
}

func (m *MockTabularStore) CreateTable(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema) error {
	args := m.Called(ctx, id, schema)
	return args.Error(0)
}

func (m *MockTabularStore) InsertRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, rows []ports.Row) (int, error) {
	args := m.Called(ctx, id, schema, rows)
	return args.Int(0), args.Error(1)
}

func (m *MockTabularStore) QueryRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, query ports.RowQuery) ([]ports.Row, error) {
	args := m.Called(ctx, id, schema, query)
	if rows := args.Get(0); rows != nil {
		return rows.([]ports.Row), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTabularStore) DropTable(ctx context.Context, id valueobjects.DatasetID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTabularStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockGraphStore is a testify mock of ports.GraphStore
type MockGraphStore struct {
	mock.Mock
}

func (m *MockGraphStore) CreateNode(ctx context.Context, id valueobjects.DatasetID, label string, props map[string]interface{}) (*ports.Node, error) {
	args := m.Called(ctx, id, label, props)
	if n := args.Get(0); n != nil {
		return n.(*ports.Node), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGraphStore) CreateRelationship(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64, relType string, props map[string]interface{}) (*ports.Relationship, error) {
	args := m.Called(ctx, id, fromID, toID, relType, props)
	if r := args.Get(0); r != nil {
		return r.(*ports.Relationship), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGraphStore) ListNodes(ctx context.Context, id valueobjects.DatasetID, label string, limit int) ([]ports.Node, error) {
	args := m.Called(ctx, id, label, limit)
	if n := args.Get(0); n != nil {
		return n.([]ports.Node), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGraphStore) Neighbors(ctx context.Context, id valueobjects.DatasetID, nodeID int64) ([]ports.Neighbor, error) {
	args := m.Called(ctx, id, nodeID)
	if n := args.Get(0); n != nil {
		return n.([]ports.Neighbor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGraphStore) ShortestPath(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64) (*ports.Path, error) {
	args := m.Called(ctx, id, fromID, toID)
	if p := args.Get(0); p != nil {
		return p.(*ports.Path), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGraphStore) DeletePartition(ctx context.Context, id valueobjects.DatasetID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGraphStore) Execute(ctx context.Context, statement string, params map[string]interface{}) ([]ports.Row, error) {
	args := m.Called(ctx, statement, params)
	if rows := args.Get(0); rows != nil {
		return rows.([]ports.Row), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGraphStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRelationalExecutor is a testify mock of ports.RelationalExecutor
type MockRelationalExecutor struct {
	mock.Mock
}

func (m *MockRelationalExecutor) Execute(ctx context.Context, statement string, params interface{}) (*ports.RelationalResult, error) {
	args := m.Called(ctx, statement, params)
	if r := args.Get(0); r != nil {
		return r.(*ports.RelationalResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockEventPublisher is a testify mock of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockCatalog is a testify mock of ports.Catalog
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) CreateSession(ctx context.Context, session *entities.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockCatalog) GetSession(ctx context.Context, sessionID string) (*entities.Session, error) {
	args := m.Called(ctx, sessionID)
	if s := args.Get(0); s != nil {
		return s.(*entities.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) ListSessionsByOwner(ctx context.Context, ownerID string) ([]*entities.Session, error) {
	args := m.Called(ctx, ownerID)
	if s := args.Get(0); s != nil {
		return s.([]*entities.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockCatalog) CreateDataset(ctx context.Context, dataset *entities.Dataset) error {
	args := m.Called(ctx, dataset)
	return args.Error(0)
}

func (m *MockCatalog) GetDataset(ctx context.Context, sessionID string, kind entities.DatasetKind, id valueobjects.DatasetID) (*entities.Dataset, error) {
	args := m.Called(ctx, sessionID, kind, id)
	if d := args.Get(0); d != nil {
		return d.(*entities.Dataset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) DatasetRegistered(ctx context.Context, id valueobjects.DatasetID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalog) ListDatasets(ctx context.Context, sessionID string, kind entities.DatasetKind) ([]*entities.Dataset, error) {
	args := m.Called(ctx, sessionID, kind)
	if d := args.Get(0); d != nil {
		return d.([]*entities.Dataset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) DeleteDataset(ctx context.Context, id valueobjects.DatasetID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalog) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
