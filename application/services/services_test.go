package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/application/ports/mocks"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/core/valueobjects"
	"dataworkspace/domain/events"
	"dataworkspace/infrastructure/persistence/memory"
	"dataworkspace/infrastructure/persistence/sqlstore"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	alice = "alice-key-0001"
	bob   = "bob-key-0002"
)

var schemaTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type workspace struct {
	db       *sqlstore.Database
	catalog  *sqlstore.Catalog
	tabular  ports.TabularStore
	graph    *memory.GraphStore
	events   *mocks.MockEventPublisher
	registry *Registry
	rows     *TabularService
	graphs   *GraphService
	router   *QueryRouter
	export   *ExportService
}

// newWorkspace wires the services over SQLite and the in-memory graph. The wrap
// functions, when given, decorate the real stores.
func newWorkspace(t *testing.T, wrap func(ports.TabularStore) ports.TabularStore, wrapGraph func(ports.GraphStore) ports.GraphStore) *workspace {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), sqlstore.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "workspace.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := zap.NewNop()
	metrics := observability.NewCollector("test")
	publisher := &mocks.MockEventPublisher{}
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	w := &workspace{
		db:      db,
		catalog: sqlstore.NewCatalog(db),
		graph:   memory.NewGraphStore(),
		events:  publisher,
	}
	var tabular ports.TabularStore = sqlstore.NewTabularStore(db, logger)
	if wrap != nil {
		tabular = wrap(tabular)
	}
	var graph ports.GraphStore = w.graph
	if wrapGraph != nil {
		graph = wrapGraph(graph)
	}
	w.tabular = tabular

	limits := QueryLimits{Default: 100, Max: 1000}
	w.registry = NewRegistry(w.catalog, tabular, graph, publisher, metrics, logger)
	w.registry.now = tickingClock()
	w.rows = NewTabularService(w.registry, tabular, limits, metrics, logger)
	w.graphs = NewGraphService(w.registry, graph, limits, logger)
	w.router = NewQueryRouter(w.registry, sqlstore.NewExecutor(db), graph, logger)
	w.export = NewExportService(w.registry, tabular, graph, ExportLimits{MaxRows: 1000, MaxNodes: 1000}, metrics, logger)
	return w
}

// tickingClock advances a millisecond per reading so creation order is stable
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := schemaTime
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

func peopleColumns(t *testing.T) valueobjects.ColumnDefs {
	t.Helper()
	var defs valueobjects.ColumnDefs
	require.NoError(t, json.Unmarshal([]byte(`{"name":"VARCHAR","age":"INTEGER"}`), &defs))
	return defs
}

func (w *workspace) tableExists(t *testing.T, id valueobjects.DatasetID) bool {
	t.Helper()
	name, err := valueobjects.TableName(id)
	require.NoError(t, err)
	res, err := sqlstore.NewExecutor(w.db).Execute(context.Background(),
		`SELECT COUNT(*) AS n FROM sqlite_master WHERE type = 'table' AND name = ?`, []interface{}{name})
	require.NoError(t, err)
	return res.Rows[0]["n"] == int64(1)
}

// failingDrop makes every table drop fail
type failingDrop struct {
	ports.TabularStore
}

func (f failingDrop) DropTable(ctx context.Context, id valueobjects.DatasetID) error {
	return errors.New("connection reset")
}

// failingPartition makes every partition delete fail
type failingPartition struct {
	ports.GraphStore
}

func (f failingPartition) DeletePartition(ctx context.Context, id valueobjects.DatasetID) error {
	return errors.New("graph unavailable")
}

func TestScenario_TabularSortAndLimit(t *testing.T) {
	// Arrange
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "A", "")
	require.NoError(t, err)
	dataset, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "people", peopleColumns(t))
	require.NoError(t, err)

	inserted, err := w.rows.InsertRows(ctx, session.ID(), dataset.ID().String(), alice, []ports.Row{
		{"name": "Alice", "age": 30},
		{"name": "Bob", "age": 25},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Act
	rows, err := w.rows.QueryRows(ctx, session.ID(), dataset.ID().String(), alice, RowsRequest{Sort: "age:desc", Limit: 1})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []ports.Row{{"name": "Alice", "age": int64(30), "id": int64(1)}}, rows)
}

func TestScenario_GraphShortestPath(t *testing.T) {
	// Arrange
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "A", "")
	require.NoError(t, err)
	dataset, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "g")
	require.NoError(t, err)
	dsID := dataset.ID().String()

	ids := map[string]int64{}
	for _, name := range []string{"A", "B", "C"} {
		node, err := w.graphs.CreateNode(ctx, session.ID(), dsID, alice, "Node", map[string]interface{}{"name": name})
		require.NoError(t, err)
		ids[name] = node.ID
	}
	_, err = w.graphs.CreateRelationship(ctx, session.ID(), dsID, alice, ids["A"], ids["B"], "LINK", nil)
	require.NoError(t, err)
	_, err = w.graphs.CreateRelationship(ctx, session.ID(), dsID, alice, ids["B"], ids["C"], "LINK", nil)
	require.NoError(t, err)

	// Act
	path, err := w.graphs.ShortestPath(ctx, session.ID(), dsID, alice, ids["A"], ids["C"])

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, path.Length)
	require.Len(t, path.Nodes, 3)
	for i, name := range []string{"A", "B", "C"} {
		assert.Equal(t, name, path.Nodes[i].Properties["name"])
	}
}

func TestRegistry_NotOwnedIsNotFound(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	mine, err := w.registry.CreateSession(ctx, alice, "mine", "")
	require.NoError(t, err)
	theirs, err := w.registry.CreateSession(ctx, bob, "theirs", "")
	require.NoError(t, err)
	dataset, err := w.registry.CreateTabularDataset(ctx, theirs.ID(), bob, "secret", peopleColumns(t))
	require.NoError(t, err)

	_, missing := w.registry.ResolveSession(ctx, "no-such-session", alice)
	_, foreign := w.registry.ResolveSession(ctx, theirs.ID(), alice)
	require.True(t, pkgerrors.IsNotFound(missing))
	require.True(t, pkgerrors.IsNotFound(foreign))
	assert.Equal(t, missing.Error(), foreign.Error(), "absent and not-owned look the same")

	for _, datasetID := range []string{dataset.ID().String(), "not-a-uuid", valueobjects.NewDatasetID().String()} {
		_, err = w.registry.ResolveDataset(ctx, theirs.ID(), datasetID, alice, entities.DatasetKindTabular)
		assert.True(t, pkgerrors.IsNotFound(err), datasetID)
	}

	// A real dataset reached through the caller's own, unrelated session
	_, err = w.registry.ResolveDataset(ctx, mine.ID(), dataset.ID().String(), alice, entities.DatasetKindTabular)
	assert.True(t, pkgerrors.IsNotFound(err))

	// The wrong kind
	_, err = w.registry.ResolveDataset(ctx, theirs.ID(), dataset.ID().String(), bob, entities.DatasetKindGraph)
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = w.rows.QueryRows(ctx, theirs.ID(), dataset.ID().String(), alice, RowsRequest{})
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = w.registry.DeleteSession(ctx, theirs.ID(), alice)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, w.tableExists(t, dataset.ID()))
}

func TestRegistry_ListSessionsOnlyOwn(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	_, err := w.registry.CreateSession(ctx, alice, "one", "")
	require.NoError(t, err)
	_, err = w.registry.CreateSession(ctx, bob, "two", "")
	require.NoError(t, err)

	sessions, err := w.registry.ListSessions(ctx, alice)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "one", sessions[0].Name())
}

func TestRegistry_CreateTabularDatasetSchemaErrors(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)

	for _, raw := range []string{
		`{"name":"VARCHAR(10); DROP TABLE workspace_sessions"}`,
		`{"bad name":"TEXT"}`,
		`{"id":"INTEGER"}`,
		`{"a":"TEXT","A":"TEXT"}`,
		`{"select":"TEXT"}`,
		`{}`,
	} {
		var defs valueobjects.ColumnDefs
		require.NoError(t, json.Unmarshal([]byte(raw), &defs))
		_, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", defs)
		assert.True(t, pkgerrors.IsSchema(err), "%s: %v", raw, err)
	}

	datasets, err := w.registry.ListDatasets(ctx, session.ID(), alice, entities.DatasetKindTabular)
	require.NoError(t, err)
	assert.Empty(t, datasets)
}

func TestRegistry_CreateRollsBackTableWhenRecordFails(t *testing.T) {
	// Arrange
	ctx := context.Background()
	session := entities.ReconstructSession("s1", alice, "s", "", schemaTime)

	catalog := &mocks.MockCatalog{}
	catalog.On("GetSession", mock.Anything, "s1").Return(session, nil)
	catalog.On("CreateDataset", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	tabular := &mocks.MockTabularStore{}
	tabular.On("CreateTable", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tabular.On("DropTable", mock.Anything, mock.Anything).Return(nil)

	registry := NewRegistry(catalog, tabular, &mocks.MockGraphStore{}, nil, nil, zap.NewNop())

	// Act
	_, err := registry.CreateTabularDataset(ctx, "s1", alice, "t", valueobjects.ColumnDefs{{Name: "name", Type: "TEXT"}})

	// Assert
	assert.True(t, pkgerrors.IsConflictOnCreate(err))
	created := tabular.Calls[0].Arguments.Get(1).(valueobjects.DatasetID)
	tabular.AssertCalled(t, "DropTable", mock.Anything, created)
}

func TestRegistry_CreateFailsWhenTableFails(t *testing.T) {
	ctx := context.Background()
	session := entities.ReconstructSession("s1", alice, "s", "", schemaTime)

	catalog := &mocks.MockCatalog{}
	catalog.On("GetSession", mock.Anything, "s1").Return(session, nil)
	tabular := &mocks.MockTabularStore{}
	tabular.On("CreateTable", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("permission denied"))

	registry := NewRegistry(catalog, tabular, &mocks.MockGraphStore{}, nil, nil, zap.NewNop())
	_, err := registry.CreateTabularDataset(ctx, "s1", alice, "t", valueobjects.ColumnDefs{{Name: "name", Type: "TEXT"}})

	assert.True(t, pkgerrors.IsConflictOnCreate(err))
	assert.NotContains(t, pkgerrors.GetAppError(err).Message, "permission denied")
	catalog.AssertNotCalled(t, "CreateDataset", mock.Anything, mock.Anything)
}

func TestRegistry_DeleteSessionCascades(t *testing.T) {
	// Arrange
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)

	var tables []valueobjects.DatasetID
	for _, name := range []string{"t1", "t2"} {
		ds, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, name, peopleColumns(t))
		require.NoError(t, err)
		tables = append(tables, ds.ID())
	}
	graph, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "g")
	require.NoError(t, err)
	a, err := w.graphs.CreateNode(ctx, session.ID(), graph.ID().String(), alice, "N", nil)
	require.NoError(t, err)
	b, err := w.graphs.CreateNode(ctx, session.ID(), graph.ID().String(), alice, "N", nil)
	require.NoError(t, err)
	_, err = w.graphs.CreateRelationship(ctx, session.ID(), graph.ID().String(), alice, a.ID, b.ID, "LINK", nil)
	require.NoError(t, err)

	// Act
	report, err := w.registry.DeleteSession(ctx, session.ID(), alice)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, report.DatasetsDeleted)
	assert.Empty(t, report.Orphaned)
	for _, id := range tables {
		assert.False(t, w.tableExists(t, id))
	}
	nodes, rels := w.graph.CountTagged(graph.ID())
	assert.Zero(t, nodes)
	assert.Zero(t, rels)

	_, err = w.registry.ResolveSession(ctx, session.ID(), alice)
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = w.catalog.GetDataset(ctx, session.ID(), entities.DatasetKindGraph, graph.ID())
	assert.ErrorIs(t, err, ports.ErrRecordNotFound)
}

func TestRegistry_DeleteSessionReportsOrphans(t *testing.T) {
	// Arrange
	ctx := context.Background()
	w := newWorkspace(t,
		func(s ports.TabularStore) ports.TabularStore { return failingDrop{s} },
		func(s ports.GraphStore) ports.GraphStore { return failingPartition{s} },
	)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	table, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", peopleColumns(t))
	require.NoError(t, err)
	graph, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "g")
	require.NoError(t, err)

	// Act
	report, err := w.registry.DeleteSession(ctx, session.ID(), alice)

	// Assert
	require.NoError(t, err, "orphans do not block deletion")
	assert.Equal(t, 2, report.DatasetsDeleted)
	require.Len(t, report.Orphaned, 2)
	assert.ElementsMatch(t,
		[]string{table.ID().String(), graph.ID().String()},
		[]string{report.Orphaned[0].DatasetID, report.Orphaned[1].DatasetID},
	)
	_, err = w.registry.ResolveSession(ctx, session.ID(), alice)
	assert.True(t, pkgerrors.IsNotFound(err))

	orphanEvents := 0
	for _, call := range w.events.Calls {
		for _, evt := range call.Arguments.Get(1).([]events.DomainEvent) {
			if evt.GetEventType() == events.EventTypePhysicalResourceOrphaned {
				orphanEvents++
			}
		}
	}
	assert.Equal(t, 2, orphanEvents)
}

func TestRegistry_ReleaseOrphan(t *testing.T) {
	// Arrange
	ctx := context.Background()
	w := newWorkspace(t, func(s ports.TabularStore) ports.TabularStore { return failingDrop{s} }, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	orphan, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", peopleColumns(t))
	require.NoError(t, err)
	report, err := w.registry.DeleteSession(ctx, session.ID(), alice)
	require.NoError(t, err)
	require.Len(t, report.Orphaned, 1)
	require.True(t, w.tableExists(t, orphan.ID()))

	reaper := NewRegistry(w.catalog, sqlstore.NewTabularStore(w.db, zap.NewNop()), w.graph, w.events, observability.NewCollector("reaper"), zap.NewNop())

	// Act
	err = reaper.ReleaseOrphan(ctx, session.ID(), orphan.ID().String(), entities.DatasetKindTabular)

	// Assert
	require.NoError(t, err)
	assert.False(t, w.tableExists(t, orphan.ID()))
	assert.NoError(t, reaper.ReleaseOrphan(ctx, session.ID(), orphan.ID().String(), entities.DatasetKindTabular), "release is idempotent")
}

// releasingPublisher releases orphans as soon as their events arrive
type releasingPublisher struct {
	releaser *Registry
	errs     []error
}

func (p *releasingPublisher) Publish(ctx context.Context, evts []events.DomainEvent) error {
	for _, evt := range evts {
		orphan, ok := evt.(events.PhysicalResourceOrphaned)
		if !ok {
			continue
		}
		if err := p.releaser.ReleaseOrphan(ctx, orphan.SessionID, orphan.DatasetID, entities.DatasetKind(orphan.Kind)); err != nil {
			p.errs = append(p.errs, err)
		}
	}
	return nil
}

func TestRegistry_OrphanEventsFollowRecordRemoval(t *testing.T) {
	// Arrange
	ctx := context.Background()
	w := newWorkspace(t, func(s ports.TabularStore) ports.TabularStore { return failingDrop{s} }, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	orphan, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", peopleColumns(t))
	require.NoError(t, err)

	publisher := &releasingPublisher{
		releaser: NewRegistry(w.catalog, sqlstore.NewTabularStore(w.db, zap.NewNop()), w.graph, nil, nil, zap.NewNop()),
	}
	w.registry.publisher = publisher

	// Act
	report, err := w.registry.DeleteSession(ctx, session.ID(), alice)

	// Assert
	require.NoError(t, err)
	require.Len(t, report.Orphaned, 1)
	assert.Empty(t, publisher.errs)
	assert.False(t, w.tableExists(t, orphan.ID()))
}

func TestRegistry_ReleaseOrphanRefusesRegisteredDatasets(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	live, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", peopleColumns(t))
	require.NoError(t, err)

	err = w.registry.ReleaseOrphan(ctx, session.ID(), live.ID().String(), entities.DatasetKindTabular)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.ErrorIs(t, err, ErrDatasetStillRegistered)
	assert.True(t, w.tableExists(t, live.ID()))

	// The record is found whatever session or kind the request names
	err = w.registry.ReleaseOrphan(ctx, "some-other-session", live.ID().String(), entities.DatasetKindTabular)
	assert.ErrorIs(t, err, ErrDatasetStillRegistered)
	err = w.registry.ReleaseOrphan(ctx, session.ID(), live.ID().String(), entities.DatasetKindGraph)
	assert.ErrorIs(t, err, ErrDatasetStillRegistered)
	assert.True(t, w.tableExists(t, live.ID()))

	rows, err := w.rows.QueryRows(ctx, session.ID(), live.ID().String(), alice, RowsRequest{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = w.registry.ReleaseOrphan(ctx, session.ID(), "not-an-id", entities.DatasetKindTabular)
	assert.True(t, pkgerrors.IsValidation(err))

	err = w.registry.ReleaseOrphan(ctx, session.ID(), live.ID().String(), entities.DatasetKind("document"))
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestRegistry_DeleteDatasetFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, func(s ports.TabularStore) ports.TabularStore { return failingDrop{s} }, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	ds, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", peopleColumns(t))
	require.NoError(t, err)

	err = w.registry.DeleteDataset(ctx, session.ID(), ds.ID().String(), alice, entities.DatasetKindTabular)
	require.True(t, pkgerrors.IsBackingStore(err))
	assert.Equal(t, ds.ID().String(), pkgerrors.GetAppError(err).Details["dataset_id"])

	_, err = w.registry.ResolveDataset(ctx, session.ID(), ds.ID().String(), alice, entities.DatasetKindTabular)
	assert.NoError(t, err, "the record survives so the delete can be retried")
}

func TestRegistry_DeleteDataset(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	ds, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", peopleColumns(t))
	require.NoError(t, err)

	require.NoError(t, w.registry.DeleteDataset(ctx, session.ID(), ds.ID().String(), alice, entities.DatasetKindTabular))
	assert.False(t, w.tableExists(t, ds.ID()))
	err = w.registry.DeleteDataset(ctx, session.ID(), ds.ID().String(), alice, entities.DatasetKindTabular)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTabularService_Validation(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	ds, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", peopleColumns(t))
	require.NoError(t, err)
	dsID := ds.ID().String()

	_, err = w.rows.InsertRows(ctx, session.ID(), dsID, alice, nil)
	assert.True(t, pkgerrors.IsValidation(err), "empty rows")

	_, err = w.rows.InsertRows(ctx, session.ID(), dsID, alice, []ports.Row{{"name": "a", "age": 1}, {"name": "b"}})
	assert.True(t, pkgerrors.IsValidation(err), "diverging keys")

	_, err = w.rows.InsertRows(ctx, session.ID(), dsID, alice, []ports.Row{{"name": "a", "age": "old"}})
	assert.True(t, pkgerrors.IsValidation(err), "type mismatch")

	rows, err := w.rows.QueryRows(ctx, session.ID(), dsID, alice, RowsRequest{})
	require.NoError(t, err)
	assert.Empty(t, rows, "failed batches leave nothing behind")

	for _, req := range []RowsRequest{
		{Sort: "salary:desc"},
		{Sort: ":desc"},
		{Columns: []string{"name; DROP TABLE x"}},
		{Filters: []ports.Filter{{Column: "nope", Value: 1}}},
		{Limit: -1},
		{Offset: -1},
	} {
		_, err := w.rows.QueryRows(ctx, session.ID(), dsID, alice, req)
		assert.True(t, pkgerrors.IsValidation(err), "%+v: %v", req, err)
	}
}

func TestQueryLimits(t *testing.T) {
	limits := QueryLimits{Default: 100, Max: 1000}

	got, err := limits.resolve(0)
	require.NoError(t, err)
	assert.Equal(t, 100, got)

	got, err = limits.resolve(5000)
	require.NoError(t, err)
	assert.Equal(t, 1000, got)

	_, err = limits.resolve(-1)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestGraphService_CrossDatasetEdgeRejected(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	g1, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "g1")
	require.NoError(t, err)
	g2, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "g2")
	require.NoError(t, err)

	local, err := w.graphs.CreateNode(ctx, session.ID(), g1.ID().String(), alice, "N", nil)
	require.NoError(t, err)
	foreign, err := w.graphs.CreateNode(ctx, session.ID(), g2.ID().String(), alice, "N", nil)
	require.NoError(t, err)

	_, err = w.graphs.CreateRelationship(ctx, session.ID(), g1.ID().String(), alice, foreign.ID, local.ID, "LINK", nil)
	assert.True(t, pkgerrors.IsValidation(err))

	nodes, err := w.graphs.ListNodes(ctx, session.ID(), g1.ID().String(), alice, "", 0)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, local.ID, nodes[0].ID)
}

func TestGraphService_Errors(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	g, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "g")
	require.NoError(t, err)
	gID := g.ID().String()

	_, err = w.graphs.CreateNode(ctx, session.ID(), gID, alice, "Graph_0011", nil)
	assert.True(t, pkgerrors.IsSchema(err), "reserved label")

	_, err = w.graphs.CreateNode(ctx, session.ID(), gID, alice, "N", map[string]interface{}{"nested": map[string]interface{}{"a": 1}})
	assert.True(t, pkgerrors.IsValidation(err), "nested properties")

	a, err := w.graphs.CreateNode(ctx, session.ID(), gID, alice, "N", nil)
	require.NoError(t, err)
	b, err := w.graphs.CreateNode(ctx, session.ID(), gID, alice, "N", nil)
	require.NoError(t, err)
	_, err = w.graphs.ShortestPath(ctx, session.ID(), gID, alice, a.ID, b.ID)
	assert.True(t, pkgerrors.IsNotFound(err), "disconnected")

	neighbors, err := w.graphs.Neighbors(ctx, session.ID(), gID, alice, a.ID)
	require.NoError(t, err)
	assert.Empty(t, neighbors)

	// A tabular dataset is not a graph dataset
	table, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "t", peopleColumns(t))
	require.NoError(t, err)
	_, err = w.graphs.ListNodes(ctx, session.ID(), table.ID().String(), alice, "", 10)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestGraphService_Neighbors(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	g, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "g")
	require.NoError(t, err)
	gID := g.ID().String()

	a, _ := w.graphs.CreateNode(ctx, session.ID(), gID, alice, "N", map[string]interface{}{"name": "A"})
	b, _ := w.graphs.CreateNode(ctx, session.ID(), gID, alice, "N", map[string]interface{}{"name": "B"})
	_, err = w.graphs.CreateRelationship(ctx, session.ID(), gID, alice, b.ID, a.ID, "POINTS_AT", map[string]interface{}{"weight": json.Number("2")})
	require.NoError(t, err)

	neighbors, err := w.graphs.Neighbors(ctx, session.ID(), gID, alice, a.ID)
	require.NoError(t, err)
	require.Len(t, neighbors, 1, "adjacency is undirected")
	assert.Equal(t, "B", neighbors[0].Node.Properties["name"])
	assert.Equal(t, "POINTS_AT", neighbors[0].Relationship.Type)
	assert.Equal(t, int64(2), neighbors[0].Relationship.Properties["weight"])
}
