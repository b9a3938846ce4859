package decorators

import (
	"context"
	"errors"
	"testing"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/application/ports/mocks"
	"dataworkspace/domain/core/valueobjects"
	"dataworkspace/infrastructure/persistence/neo4jstore"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/observability"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "graph-test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}
}

func TestGraphStoreBreaker_OpensAfterEngineFailures(t *testing.T) {
	// Arrange
	ctx := context.Background()
	id := valueobjects.NewDatasetID()
	next := &mocks.MockGraphStore{}
	next.On("ListNodes", mock.Anything, id, "", 10).Return(nil, errors.New("connection refused"))
	metrics := observability.NewCollector("test")
	breaker := NewGraphStoreBreaker(next, testBreakerConfig(), metrics, zap.NewNop())

	// Act
	for i := 0; i < 2; i++ {
		_, err := breaker.ListNodes(ctx, id, "", 10)
		require.Error(t, err)
	}
	_, err := breaker.ListNodes(ctx, id, "", 10)

	// Assert
	assert.Equal(t, gobreaker.StateOpen, breaker.State())
	assert.True(t, pkgerrors.IsBackingStore(err))
	next.AssertNumberOfCalls(t, "ListNodes", 2)
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(metrics.BreakerState.WithLabelValues("graph-test")))
}

func TestGraphStoreBreaker_CallerErrorsDoNotTrip(t *testing.T) {
	ctx := context.Background()
	id := valueobjects.NewDatasetID()
	next := &mocks.MockGraphStore{}
	next.On("CreateNode", mock.Anything, id, "bad label", mock.Anything).Return(nil, pkgerrors.NewSchemaError("invalid label"))
	breaker := NewGraphStoreBreaker(next, testBreakerConfig(), nil, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := breaker.CreateNode(ctx, id, "bad label", nil)
		assert.True(t, pkgerrors.IsSchema(err))
	}
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
}

// syntaxErrorRunner refuses every statement the way the server refuses bad Cypher
type syntaxErrorRunner struct{}

func (syntaxErrorRunner) Run(ctx context.Context, cypher string, params map[string]interface{}, write bool) ([]neo4jstore.Record, error) {
	if cypher == "BAD" {
		return nil, &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "Invalid input 'BAD'"}
	}
	return []neo4jstore.Record{}, nil
}

func (syntaxErrorRunner) Ping(ctx context.Context) error { return nil }

func TestGraphStoreBreaker_RejectedStatementsDoNotTrip(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := neo4jstore.NewGraphStore(syntaxErrorRunner{}, zap.NewNop())
	breaker := NewGraphStoreBreaker(store, DefaultBreakerConfig("graph-test"), nil, zap.NewNop())

	// Act
	for i := 0; i < 5; i++ {
		_, err := breaker.Execute(ctx, "BAD", nil)
		require.ErrorIs(t, err, ports.ErrStatementRejected)
	}
	_, err := breaker.ListNodes(ctx, valueobjects.NewDatasetID(), "", 10)

	// Assert
	assert.Equal(t, gobreaker.StateClosed, breaker.State())
	assert.NoError(t, err)
}

func TestGraphStoreBreaker_PassesNilResults(t *testing.T) {
	ctx := context.Background()
	id := valueobjects.NewDatasetID()
	next := &mocks.MockGraphStore{}
	next.On("CreateRelationship", mock.Anything, id, int64(1), int64(2), "LINK", mock.Anything).Return(nil, nil)
	next.On("ShortestPath", mock.Anything, id, int64(1), int64(2)).Return(nil, nil)
	breaker := NewGraphStoreBreaker(next, testBreakerConfig(), nil, zap.NewNop())

	rel, err := breaker.CreateRelationship(ctx, id, 1, 2, "LINK", nil)
	require.NoError(t, err)
	assert.Nil(t, rel)

	path, err := breaker.ShortestPath(ctx, id, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, path)
}

func TestInstrumentedStores_RecordOperations(t *testing.T) {
	ctx := context.Background()
	id := valueobjects.NewDatasetID()
	metrics := observability.NewCollector("test")

	tabular := &mocks.MockTabularStore{}
	tabular.On("DropTable", mock.Anything, id).Return(nil)
	tabular.On("QueryRows", mock.Anything, id, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	graph := &mocks.MockGraphStore{}
	graph.On("DeletePartition", mock.Anything, id).Return(nil)

	instrumentedTabular := NewInstrumentedTabularStore(tabular, metrics)
	require.NoError(t, instrumentedTabular.DropTable(ctx, id))
	_, err := instrumentedTabular.QueryRows(ctx, id, valueobjects.Schema{}, ports.RowQuery{})
	require.Error(t, err)
	require.NoError(t, NewInstrumentedGraphStore(graph, metrics).DeletePartition(ctx, id))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("relational", "drop_table", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("relational", "query_rows", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("graph", "delete_partition", "success")))
}
