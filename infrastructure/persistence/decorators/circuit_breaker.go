package decorators

import (
	"context"
	"errors"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/valueobjects"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/observability"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig holds configuration for a store circuit breaker
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once MinRequests
	// calls have been counted
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for a store breaker
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

func newBreaker(config BreakerConfig, metrics *observability.Collector, logger *zap.Logger) *gobreaker.CircuitBreaker {
	metrics.SetBreakerState(config.Name, float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.SetBreakerState(name, float64(to))
		},
		// Caller mistakes say nothing about the engine's health
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, ports.ErrStatementRejected) {
				return true
			}
			return pkgerrors.IsAppError(err) && !pkgerrors.IsBackingStore(err)
		},
	})
}

// GraphStoreBreaker stops calling the graph engine after repeated failures and fails
// fast until the breaker's timeout lets a trial call through
type GraphStoreBreaker struct {
	next ports.GraphStore
	cb   *gobreaker.CircuitBreaker
}

// NewGraphStoreBreaker wraps next with a circuit breaker
func NewGraphStoreBreaker(next ports.GraphStore, config BreakerConfig, metrics *observability.Collector, logger *zap.Logger) *GraphStoreBreaker {
	return &GraphStoreBreaker{next: next, cb: newBreaker(config, metrics, logger)}
}

var _ ports.GraphStore = (*GraphStoreBreaker)(nil)

// State returns the breaker's current state
func (b *GraphStoreBreaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *GraphStoreBreaker) CreateNode(ctx context.Context, id valueobjects.DatasetID, label string, props map[string]interface{}) (*ports.Node, error) {
	res, err := b.execute("create_node", func() (interface{}, error) {
		return b.next.CreateNode(ctx, id, label, props)
	})
	if err != nil {
		return nil, err
	}
	return res.(*ports.Node), nil
}

func (b *GraphStoreBreaker) CreateRelationship(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64, relType string, props map[string]interface{}) (*ports.Relationship, error) {
	res, err := b.execute("create_relationship", func() (interface{}, error) {
		return b.next.CreateRelationship(ctx, id, fromID, toID, relType, props)
	})
	if err != nil {
		return nil, err
	}
	return res.(*ports.Relationship), nil
}

func (b *GraphStoreBreaker) ListNodes(ctx context.Context, id valueobjects.DatasetID, label string, limit int) ([]ports.Node, error) {
	res, err := b.execute("list_nodes", func() (interface{}, error) {
		return b.next.ListNodes(ctx, id, label, limit)
	})
	if err != nil {
		return nil, err
	}
	return res.([]ports.Node), nil
}

func (b *GraphStoreBreaker) Neighbors(ctx context.Context, id valueobjects.DatasetID, nodeID int64) ([]ports.Neighbor, error) {
	res, err := b.execute("neighbors", func() (interface{}, error) {
		return b.next.Neighbors(ctx, id, nodeID)
	})
	if err != nil {
		return nil, err
	}
	return res.([]ports.Neighbor), nil
}

func (b *GraphStoreBreaker) ShortestPath(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64) (*ports.Path, error) {
	res, err := b.execute("shortest_path", func() (interface{}, error) {
		return b.next.ShortestPath(ctx, id, fromID, toID)
	})
	if err != nil {
		return nil, err
	}
	return res.(*ports.Path), nil
}

func (b *GraphStoreBreaker) DeletePartition(ctx context.Context, id valueobjects.DatasetID) error {
	_, err := b.execute("delete_partition", func() (interface{}, error) {
		return nil, b.next.DeletePartition(ctx, id)
	})
	return err
}

func (b *GraphStoreBreaker) Execute(ctx context.Context, statement string, params map[string]interface{}) ([]ports.Row, error) {
	res, err := b.execute("execute", func() (interface{}, error) {
		return b.next.Execute(ctx, statement, params)
	})
	if err != nil {
		return nil, err
	}
	return res.([]ports.Row), nil
}

// Ping bypasses the breaker so readiness reflects the engine itself
func (b *GraphStoreBreaker) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *GraphStoreBreaker) execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, pkgerrors.NewBackingStoreError("graph", operation, err)
	}
	return res, err
}
