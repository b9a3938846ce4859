package services

import (
	"context"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/core/valueobjects"
	pkgerrors "dataworkspace/pkg/errors"

	"go.uber.org/zap"
)

// GraphService runs node and relationship operations on graph datasets after the
// registry has resolved ownership
type GraphService struct {
	registry *Registry
	store    ports.GraphStore
	limits   QueryLimits
	logger   *zap.Logger
}

// NewGraphService creates a new graph service
func NewGraphService(registry *Registry, store ports.GraphStore, limits QueryLimits, logger *zap.Logger) *GraphService {
	return &GraphService{
		registry: registry,
		store:    store,
		limits:   limits,
		logger:   logger,
	}
}

// CreateNode adds a node with one caller label to the dataset
func (s *GraphService) CreateNode(ctx context.Context, sessionID, datasetID, callerID, label string, props map[string]interface{}) (*ports.Node, error) {
	dataset, err := s.resolve(ctx, sessionID, datasetID, callerID)
	if err != nil {
		return nil, err
	}
	normalized, err := valueobjects.NormalizeProperties(props)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	node, err := s.store.CreateNode(ctx, dataset.ID(), label, normalized)
	if err != nil {
		return nil, storeError(err, storeGraph, "create_node", dataset.ID())
	}
	return node, nil
}

// CreateRelationship links two nodes of the dataset. Endpoints that are not in the
// dataset, including nodes of other datasets, are rejected.
func (s *GraphService) CreateRelationship(ctx context.Context, sessionID, datasetID, callerID string, fromID, toID int64, relType string, props map[string]interface{}) (*ports.Relationship, error) {
	dataset, err := s.resolve(ctx, sessionID, datasetID, callerID)
	if err != nil {
		return nil, err
	}
	normalized, err := valueobjects.NormalizeProperties(props)
	if err != nil {
		return nil, pkgerrors.NewValidationError(err.Error())
	}

	rel, err := s.store.CreateRelationship(ctx, dataset.ID(), fromID, toID, relType, normalized)
	if err != nil {
		return nil, storeError(err, storeGraph, "create_relationship", dataset.ID())
	}
	if rel == nil {
		return nil, pkgerrors.NewValidationError("both nodes must exist in the dataset").
			WithDetail("from_id", fromID).
			WithDetail("to_id", toID)
	}
	return rel, nil
}

// ListNodes returns a page of the dataset's nodes, optionally of one label
func (s *GraphService) ListNodes(ctx context.Context, sessionID, datasetID, callerID, label string, limit int) ([]ports.Node, error) {
	dataset, err := s.resolve(ctx, sessionID, datasetID, callerID)
	if err != nil {
		return nil, err
	}
	limit, err = s.limits.resolve(limit)
	if err != nil {
		return nil, err
	}

	nodes, err := s.store.ListNodes(ctx, dataset.ID(), label, limit)
	if err != nil {
		return nil, storeError(err, storeGraph, "list_nodes", dataset.ID())
	}
	return nodes, nil
}

// Neighbors returns the nodes adjacent to nodeID in either direction
func (s *GraphService) Neighbors(ctx context.Context, sessionID, datasetID, callerID string, nodeID int64) ([]ports.Neighbor, error) {
	dataset, err := s.resolve(ctx, sessionID, datasetID, callerID)
	if err != nil {
		return nil, err
	}
	neighbors, err := s.store.Neighbors(ctx, dataset.ID(), nodeID)
	if err != nil {
		return nil, storeError(err, storeGraph, "neighbors", dataset.ID())
	}
	return neighbors, nil
}

// ShortestPath returns the shortest undirected path between two nodes of the dataset
func (s *GraphService) ShortestPath(ctx context.Context, sessionID, datasetID, callerID string, fromID, toID int64) (*ports.Path, error) {
	dataset, err := s.resolve(ctx, sessionID, datasetID, callerID)
	if err != nil {
		return nil, err
	}
	path, err := s.store.ShortestPath(ctx, dataset.ID(), fromID, toID)
	if err != nil {
		return nil, storeError(err, storeGraph, "shortest_path", dataset.ID())
	}
	if path == nil {
		return nil, pkgerrors.NewNotFoundError("path")
	}
	return path, nil
}

func (s *GraphService) resolve(ctx context.Context, sessionID, datasetID, callerID string) (*entities.Dataset, error) {
	return s.registry.ResolveDataset(ctx, sessionID, datasetID, callerID, entities.DatasetKindGraph)
}
