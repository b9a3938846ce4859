package neo4jstore

import (
	"context"
	"errors"
	"fmt"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/validators"
	"dataworkspace/domain/core/valueobjects"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// GraphStore keeps every graph dataset in one shared Neo4j database. Each dataset's
// nodes carry its partition label and every query matches on it.
type GraphStore struct {
	runner Runner
	logger *zap.Logger
}

// NewGraphStore creates a graph store over a Cypher runner
func NewGraphStore(runner Runner, logger *zap.Logger) *GraphStore {
	return &GraphStore{runner: runner, logger: logger}
}

var _ ports.GraphStore = (*GraphStore)(nil)

// CreateNode creates a node carrying the partition label and the caller's label
func (s *GraphStore) CreateNode(ctx context.Context, id valueobjects.DatasetID, label string, props map[string]interface{}) (*ports.Node, error) {
	partition, err := partitionLabel(id)
	if err != nil {
		return nil, err
	}
	lbl, err := callerLabel("label", label)
	if err != nil {
		return nil, err
	}

	cypher := fmt.Sprintf("CREATE (n:%s:%s $props) RETURN n", partition, lbl)
	records, err := s.runner.Run(ctx, cypher, map[string]interface{}{"props": nonNil(props)}, true)
	if err != nil {
		return nil, fmt.Errorf("create node: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("create node: no record returned")
	}
	node, ok := records[0]["n"].(ports.Node)
	if !ok {
		return nil, fmt.Errorf("create node: unexpected result %T", records[0]["n"])
	}
	return &node, nil
}

// CreateRelationship links two nodes of the same partition. It returns nil when
// either endpoint is missing from the partition, including ids that belong to
// another dataset.
func (s *GraphStore) CreateRelationship(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64, relType string, props map[string]interface{}) (*ports.Relationship, error) {
	partition, err := partitionLabel(id)
	if err != nil {
		return nil, err
	}
	typ, err := callerLabel("relationship type", relType)
	if err != nil {
		return nil, err
	}

	cypher := fmt.Sprintf(
		"MATCH (a:%[1]s), (b:%[1]s) WHERE id(a) = $from_id AND id(b) = $to_id "+
			"CREATE (a)-[r:%[2]s $props]->(b) RETURN r",
		partition, typ,
	)
	records, err := s.runner.Run(ctx, cypher, map[string]interface{}{
		"from_id": fromID,
		"to_id":   toID,
		"props":   nonNil(props),
	}, true)
	if err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	rel, ok := records[0]["r"].(ports.Relationship)
	if !ok {
		return nil, fmt.Errorf("create relationship: unexpected result %T", records[0]["r"])
	}
	return &rel, nil
}

// ListNodes returns up to limit nodes of the partition, optionally of one label
func (s *GraphStore) ListNodes(ctx context.Context, id valueobjects.DatasetID, label string, limit int) ([]ports.Node, error) {
	partition, err := partitionLabel(id)
	if err != nil {
		return nil, err
	}
	match := partition
	if label != "" {
		lbl, err := callerLabel("label", label)
		if err != nil {
			return nil, err
		}
		match += ":" + lbl
	}

	cypher := fmt.Sprintf("MATCH (n:%s) RETURN n ORDER BY id(n) LIMIT $limit", match)
	records, err := s.runner.Run(ctx, cypher, map[string]interface{}{"limit": int64(limit)}, false)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	nodes := make([]ports.Node, 0, len(records))
	for _, rec := range records {
		if n, ok := rec["n"].(ports.Node); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// Neighbors returns the nodes adjacent to nodeID in either direction
func (s *GraphStore) Neighbors(ctx context.Context, id valueobjects.DatasetID, nodeID int64) ([]ports.Neighbor, error) {
	partition, err := partitionLabel(id)
	if err != nil {
		return nil, err
	}

	cypher := fmt.Sprintf(
		"MATCH (n:%[1]s)-[r]-(m:%[1]s) WHERE id(n) = $node_id RETURN m, r ORDER BY id(m), id(r)",
		partition,
	)
	records, err := s.runner.Run(ctx, cypher, map[string]interface{}{"node_id": nodeID}, false)
	if err != nil {
		return nil, fmt.Errorf("neighbors: %w", err)
	}

	neighbors := make([]ports.Neighbor, 0, len(records))
	for _, rec := range records {
		n, okNode := rec["m"].(ports.Node)
		r, okRel := rec["r"].(ports.Relationship)
		if !okNode || !okRel {
			continue
		}
		neighbors = append(neighbors, ports.Neighbor{Node: n, Relationship: r})
	}
	return neighbors, nil
}

// ShortestPath finds an undirected shortest path whose nodes all lie in the
// partition. It returns nil when the endpoints are disconnected or absent.
func (s *GraphStore) ShortestPath(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64) (*ports.Path, error) {
	partition, err := partitionLabel(id)
	if err != nil {
		return nil, err
	}

	if fromID == toID {
		cypher := fmt.Sprintf("MATCH (a:%s) WHERE id(a) = $from_id RETURN a", partition)
		records, err := s.runner.Run(ctx, cypher, map[string]interface{}{"from_id": fromID}, false)
		if err != nil {
			return nil, fmt.Errorf("shortest path: %w", err)
		}
		if len(records) == 0 {
			return nil, nil
		}
		node, ok := records[0]["a"].(ports.Node)
		if !ok {
			return nil, nil
		}
		return &ports.Path{Length: 0, Nodes: []ports.Node{node}, Relationships: []ports.Relationship{}}, nil
	}

	cypher := fmt.Sprintf(
		"MATCH (a:%[1]s), (b:%[1]s) WHERE id(a) = $from_id AND id(b) = $to_id "+
			"MATCH p = shortestPath((a)-[*]-(b)) WHERE all(x IN nodes(p) WHERE x:%[1]s) RETURN p",
		partition,
	)
	records, err := s.runner.Run(ctx, cypher, map[string]interface{}{"from_id": fromID, "to_id": toID}, false)
	if err != nil {
		return nil, fmt.Errorf("shortest path: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	path, ok := records[0]["p"].(ports.Path)
	if !ok {
		return nil, nil
	}
	return &path, nil
}

// DeletePartition removes every node of the partition with its relationships
func (s *GraphStore) DeletePartition(ctx context.Context, id valueobjects.DatasetID) error {
	partition, err := partitionLabel(id)
	if err != nil {
		return err
	}
	cypher := fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", partition)
	if _, err := s.runner.Run(ctx, cypher, nil, true); err != nil {
		return fmt.Errorf("delete partition: %w", err)
	}
	return nil
}

// Execute runs a caller-written statement with no partition scoping
func (s *GraphStore) Execute(ctx context.Context, statement string, params map[string]interface{}) ([]ports.Row, error) {
	records, err := s.runner.Run(ctx, statement, nonNil(params), true)
	if err != nil {
		if isClientError(err) {
			return nil, fmt.Errorf("execute statement: %w: %w", ports.ErrStatementRejected, err)
		}
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	rows := make([]ports.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, ports.Row(rec))
	}
	return rows, nil
}

// Ping checks connectivity
func (s *GraphStore) Ping(ctx context.Context) error {
	return s.runner.Ping(ctx)
}

// isClientError reports whether the server classified err as the client's fault,
// such as a syntax error or a constraint violation
func isClientError(err error) bool {
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && neoErr.Classification() == "ClientError"
}

func partitionLabel(id valueobjects.DatasetID) (string, error) {
	name, err := valueobjects.PartitionLabel(id)
	if err != nil {
		return "", err
	}
	return validators.QuoteCypher("partition label", name)
}

// callerLabel validates a label or relationship type supplied by a caller
func callerLabel(kind, name string) (string, error) {
	if valueobjects.IsReservedLabel(name) {
		return "", pkgerrors.NewSchemaError(fmt.Sprintf("%s %q uses a reserved prefix", kind, name))
	}
	quoted, err := validators.QuoteCypher(kind, name)
	if err != nil {
		return "", pkgerrors.NewSchemaError(err.Error())
	}
	return quoted, nil
}

func nonNil(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
