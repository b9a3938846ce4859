package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/validators"
	"dataworkspace/domain/core/valueobjects"
	pkgerrors "dataworkspace/pkg/errors"
)

type memNode struct {
	id     int64
	labels []string
	props  map[string]interface{}
}

type memRelationship struct {
	id      int64
	relType string
	start   int64
	end     int64
	props   map[string]interface{}
}

// GraphStore is an in-process graph shared by every graph dataset, partitioned by
// label the same way the Neo4j store is. Ids are global across partitions. It does
// not run caller-written statements.
type GraphStore struct {
	mu            sync.RWMutex
	nextID        int64
	nodes         map[int64]*memNode
	relationships map[int64]*memRelationship
}

// NewGraphStore creates an empty in-memory graph
func NewGraphStore() *GraphStore {
	return &GraphStore{
		nodes:         make(map[int64]*memNode),
		relationships: make(map[int64]*memRelationship),
	}
}

var _ ports.GraphStore = (*GraphStore)(nil)

// CreateNode creates a node carrying the partition label and the caller's label
func (s *GraphStore) CreateNode(ctx context.Context, id valueobjects.DatasetID, label string, props map[string]interface{}) (*ports.Node, error) {
	partition, err := valueobjects.PartitionLabel(id)
	if err != nil {
		return nil, err
	}
	if err := checkCallerLabel("label", label); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	n := &memNode{id: s.nextID, labels: []string{partition, label}, props: copyProps(props)}
	s.nodes[n.id] = n
	node := s.view(n)
	return &node, nil
}

// CreateRelationship links two nodes of the same partition, or returns nil when
// either endpoint is outside it
func (s *GraphStore) CreateRelationship(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64, relType string, props map[string]interface{}) (*ports.Relationship, error) {
	partition, err := valueobjects.PartitionLabel(id)
	if err != nil {
		return nil, err
	}
	if err := checkCallerLabel("relationship type", relType); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inPartition(fromID, partition) || !s.inPartition(toID, partition) {
		return nil, nil
	}
	s.nextID++
	r := &memRelationship{id: s.nextID, relType: relType, start: fromID, end: toID, props: copyProps(props)}
	s.relationships[r.id] = r
	rel := relView(r)
	return &rel, nil
}

// ListNodes returns up to limit nodes of the partition in id order
func (s *GraphStore) ListNodes(ctx context.Context, id valueobjects.DatasetID, label string, limit int) ([]ports.Node, error) {
	partition, err := valueobjects.PartitionLabel(id)
	if err != nil {
		return nil, err
	}
	if label != "" {
		if err := checkCallerLabel("label", label); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]ports.Node, 0)
	for _, nid := range s.sortedNodeIDs() {
		if len(nodes) >= limit {
			break
		}
		n := s.nodes[nid]
		if !hasLabel(n, partition) || (label != "" && !hasLabel(n, label)) {
			continue
		}
		nodes = append(nodes, s.view(n))
	}
	return nodes, nil
}

// Neighbors returns adjacent nodes in either direction within the partition
func (s *GraphStore) Neighbors(ctx context.Context, id valueobjects.DatasetID, nodeID int64) ([]ports.Neighbor, error) {
	partition, err := valueobjects.PartitionLabel(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	neighbors := make([]ports.Neighbor, 0)
	if !s.inPartition(nodeID, partition) {
		return neighbors, nil
	}
	for _, r := range s.adjacent(nodeID) {
		other := r.end
		if other == nodeID {
			other = r.start
		}
		if !s.inPartition(other, partition) {
			continue
		}
		neighbors = append(neighbors, ports.Neighbor{Node: s.view(s.nodes[other]), Relationship: relView(r)})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		if neighbors[i].Node.ID != neighbors[j].Node.ID {
			return neighbors[i].Node.ID < neighbors[j].Node.ID
		}
		return neighbors[i].Relationship.ID < neighbors[j].Relationship.ID
	})
	return neighbors, nil
}

// ShortestPath runs an undirected breadth-first search confined to the partition
func (s *GraphStore) ShortestPath(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64) (*ports.Path, error) {
	partition, err := valueobjects.PartitionLabel(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.inPartition(fromID, partition) || !s.inPartition(toID, partition) {
		return nil, nil
	}

	type step struct {
		prev int64
		via  *memRelationship
	}
	visited := map[int64]step{fromID: {}}
	queue := []int64{fromID}
	for len(queue) > 0 && !containsKey(visited, toID) {
		current := queue[0]
		queue = queue[1:]
		for _, r := range s.adjacent(current) {
			next := r.end
			if next == current {
				next = r.start
			}
			if _, seen := visited[next]; seen || !s.inPartition(next, partition) {
				continue
			}
			visited[next] = step{prev: current, via: r}
			queue = append(queue, next)
		}
	}
	if !containsKey(visited, toID) {
		return nil, nil
	}

	var nodes []ports.Node
	var rels []ports.Relationship
	for at := toID; ; {
		nodes = append(nodes, s.view(s.nodes[at]))
		if at == fromID {
			break
		}
		st := visited[at]
		rels = append(rels, relView(st.via))
		at = st.prev
	}
	reverseNodes(nodes)
	reverseRelationships(rels)
	if rels == nil {
		rels = []ports.Relationship{}
	}
	return &ports.Path{Length: len(rels), Nodes: nodes, Relationships: rels}, nil
}

// DeletePartition removes the partition's nodes and every relationship touching them
func (s *GraphStore) DeletePartition(ctx context.Context, id valueobjects.DatasetID) error {
	partition, err := valueobjects.PartitionLabel(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for nid, n := range s.nodes {
		if !hasLabel(n, partition) {
			continue
		}
		for rid, r := range s.relationships {
			if r.start == nid || r.end == nid {
				delete(s.relationships, rid)
			}
		}
		delete(s.nodes, nid)
	}
	return nil
}

// Execute is not supported by the in-memory graph
func (s *GraphStore) Execute(ctx context.Context, statement string, params map[string]interface{}) ([]ports.Row, error) {
	return nil, pkgerrors.NewValidationError("graph-pattern queries are not supported by the in-memory graph store")
}

// Ping always succeeds
func (s *GraphStore) Ping(ctx context.Context) error {
	return nil
}

// CountTagged reports how many nodes and relationships touch the partition
func (s *GraphStore) CountTagged(id valueobjects.DatasetID) (nodes, relationships int) {
	partition, err := valueobjects.PartitionLabel(id)
	if err != nil {
		return 0, 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if hasLabel(n, partition) {
			nodes++
		}
	}
	for _, r := range s.relationships {
		if s.inPartition(r.start, partition) || s.inPartition(r.end, partition) {
			relationships++
		}
	}
	return nodes, relationships
}

func (s *GraphStore) inPartition(nodeID int64, partition string) bool {
	n, ok := s.nodes[nodeID]
	return ok && hasLabel(n, partition)
}

func (s *GraphStore) adjacent(nodeID int64) []*memRelationship {
	var out []*memRelationship
	for _, r := range s.relationships {
		if r.start == nodeID || r.end == nodeID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (s *GraphStore) sortedNodeIDs() []int64 {
	ids := make([]int64, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *GraphStore) view(n *memNode) ports.Node {
	labels := make([]string, 0, len(n.labels))
	for _, l := range n.labels {
		if !valueobjects.IsReservedLabel(l) {
			labels = append(labels, l)
		}
	}
	return ports.Node{ID: n.id, Labels: labels, Properties: copyProps(n.props)}
}

func relView(r *memRelationship) ports.Relationship {
	return ports.Relationship{ID: r.id, Type: r.relType, StartID: r.start, EndID: r.end, Properties: copyProps(r.props)}
}

func checkCallerLabel(kind, name string) error {
	if valueobjects.IsReservedLabel(name) {
		return pkgerrors.NewSchemaError(fmt.Sprintf("%s %q uses a reserved prefix", kind, name))
	}
	if err := validators.ValidateIdentifier(kind, name); err != nil {
		return pkgerrors.NewSchemaError(err.Error())
	}
	return nil
}

func hasLabel(n *memNode, label string) bool {
	for _, l := range n.labels {
		if l == label {
			return true
		}
	}
	return false
}

func copyProps(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func containsKey[V any](m map[int64]V, k int64) bool {
	_, ok := m[k]
	return ok
}

func reverseNodes(s []ports.Node) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseRelationships(s []ports.Relationship) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
