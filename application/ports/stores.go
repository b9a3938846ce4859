package ports

import (
	"context"

	"dataworkspace/domain/core/valueobjects"
)

// Filter is an equality predicate on one column
type Filter struct {
	Column string
	Value  interface{}
}

// RowQuery describes a read against one tabular dataset
type RowQuery struct {
	Columns []string
	Filters []Filter
	Sort    *valueobjects.SortSpec
	Limit   int
	Offset  int
}

// Row is one result row keyed by column name
type Row map[string]interface{}

// TabularStore manages the table behind each tabular dataset. Every column name it
// receives is checked against the schema passed in.
type TabularStore interface {
	CreateTable(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema) error
	InsertRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, rows []Row) (int, error)
	QueryRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, query RowQuery) ([]Row, error)
	DropTable(ctx context.Context, id valueobjects.DatasetID) error
	Ping(ctx context.Context) error
}

// Node is a graph node as seen by callers. Labels never include the partition label.
type Node struct {
	ID         int64                  `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

// Relationship is a graph relationship as seen by callers
type Relationship struct {
	ID         int64                  `json:"id"`
	Type       string                 `json:"type"`
	StartID    int64                  `json:"start_id"`
	EndID      int64                  `json:"end_id"`
	Properties map[string]interface{} `json:"properties"`
}

// Neighbor is a node adjacent to another, with the connecting relationship
type Neighbor struct {
	Node         Node         `json:"node"`
	Relationship Relationship `json:"relationship"`
}

// Path is a shortest path between two nodes
type Path struct {
	Length        int            `json:"length"`
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
}

// GraphStore manages the partition behind each graph dataset inside a shared graph
// engine. Every operation is confined to the dataset's partition.
type GraphStore interface {
	CreateNode(ctx context.Context, id valueobjects.DatasetID, label string, props map[string]interface{}) (*Node, error)
	// CreateRelationship returns nil without error when either endpoint is not in the partition
	CreateRelationship(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64, relType string, props map[string]interface{}) (*Relationship, error)
	ListNodes(ctx context.Context, id valueobjects.DatasetID, label string, limit int) ([]Node, error)
	Neighbors(ctx context.Context, id valueobjects.DatasetID, nodeID int64) ([]Neighbor, error)
	// ShortestPath returns nil without error when no path exists
	ShortestPath(ctx context.Context, id valueobjects.DatasetID, fromID, toID int64) (*Path, error)
	DeletePartition(ctx context.Context, id valueobjects.DatasetID) error
	Execute(ctx context.Context, statement string, params map[string]interface{}) ([]Row, error)
	Ping(ctx context.Context) error
}

// RelationalResult is the outcome of a raw relational statement. Rows is set for
// statements that return rows, RowsAffected otherwise.
type RelationalResult struct {
	Rows         []Row
	RowsAffected int64
	ReturnsRows  bool
}

// RelationalExecutor runs caller-written statements against the relational engine
type RelationalExecutor interface {
	Execute(ctx context.Context, statement string, params interface{}) (*RelationalResult, error)
}
