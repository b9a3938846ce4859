package services

import (
	"context"
	"errors"
	"strings"

	"dataworkspace/application/ports"
	pkgerrors "dataworkspace/pkg/errors"

	"go.uber.org/zap"
)

// QueryKind selects the engine a raw query runs on
type QueryKind string

const (
	QueryKindRelational   QueryKind = "relational"
	QueryKindGraphPattern QueryKind = "graph-pattern"
)

// ParseQueryKind accepts the two kinds and their aliases "sql" and "cypher", in any case
func ParseQueryKind(raw string) (QueryKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(QueryKindRelational), "sql":
		return QueryKindRelational, nil
	case string(QueryKindGraphPattern), "cypher":
		return QueryKindGraphPattern, nil
	default:
		return "", pkgerrors.NewValidationError("query type must be 'relational' or 'graph-pattern'").
			WithDetail("type", raw)
	}
}

// QueryRequest is a raw statement for one engine. Relational params may be a list
// (positional) or an object (named); graph params must be an object.
type QueryRequest struct {
	Query  string
	Kind   string
	Params interface{}
}

// QueryResult is what a raw statement produced
type QueryResult struct {
	Kind         QueryKind   `json:"type"`
	Rows         []ports.Row `json:"data"`
	Count        int         `json:"count"`
	RowsAffected *int64      `json:"rowcount,omitempty"`
}

// QueryRouter runs caller-written statements against the shared engines. The only
// scoping is session ownership; statements are not sandboxed.
type QueryRouter struct {
	registry   *Registry
	relational ports.RelationalExecutor
	graph      ports.GraphStore
	logger     *zap.Logger
}

// NewQueryRouter creates a new query router
func NewQueryRouter(registry *Registry, relational ports.RelationalExecutor, graph ports.GraphStore, logger *zap.Logger) *QueryRouter {
	return &QueryRouter{
		registry:   registry,
		relational: relational,
		graph:      graph,
		logger:     logger,
	}
}

// Execute checks session ownership and dispatches the statement on its kind
func (q *QueryRouter) Execute(ctx context.Context, sessionID, callerID string, req QueryRequest) (*QueryResult, error) {
	if _, err := q.registry.ResolveSession(ctx, sessionID, callerID); err != nil {
		return nil, err
	}
	kind, err := ParseQueryKind(req.Kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, pkgerrors.NewValidationError("query must not be empty")
	}

	q.logger.Info("Executing raw query",
		zap.String("session_id", sessionID),
		zap.String("type", string(kind)),
	)

	switch kind {
	case QueryKindRelational:
		return q.executeRelational(ctx, req)
	default:
		return q.executeGraph(ctx, req)
	}
}

func (q *QueryRouter) executeRelational(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	res, err := q.relational.Execute(ctx, req.Query, req.Params)
	if err != nil {
		return nil, pkgerrors.Classify(err, storeRelational, "execute")
	}
	if res.ReturnsRows {
		return &QueryResult{Kind: QueryKindRelational, Rows: res.Rows, Count: len(res.Rows)}, nil
	}
	affected := res.RowsAffected
	return &QueryResult{Kind: QueryKindRelational, RowsAffected: &affected}, nil
}

func (q *QueryRouter) executeGraph(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	var params map[string]interface{}
	switch p := req.Params.(type) {
	case nil:
	case map[string]interface{}:
		params = p
	default:
		return nil, pkgerrors.NewValidationError("graph-pattern params must be an object")
	}

	rows, err := q.graph.Execute(ctx, req.Query, params)
	if err != nil {
		if errors.Is(err, ports.ErrStatementRejected) {
			return nil, pkgerrors.NewBackingStoreError(storeGraph, "execute", err).WithCode("STATEMENT_REJECTED")
		}
		return nil, pkgerrors.Classify(err, storeGraph, "execute")
	}
	if rows == nil {
		rows = []ports.Row{}
	}
	return &QueryResult{Kind: QueryKindGraphPattern, Rows: rows, Count: len(rows)}, nil
}
