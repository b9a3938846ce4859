package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Record is one result record with driver types converted by convertValue
type Record map[string]interface{}

// Runner executes Cypher statements. Each call is one auto-commit transaction.
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]interface{}, write bool) ([]Record, error)
	Ping(ctx context.Context) error
}

// Options configures the driver connection
type Options struct {
	URI      string
	Username string
	Password string
	Database string
}

// DriverRunner runs Cypher through the official driver. It owns the driver and must
// be closed at shutdown.
type DriverRunner struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewDriverRunner creates the driver and verifies the server is reachable
func NewDriverRunner(ctx context.Context, opts Options, logger *zap.Logger) (*DriverRunner, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("neo4j URI must not be empty")
	}
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	logger.Info("Graph store connected", zap.String("uri", opts.URI))
	return &DriverRunner{driver: driver, database: opts.Database, logger: logger}, nil
}

// Run executes cypher in its own session and collects every record
func (r *DriverRunner) Run(ctx context.Context, cypher string, params map[string]interface{}, write bool) ([]Record, error) {
	mode := neo4j.AccessModeRead
	if write {
		mode = neo4j.AccessModeWrite
	}
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
	defer func() {
		if err := session.Close(ctx); err != nil {
			r.logger.Warn("Failed to close neo4j session", zap.Error(err))
		}
	}()

	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(records))
	for _, rec := range records {
		row := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = convertValue(rec.Values[i])
		}
		out = append(out, row)
	}
	return out, nil
}

// Ping checks connectivity
func (r *DriverRunner) Ping(ctx context.Context) error {
	return r.driver.VerifyConnectivity(ctx)
}

// Close shuts the driver down
func (r *DriverRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}
