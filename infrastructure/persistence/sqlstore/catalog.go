package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/core/valueobjects"
)

// Catalog stores session and dataset metadata in the relational engine
type Catalog struct {
	db *Database
}

// NewCatalog creates a catalog over an open database
func NewCatalog(db *Database) *Catalog {
	return &Catalog{db: db}
}

var _ ports.Catalog = (*Catalog)(nil)

// CreateSession persists a new session
func (c *Catalog) CreateSession(ctx context.Context, session *entities.Session) error {
	_, err := c.db.exec(ctx,
		`INSERT INTO workspace_sessions (id, owner_id, name, description, created_at) VALUES (?, ?, ?, ?, ?)`,
		session.ID(), session.OwnerID(), session.Name(), session.Description(), formatTime(session.CreatedAt()),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (c *Catalog) GetSession(ctx context.Context, sessionID string) (*entities.Session, error) {
	row := c.db.queryRow(ctx,
		`SELECT id, owner_id, name, description, created_at FROM workspace_sessions WHERE id = ?`,
		sessionID,
	)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListSessionsByOwner returns the owner's sessions, oldest first
func (c *Catalog) ListSessionsByOwner(ctx context.Context, ownerID string) ([]*entities.Session, error) {
	rows, err := c.db.query(ctx,
		`SELECT id, owner_id, name, description, created_at FROM workspace_sessions WHERE owner_id = ? ORDER BY created_at, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*entities.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteSession removes a session and its dataset records in one transaction
func (c *Catalog) DeleteSession(ctx context.Context, sessionID string) error {
	return c.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			c.db.dialect.Rebind(`DELETE FROM workspace_datasets WHERE session_id = ?`), sessionID,
		); err != nil {
			return fmt.Errorf("delete session datasets: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			c.db.dialect.Rebind(`DELETE FROM workspace_sessions WHERE id = ?`), sessionID,
		)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ports.ErrRecordNotFound
		}
		return nil
	})
}

// CreateDataset persists a dataset record
func (c *Catalog) CreateDataset(ctx context.Context, dataset *entities.Dataset) error {
	schemaJSON := ""
	if dataset.Kind() == entities.DatasetKindTabular {
		data, err := json.Marshal(dataset.Schema())
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		schemaJSON = string(data)
	}

	_, err := c.db.exec(ctx,
		`INSERT INTO workspace_datasets (id, session_id, kind, name, schema_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		dataset.ID().String(), dataset.SessionID(), string(dataset.Kind()), dataset.Name(), schemaJSON, formatTime(dataset.CreatedAt()),
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

// GetDataset retrieves a dataset of the given kind. Both the id and the parent
// session must match.
func (c *Catalog) GetDataset(ctx context.Context, sessionID string, kind entities.DatasetKind, id valueobjects.DatasetID) (*entities.Dataset, error) {
	row := c.db.queryRow(ctx,
		`SELECT id, session_id, kind, name, schema_json, created_at FROM workspace_datasets WHERE id = ? AND session_id = ? AND kind = ?`,
		id.String(), sessionID, string(kind),
	)
	dataset, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return dataset, nil
}

// DatasetRegistered reports whether a record with the id exists in any session
func (c *Catalog) DatasetRegistered(ctx context.Context, id valueobjects.DatasetID) (bool, error) {
	var n int64
	if err := c.db.queryRow(ctx,
		`SELECT COUNT(*) FROM workspace_datasets WHERE id = ?`, id.String(),
	).Scan(&n); err != nil {
		return false, fmt.Errorf("count dataset: %w", err)
	}
	return n > 0, nil
}

// ListDatasets returns a session's datasets, optionally of one kind
func (c *Catalog) ListDatasets(ctx context.Context, sessionID string, kind entities.DatasetKind) ([]*entities.Dataset, error) {
	query := `SELECT id, session_id, kind, name, schema_json, created_at FROM workspace_datasets WHERE session_id = ?`
	args := []interface{}{sessionID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at, id`

	rows, err := c.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]*entities.Dataset, 0)
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		datasets = append(datasets, dataset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	return datasets, nil
}

// DeleteDataset removes a dataset record
func (c *Catalog) DeleteDataset(ctx context.Context, id valueobjects.DatasetID) error {
	res, err := c.db.exec(ctx, `DELETE FROM workspace_datasets WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete dataset: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

// Ping checks connectivity
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.Ping(ctx)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(s scanner) (*entities.Session, error) {
	var id, ownerID, name, description, createdAt string
	if err := s.Scan(&id, &ownerID, &name, &description, &createdAt); err != nil {
		return nil, err
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructSession(id, ownerID, name, description, ts), nil
}

func scanDataset(s scanner) (*entities.Dataset, error) {
	var rawID, sessionID, kind, name, schemaJSON, createdAt string
	if err := s.Scan(&rawID, &sessionID, &kind, &name, &schemaJSON, &createdAt); err != nil {
		return nil, err
	}
	id, err := valueobjects.ParseDatasetID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored dataset id %q: %w", rawID, err)
	}
	ts, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	var schema valueobjects.Schema
	if schemaJSON != "" {
		if err := json.Unmarshal([]byte(schemaJSON), &schema); err != nil {
			return nil, fmt.Errorf("decode schema for dataset %s: %w", rawID, err)
		}
	}
	return entities.ReconstructDataset(id, sessionID, name, entities.DatasetKind(kind), schema, ts), nil
}

// timeLayout is fixed width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	ts, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return ts, nil
}
