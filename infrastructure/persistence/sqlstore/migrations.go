package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CatalogSchemaVersion is the newest catalog migration this build understands
const CatalogSchemaVersion = 1

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS workspace_sessions (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workspace_sessions_owner ON workspace_sessions(owner_id, created_at);
CREATE TABLE IF NOT EXISTS workspace_datasets (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL REFERENCES workspace_sessions(id) ON DELETE CASCADE,
  kind TEXT NOT NULL,
  name TEXT NOT NULL,
  schema_json TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workspace_datasets_session ON workspace_datasets(session_id, kind, created_at);
`,
	},
}

func (d *Database) migrate(ctx context.Context) error {
	if _, err := d.exec(ctx, `
CREATE TABLE IF NOT EXISTS workspace_schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("create schema migrations table: %w", err)
	}

	var current int
	if err := d.queryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM workspace_schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema migrations version: %w", err)
	}
	if current > CatalogSchemaVersion {
		return fmt.Errorf("catalog schema version %d is newer than supported version %d", current, CatalogSchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		m := m
		err := d.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return fmt.Errorf("apply migration %d: %w", m.version, err)
			}
			if _, err := tx.ExecContext(ctx,
				d.dialect.Rebind(`INSERT INTO workspace_schema_migrations(version, applied_at) VALUES (?, ?)`),
				m.version, formatTime(time.Now()),
			); err != nil {
				return fmt.Errorf("record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
