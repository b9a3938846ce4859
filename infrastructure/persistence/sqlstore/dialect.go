package sqlstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dataworkspace/domain/core/valueobjects"

	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Dialect captures the differences between the relational engines the store runs on
type Dialect interface {
	// Name identifies the dialect in config and logs
	Name() string
	// DriverName is the database/sql driver to open
	DriverName() string
	// Rebind rewrites ? placeholders into the engine's native form
	Rebind(query string) string
	// BindNamed rewrites :name parameters into native positional placeholders
	BindNamed(statement string, params map[string]interface{}) (string, []interface{}, error)
	// ColumnType maps an allow-listed type tag onto engine DDL
	ColumnType(t valueobjects.ColumnType) (string, error)
	// IDColumn is the DDL for the synthetic auto-increment key
	IDColumn() string
	// TableSuffix is appended after the closing parenthesis of CREATE TABLE
	TableSuffix() string
	// MaxParams is the number of bound parameters one statement may carry
	MaxParams() int
	// IsDataError reports whether the engine rejected a value rather than failed
	IsDataError(err error) bool
}

// DialectFor returns the dialect registered under name
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported relational driver %q", name)
	}
}

type postgresDialect struct{}

var postgresTypes = map[valueobjects.ColumnType]string{
	valueobjects.ColumnVarchar:   "VARCHAR",
	valueobjects.ColumnText:      "TEXT",
	valueobjects.ColumnInteger:   "INTEGER",
	valueobjects.ColumnBigint:    "BIGINT",
	valueobjects.ColumnSmallint:  "SMALLINT",
	valueobjects.ColumnReal:      "REAL",
	valueobjects.ColumnFloat:     "DOUBLE PRECISION",
	valueobjects.ColumnDouble:    "DOUBLE PRECISION",
	valueobjects.ColumnNumeric:   "NUMERIC",
	valueobjects.ColumnBoolean:   "BOOLEAN",
	valueobjects.ColumnDate:      "DATE",
	valueobjects.ColumnTimestamp: "TIMESTAMP",
	valueobjects.ColumnJSON:      "JSONB",
}

func (postgresDialect) Name() string       { return "postgres" }
func (postgresDialect) DriverName() string { return "postgres" }
func (postgresDialect) IDColumn() string   { return `"id" BIGSERIAL PRIMARY KEY` }
func (postgresDialect) TableSuffix() string {
	return ""
}
func (postgresDialect) MaxParams() int { return 65535 }

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgresDialect) BindNamed(statement string, params map[string]interface{}) (string, []interface{}, error) {
	return bindNamed(statement, params, func(n int) string { return "$" + strconv.Itoa(n) }, true)
}

func (postgresDialect) ColumnType(t valueobjects.ColumnType) (string, error) {
	ddl, ok := postgresTypes[t]
	if !ok {
		return "", fmt.Errorf("unsupported column type %q", t)
	}
	return ddl, nil
}

func (postgresDialect) IsDataError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	class := pqErr.Code.Class()
	// 22: data exception, 23: integrity constraint violation
	return class == "22" || class == "23"
}

type sqliteDialect struct{}

var sqliteTypes = map[valueobjects.ColumnType]string{
	valueobjects.ColumnVarchar:   "TEXT",
	valueobjects.ColumnText:      "TEXT",
	valueobjects.ColumnInteger:   "INTEGER",
	valueobjects.ColumnBigint:    "INTEGER",
	valueobjects.ColumnSmallint:  "INTEGER",
	valueobjects.ColumnReal:      "REAL",
	valueobjects.ColumnFloat:     "REAL",
	valueobjects.ColumnDouble:    "REAL",
	valueobjects.ColumnNumeric:   "REAL",
	valueobjects.ColumnBoolean:   "INTEGER",
	valueobjects.ColumnDate:      "TEXT",
	valueobjects.ColumnTimestamp: "TEXT",
	valueobjects.ColumnJSON:      "TEXT",
}

const (
	sqliteConstraint = 19
	sqliteMismatch   = 20
	sqliteTooBig     = 18
)

func (sqliteDialect) Name() string               { return "sqlite" }
func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) IDColumn() string           { return `"id" INTEGER PRIMARY KEY AUTOINCREMENT` }
func (sqliteDialect) TableSuffix() string        { return " STRICT" }
func (sqliteDialect) MaxParams() int             { return 32766 }
func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) BindNamed(statement string, params map[string]interface{}) (string, []interface{}, error) {
	return bindNamed(statement, params, func(int) string { return "?" }, false)
}

func (sqliteDialect) ColumnType(t valueobjects.ColumnType) (string, error) {
	ddl, ok := sqliteTypes[t]
	if !ok {
		return "", fmt.Errorf("unsupported column type %q", t)
	}
	return ddl, nil
}

func (sqliteDialect) IsDataError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqliteConstraint, sqliteMismatch, sqliteTooBig:
		return true
	}
	return false
}
