package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"dataworkspace/application/ports"
	pkgerrors "dataworkspace/pkg/errors"
)

// Executor runs caller-written statements against the relational engine. It does no
// statement-level sandboxing.
type Executor struct {
	db *Database
}

// NewExecutor creates an executor over an open database
func NewExecutor(db *Database) *Executor {
	return &Executor{db: db}
}

var _ ports.RelationalExecutor = (*Executor)(nil)

var returningClause = regexp.MustCompile(`(?i)\bRETURNING\b`)

var rowKeywords = map[string]struct{}{
	"SELECT": {}, "WITH": {}, "VALUES": {}, "SHOW": {}, "EXPLAIN": {}, "PRAGMA": {}, "TABLE": {},
}

// Execute runs statement inside a transaction that commits on success. params is
// either a positional []interface{} in the engine's native placeholder form or a map
// bound to :name parameters.
func (e *Executor) Execute(ctx context.Context, statement string, params interface{}) (*ports.RelationalResult, error) {
	statement, args, err := e.statementArgs(statement, params)
	if err != nil {
		return nil, err
	}

	var result *ports.RelationalResult
	err = e.db.withTx(ctx, func(tx *sql.Tx) error {
		if returnsRows(statement) {
			rows, err := tx.QueryContext(ctx, statement, args...)
			if err != nil {
				return err
			}
			defer rows.Close()
			collected, err := collectRows(rows)
			if err != nil {
				return err
			}
			result = &ports.RelationalResult{Rows: collected, ReturnsRows: true}
			return nil
		}

		res, err := tx.ExecContext(ctx, statement, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = -1
		}
		result = &ports.RelationalResult{RowsAffected: affected}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	return result, nil
}

func returnsRows(statement string) bool {
	fields := strings.Fields(strings.TrimLeft(statement, "( \t\r\n"))
	if len(fields) == 0 {
		return false
	}
	if _, ok := rowKeywords[strings.ToUpper(fields[0])]; ok {
		return true
	}
	return returningClause.MatchString(statement)
}

func (e *Executor) statementArgs(statement string, params interface{}) (string, []interface{}, error) {
	switch p := params.(type) {
	case nil:
		return statement, nil, nil
	case []interface{}:
		return statement, p, nil
	case map[string]interface{}:
		bound, args, err := e.db.dialect.BindNamed(statement, p)
		var missing *MissingParamError
		if errors.As(err, &missing) {
			return "", nil, pkgerrors.NewValidationError(missing.Error()).WithDetail("param", missing.Name)
		}
		if err != nil {
			return "", nil, err
		}
		return bound, args, nil
	default:
		return "", nil, pkgerrors.NewValidationError("params must be a list or an object")
	}
}
