package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/validators"
	"dataworkspace/domain/core/valueobjects"
	pkgerrors "dataworkspace/pkg/errors"

	"go.uber.org/zap"
)

// TabularStore keeps each tabular dataset in its own generated table
type TabularStore struct {
	db     *Database
	logger *zap.Logger
}

// NewTabularStore creates a tabular store over an open database
func NewTabularStore(db *Database, logger *zap.Logger) *TabularStore {
	return &TabularStore{db: db, logger: logger}
}

var _ ports.TabularStore = (*TabularStore)(nil)

// CreateTable creates the dataset's table with the synthetic id column followed by
// the schema's columns in order. An existing table is an error.
func (s *TabularStore) CreateTable(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema) error {
	table, err := quotedTable(id)
	if err != nil {
		return err
	}
	if schema.Len() == 0 {
		return pkgerrors.NewSchemaError("schema must define at least one column")
	}

	defs := []string{s.db.dialect.IDColumn()}
	for _, col := range schema.Columns() {
		name, err := validators.QuoteSQL("column", col.Name)
		if err != nil {
			return pkgerrors.NewSchemaError(err.Error())
		}
		typ, err := s.db.dialect.ColumnType(col.Type)
		if err != nil {
			return pkgerrors.NewSchemaError(err.Error())
		}
		defs = append(defs, name+" "+typ)
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)%s", table, strings.Join(defs, ", "), s.db.dialect.TableSuffix())
	if _, err := s.db.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	s.logger.Debug("Created dataset table", zap.String("dataset_id", id.String()))
	return nil
}

// InsertRows writes every row or none. All rows must use the same keys, each a column
// of the schema. The rows go out as one multi-row INSERT unless they exceed the
// engine's parameter limit, in which case the chunks share one transaction.
func (s *TabularStore) InsertRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, rows []ports.Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	table, err := quotedTable(id)
	if err != nil {
		return 0, err
	}

	columns, err := insertColumns(schema, rows[0])
	if err != nil {
		return 0, err
	}
	for i, row := range rows[1:] {
		if !sameKeys(row, columns) {
			return 0, pkgerrors.NewValidationError(fmt.Sprintf("row %d does not have the same columns as row 0", i+1)).
				WithDetail("row", i+1)
		}
	}

	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i], _ = validators.QuoteSQL("column", col.Name)
	}

	args := make([]interface{}, 0, len(rows)*len(columns))
	for i, row := range rows {
		for _, col := range columns {
			v, err := bindValue(col, row[col.Name])
			if err != nil {
				return 0, pkgerrors.NewValidationError(err.Error()).WithDetail("row", i).WithDetail("column", col.Name)
			}
			args = append(args, v)
		}
	}

	rowsPerStmt := s.db.dialect.MaxParams() / len(columns)
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", table, strings.Join(quoted, ", "))

	err = s.db.withTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(rows); start += rowsPerStmt {
			end := start + rowsPerStmt
			if end > len(rows) {
				end = len(rows)
			}
			values := strings.TrimSuffix(strings.Repeat(placeholder+", ", end-start), ", ")
			stmt := s.db.dialect.Rebind(prefix + values)
			if _, err := tx.ExecContext(ctx, stmt, args[start*len(columns):end*len(columns)]...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if s.db.dialect.IsDataError(err) {
			return 0, pkgerrors.NewValidationError("row values do not match the column types").WithCause(err)
		}
		return 0, fmt.Errorf("insert rows: %w", err)
	}
	return len(rows), nil
}

// QueryRows runs one parameterized SELECT. Column names in the projection, filters
// and sort must exist in the schema; filter values are always bound.
func (s *TabularStore) QueryRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, q ports.RowQuery) ([]ports.Row, error) {
	table, err := quotedTable(id)
	if err != nil {
		return nil, err
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, pkgerrors.NewValidationError("limit and offset must not be negative")
	}

	projection := "*"
	if len(q.Columns) > 0 {
		cols := make([]string, 0, len(q.Columns))
		for _, name := range q.Columns {
			quoted, err := queryableColumn(schema, "select", name)
			if err != nil {
				return nil, err
			}
			cols = append(cols, quoted)
		}
		projection = strings.Join(cols, ", ")
	}

	var b strings.Builder
	var args []interface{}
	fmt.Fprintf(&b, "SELECT %s FROM %s", projection, table)

	if len(q.Filters) > 0 {
		clauses := make([]string, 0, len(q.Filters))
		for _, f := range q.Filters {
			quoted, err := queryableColumn(schema, "filter", f.Column)
			if err != nil {
				return nil, err
			}
			if f.Value == nil {
				clauses = append(clauses, quoted+" IS NULL")
				continue
			}
			clauses = append(clauses, quoted+" = ?")
			args = append(args, f.Value)
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}

	orderBy := `"id" ASC`
	if q.Sort != nil {
		quoted, err := queryableColumn(schema, "sort", q.Sort.Column)
		if err != nil {
			return nil, err
		}
		orderBy = quoted + " " + q.Sort.Direction()
		if q.Sort.Column != valueobjects.IDColumn {
			orderBy += `, "id" ASC`
		}
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(orderBy)

	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.query(ctx, b.String(), args...)
	if err != nil {
		return nil, queryError(s.db.dialect, err, q.Filters)
	}
	defer rows.Close()

	result, err := collectRows(rows)
	if err != nil {
		return nil, queryError(s.db.dialect, err, q.Filters)
	}
	return result, nil
}

// queryError reports a filter value the engine could not compare against its
// column as a validation failure naming the filtered columns
func queryError(dialect Dialect, err error, filters []ports.Filter) error {
	if !dialect.IsDataError(err) {
		return fmt.Errorf("query rows: %w", err)
	}
	columns := make([]string, 0, len(filters))
	for _, f := range filters {
		columns = append(columns, f.Column)
	}
	appErr := pkgerrors.NewValidationError("filter values do not match the column types").WithCause(err)
	if len(columns) == 1 {
		return appErr.WithDetail("column", columns[0])
	}
	return appErr.WithDetail("columns", columns)
}

// DropTable removes the dataset's table. A missing table is not an error.
func (s *TabularStore) DropTable(ctx context.Context, id valueobjects.DatasetID) error {
	table, err := quotedTable(id)
	if err != nil {
		return err
	}
	if _, err := s.db.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (s *TabularStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func quotedTable(id valueobjects.DatasetID) (string, error) {
	name, err := valueobjects.TableName(id)
	if err != nil {
		return "", err
	}
	return validators.QuoteSQL("table", name)
}

func queryableColumn(schema valueobjects.Schema, role, name string) (string, error) {
	if !schema.Queryable(name) {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("unknown %s column %q", role, name)).WithDetail("column", name)
	}
	quoted, err := validators.QuoteSQL("column", name)
	if err != nil {
		return "", pkgerrors.NewValidationError(err.Error()).WithDetail("column", name)
	}
	return quoted, nil
}

// insertColumns resolves the first row's keys against the schema, in schema order
func insertColumns(schema valueobjects.Schema, first ports.Row) ([]valueobjects.Column, error) {
	if len(first) == 0 {
		return nil, pkgerrors.NewValidationError("row 0 has no columns")
	}
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := schema.Lookup(k); !ok {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown column %q", k)).WithDetail("column", k)
		}
	}

	columns := make([]valueobjects.Column, 0, len(keys))
	for _, col := range schema.Columns() {
		if _, ok := first[col.Name]; ok {
			columns = append(columns, col)
		}
	}
	return columns, nil
}

func sameKeys(row ports.Row, columns []valueobjects.Column) bool {
	if len(row) != len(columns) {
		return false
	}
	for _, col := range columns {
		if _, ok := row[col.Name]; !ok {
			return false
		}
	}
	return true
}

// bindValue accepts scalars for ordinary columns. JSON columns also take objects and
// arrays, which are stored as their encoded text.
func bindValue(col valueobjects.Column, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case nil, string, bool, int, int32, int64, float32, float64:
		return val, nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("value for column %q is not a number", col.Name)
		}
		return f, nil
	case map[string]interface{}, []interface{}:
		if col.Type != valueobjects.ColumnJSON {
			return nil, fmt.Errorf("value for column %q must be a scalar", col.Name)
		}
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("value for column %q cannot be encoded", col.Name)
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("unsupported value for column %q", col.Name)
	}
}

// collectRows reads every row into column-keyed maps. Byte slices become strings so
// results encode the same on every engine.
func collectRows(rows *sql.Rows) ([]ports.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]ports.Row, 0)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(ports.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
