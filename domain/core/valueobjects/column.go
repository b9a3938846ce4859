package valueobjects

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"dataworkspace/domain/core/validators"
)

// IDColumn is the synthetic auto-increment key every table carries.
const IDColumn = "id"

// queryControlNames are the record query parameters that are not filters. A column
// with one of these names could never be filtered on, so it is refused.
var queryControlNames = map[string]struct{}{
	"limit":  {},
	"offset": {},
	"sort":   {},
	"select": {},
}

// IsQueryControl reports whether name is a record query parameter rather than a
// column filter
func IsQueryControl(name string) bool {
	_, ok := queryControlNames[name]
	return ok
}

// ColumnType is an allow-listed type tag for a tabular column.
type ColumnType string

const (
	ColumnVarchar   ColumnType = "VARCHAR"
	ColumnText      ColumnType = "TEXT"
	ColumnInteger   ColumnType = "INTEGER"
	ColumnBigint    ColumnType = "BIGINT"
	ColumnSmallint  ColumnType = "SMALLINT"
	ColumnReal      ColumnType = "REAL"
	ColumnFloat     ColumnType = "FLOAT"
	ColumnDouble    ColumnType = "DOUBLE"
	ColumnNumeric   ColumnType = "NUMERIC"
	ColumnBoolean   ColumnType = "BOOLEAN"
	ColumnDate      ColumnType = "DATE"
	ColumnTimestamp ColumnType = "TIMESTAMP"
	ColumnJSON      ColumnType = "JSON"
)

var columnTypes = map[ColumnType]struct{}{
	ColumnVarchar: {}, ColumnText: {}, ColumnInteger: {}, ColumnBigint: {},
	ColumnSmallint: {}, ColumnReal: {}, ColumnFloat: {}, ColumnDouble: {},
	ColumnNumeric: {}, ColumnBoolean: {}, ColumnDate: {}, ColumnTimestamp: {},
	ColumnJSON: {},
}

// ParseColumnType normalizes a tag and checks it against the allow-list.
func ParseColumnType(tag string) (ColumnType, error) {
	t := ColumnType(strings.ToUpper(strings.TrimSpace(tag)))
	if _, ok := columnTypes[t]; !ok {
		return "", fmt.Errorf("unsupported column type %q", tag)
	}
	return t, nil
}

// Column is one named, typed column of a schema.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is the ordered column list of a tabular dataset, excluding the synthetic id.
type Schema struct {
	columns []Column
}

// NewSchema validates column definitions in order. Names must be safe identifiers,
// unique ignoring case and must not shadow the synthetic id column.
func NewSchema(defs ColumnDefs) (Schema, error) {
	if len(defs) == 0 {
		return Schema{}, fmt.Errorf("schema must define at least one column")
	}
	seen := make(map[string]struct{}, len(defs))
	columns := make([]Column, 0, len(defs))
	for _, def := range defs {
		if err := validators.ValidateIdentifier("column", def.Name); err != nil {
			return Schema{}, err
		}
		key := strings.ToLower(def.Name)
		if key == IDColumn || IsQueryControl(key) {
			return Schema{}, fmt.Errorf("column name %q is reserved", def.Name)
		}
		if _, dup := seen[key]; dup {
			return Schema{}, fmt.Errorf("duplicate column %q", def.Name)
		}
		seen[key] = struct{}{}
		typ, err := ParseColumnType(def.Type)
		if err != nil {
			return Schema{}, err
		}
		columns = append(columns, Column{Name: def.Name, Type: typ})
	}
	return Schema{columns: columns}, nil
}

// Columns returns a copy of the user defined columns in declaration order.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Len returns the number of user defined columns.
func (s Schema) Len() int {
	return len(s.columns)
}

// Lookup finds a user defined column by exact name.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s.columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Queryable reports whether name may appear in a projection, filter or sort. The
// synthetic id column is always queryable.
func (s Schema) Queryable(name string) bool {
	if name == IDColumn {
		return true
	}
	_, ok := s.Lookup(name)
	return ok
}

// HeaderNames returns id followed by the user columns, the order rows are exported in.
func (s Schema) HeaderNames() []string {
	names := make([]string, 0, len(s.columns)+1)
	names = append(names, IDColumn)
	for _, c := range s.columns {
		names = append(names, c.Name)
	}
	return names
}

// MarshalJSON encodes the schema as an ordered list of columns.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s.columns == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.columns)
}

// UnmarshalJSON decodes the list form written by MarshalJSON.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var columns []Column
	if err := json.Unmarshal(data, &columns); err != nil {
		return err
	}
	defs := make(ColumnDefs, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, ColumnDef{Name: c.Name, Type: string(c.Type)})
	}
	parsed, err := NewSchema(defs)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ColumnDef is an unvalidated column definition as received from a caller.
type ColumnDef struct {
	Name string
	Type string
}

// ColumnDefs keeps caller column definitions in the order they were written.
// It decodes from a JSON object such as {"name": "VARCHAR", "age": "INTEGER"}.
type ColumnDefs []ColumnDef

// UnmarshalJSON walks the object token by token so order and duplicate keys survive.
func (d *ColumnDefs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("schema must be a JSON object of column name to type")
	}
	var defs ColumnDefs
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var typ string
		if err := dec.Decode(&typ); err != nil {
			return fmt.Errorf("type for column %q must be a string", key)
		}
		defs = append(defs, ColumnDef{Name: key, Type: typ})
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return err
	}
	*d = defs
	return nil
}
