package valueobjects

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatasetID(t *testing.T) {
	id := NewDatasetID()

	parsed, err := ParseDatasetID(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equals(id))

	rejected := []string{
		"",
		"not-a-uuid",
		strings.ToUpper(id.String()),
		"{" + id.String() + "}",
		"urn:uuid:" + id.String(),
		strings.ReplaceAll(id.String(), "-", ""),
		"00000000-0000-0000-0000-000000000000",
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8", // version 1
		"x'; DROP TABLE sessions; --",
	}
	for _, s := range rejected {
		_, err := ParseDatasetID(s)
		assert.ErrorIs(t, err, ErrInvalidDatasetID, s)
	}
}

func TestDatasetIDJSON(t *testing.T) {
	id := NewDatasetID()
	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded DatasetID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equals(id))
}

func TestPhysicalNames(t *testing.T) {
	allowed := regexp.MustCompile(`^[A-Za-z0-9_]+$`)

	t.Run("names use only safe characters and carry their prefix", func(t *testing.T) {
		id := NewDatasetID()
		table, err := TableName(id)
		require.NoError(t, err)
		label, err := PartitionLabel(id)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(table, TablePrefix))
		assert.True(t, strings.HasPrefix(label, PartitionPrefix))
		assert.Regexp(t, allowed, table)
		assert.Regexp(t, allowed, label)
		assert.Equal(t, strings.TrimPrefix(table, TablePrefix), strings.TrimPrefix(label, PartitionPrefix))
	})

	t.Run("distinct ids give distinct names", func(t *testing.T) {
		seen := make(map[string]string)
		for i := 0; i < 2000; i++ {
			id := NewDatasetID()
			table, err := TableName(id)
			require.NoError(t, err)
			prev, dup := seen[table]
			require.False(t, dup, "%s and %s collided", prev, id)
			seen[table] = id.String()
		}
	})

	t.Run("zero id is refused", func(t *testing.T) {
		_, err := TableName(DatasetID{})
		assert.Error(t, err)
		_, err = PartitionLabel(DatasetID{})
		assert.Error(t, err)
	})
}

func TestIsReservedLabel(t *testing.T) {
	assert.True(t, IsReservedLabel("Graph_0011"))
	assert.True(t, IsReservedLabel("graph_anything"))
	assert.False(t, IsReservedLabel("Person"))
	assert.False(t, IsReservedLabel("Graphic"))
}

func TestColumnDefsKeepsOrder(t *testing.T) {
	var defs ColumnDefs
	require.NoError(t, json.Unmarshal([]byte(`{"name":"VARCHAR","age":"INTEGER","active":"boolean"}`), &defs))

	require.Len(t, defs, 3)
	assert.Equal(t, "name", defs[0].Name)
	assert.Equal(t, "age", defs[1].Name)
	assert.Equal(t, "active", defs[2].Name)

	schema, err := NewSchema(defs)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age", "active"}, schema.HeaderNames())
	col, ok := schema.Lookup("active")
	require.True(t, ok)
	assert.Equal(t, ColumnBoolean, col.Type)
}

func TestNewSchemaRejects(t *testing.T) {
	cases := map[string]string{
		"unknown type":      `{"name":"BLOB"}`,
		"injection in type": `{"name":"VARCHAR); DROP TABLE x; --"}`,
		"bad column name":   `{"na me":"TEXT"}`,
		"reserved id":       `{"ID":"INTEGER"}`,
		"reserved limit":    `{"limit":"INTEGER"}`,
		"reserved sort":     `{"Sort":"TEXT"}`,
		"duplicate":         `{"name":"TEXT","Name":"TEXT"}`,
		"exact duplicate":   `{"name":"TEXT","name":"INTEGER"}`,
		"empty":             `{}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var defs ColumnDefs
			require.NoError(t, json.Unmarshal([]byte(raw), &defs))
			_, err := NewSchema(defs)
			assert.Error(t, err)
		})
	}
}

func TestColumnDefsRejectsNonObject(t *testing.T) {
	var defs ColumnDefs
	assert.Error(t, json.Unmarshal([]byte(`["name"]`), &defs))
	assert.Error(t, json.Unmarshal([]byte(`{"name": 5}`), &defs))
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	schema, err := NewSchema(ColumnDefs{{Name: "b", Type: "TEXT"}, {Name: "a", Type: "integer"}})
	require.NoError(t, err)

	data, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"b","type":"TEXT"},{"name":"a","type":"INTEGER"}]`, string(data))

	var decoded Schema
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, schema.Columns(), decoded.Columns())
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("age:desc")
	require.NoError(t, err)
	assert.Equal(t, &SortSpec{Column: "age", Descending: true}, s)

	s, err = ParseSort("age:DESC")
	require.NoError(t, err)
	assert.True(t, s.Descending)

	for _, raw := range []string{"age", "age:asc", "age:sideways", "age:"} {
		s, err = ParseSort(raw)
		require.NoError(t, err)
		assert.Equal(t, "ASC", s.Direction(), raw)
	}

	s, err = ParseSort("")
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = ParseSort(":desc")
	assert.Error(t, err)
}
