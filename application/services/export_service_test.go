package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/valueobjects"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingQuery makes every row read fail
type failingQuery struct {
	ports.TabularStore
}

func (f failingQuery) QueryRows(ctx context.Context, id valueobjects.DatasetID, schema valueobjects.Schema, q ports.RowQuery) ([]ports.Row, error) {
	return nil, errors.New(`pq: relation "dataset_deadbeef" does not exist`)
}

func readZip(t *testing.T, bundle *ExportBundle) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bundle.WriteZip(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	files := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		files[f.Name] = string(data)
	}
	return files
}

func TestExportService_BundlesEveryDataset(t *testing.T) {
	// Arrange
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)

	people, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "people", peopleColumns(t))
	require.NoError(t, err)
	_, err = w.rows.InsertRows(ctx, session.ID(), people.ID().String(), alice, []ports.Row{
		{"name": "Alice", "age": 30},
		{"name": "Bob, Jr.", "age": 25},
	})
	require.NoError(t, err)
	_, err = w.registry.CreateTabularDataset(ctx, session.ID(), alice, "people", peopleColumns(t))
	require.NoError(t, err)
	_, err = w.registry.CreateTabularDataset(ctx, session.ID(), alice, "../../etc/passwd", peopleColumns(t))
	require.NoError(t, err)

	graph, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "friends")
	require.NoError(t, err)
	_, err = w.graphs.CreateNode(ctx, session.ID(), graph.ID().String(), alice, "Person", map[string]interface{}{"name": "A"})
	require.NoError(t, err)

	// Act
	bundle, err := w.export.ExportSession(ctx, session.ID(), alice)
	require.NoError(t, err)
	files := readZip(t, bundle)

	// Assert
	assert.False(t, bundle.Partial())
	assert.ElementsMatch(t,
		[]string{"people.csv", "people_2.csv", "etc_passwd.csv", "friends.json", "manifest.json"},
		bundle.FileNames(),
	)
	assert.Equal(t, "id,name,age\n1,Alice,30\n2,\"Bob, Jr.\",25\n", files["people.csv"])
	assert.Equal(t, "id,name,age\n", files["people_2.csv"])

	var doc struct {
		Nodes []ports.Node         `json:"nodes"`
		Links []ports.Relationship `json:"links"`
	}
	require.NoError(t, json.Unmarshal([]byte(files["friends.json"]), &doc))
	require.Len(t, doc.Nodes, 1)
	assert.Equal(t, "A", doc.Nodes[0].Properties["name"])
	assert.Equal(t, []string{"Person"}, doc.Nodes[0].Labels)
	assert.Empty(t, doc.Links)

	var manifest ExportManifest
	require.NoError(t, json.Unmarshal([]byte(files["manifest.json"]), &manifest))
	assert.Equal(t, session.ID(), manifest.SessionID)
	require.Len(t, manifest.Datasets, 4)
	assert.Equal(t, 2, manifest.Datasets[0].Records)
}

func TestExportService_FailuresBecomeMarkers(t *testing.T) {
	// Arrange
	ctx := context.Background()
	w := newWorkspace(t, func(s ports.TabularStore) ports.TabularStore { return failingQuery{s} }, nil)
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	_, err = w.registry.CreateTabularDataset(ctx, session.ID(), alice, "broken", peopleColumns(t))
	require.NoError(t, err)
	graph, err := w.registry.CreateGraphDataset(ctx, session.ID(), alice, "fine")
	require.NoError(t, err)
	_, err = w.graphs.CreateNode(ctx, session.ID(), graph.ID().String(), alice, "N", nil)
	require.NoError(t, err)

	// Act
	bundle, err := w.export.ExportSession(ctx, session.ID(), alice)

	// Assert
	require.NoError(t, err, "one failed dataset does not abort the export")
	assert.True(t, bundle.Partial())
	files := readZip(t, bundle)

	marker, ok := files["broken.error.txt"]
	require.True(t, ok)
	assert.Contains(t, marker, string(pkgerrors.ErrorTypeBackingStore))
	assert.NotContains(t, marker, "dataset_deadbeef")
	assert.Contains(t, files, "fine.json")

	var manifest ExportManifest
	require.NoError(t, json.Unmarshal([]byte(files["manifest.json"]), &manifest))
	assert.Equal(t, ExportStatusError, manifest.Datasets[0].Status)
	assert.Equal(t, ExportStatusOK, manifest.Datasets[1].Status)
}

func TestExportService_NotOwned(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	session, err := w.registry.CreateSession(ctx, bob, "s", "")
	require.NoError(t, err)

	_, err = w.export.ExportSession(ctx, session.ID(), alice)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestExportService_TruncatesAtCap(t *testing.T) {
	ctx := context.Background()
	w := newWorkspace(t, nil, nil)
	w.export.limits = ExportLimits{MaxRows: 1, MaxNodes: 1}
	session, err := w.registry.CreateSession(ctx, alice, "s", "")
	require.NoError(t, err)
	people, err := w.registry.CreateTabularDataset(ctx, session.ID(), alice, "people", peopleColumns(t))
	require.NoError(t, err)
	_, err = w.rows.InsertRows(ctx, session.ID(), people.ID().String(), alice, []ports.Row{
		{"name": "Alice", "age": 30},
		{"name": "Bob", "age": 25},
	})
	require.NoError(t, err)

	bundle, err := w.export.ExportSession(ctx, session.ID(), alice)
	require.NoError(t, err)

	require.Len(t, bundle.Manifest.Datasets, 1)
	assert.Equal(t, 1, bundle.Manifest.Datasets[0].Records)
	assert.True(t, bundle.Manifest.Datasets[0].Truncated)
	assert.Equal(t, "id,name,age\n1,Alice,30\n", readZip(t, bundle)["people.csv"])
}
