package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"dataworkspace/application/ports"
	"dataworkspace/domain/core/entities"
	pkgerrors "dataworkspace/pkg/errors"
	"dataworkspace/pkg/observability"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

const (
	ExportStatusOK    = "ok"
	ExportStatusError = "error"

	manifestFile = "manifest.json"
)

// ExportLimits caps how much of each dataset goes into a bundle
type ExportLimits struct {
	MaxRows  int
	MaxNodes int
}

// ExportEntry describes one dataset's file in a bundle
type ExportEntry struct {
	DatasetID string `json:"dataset_id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	File      string `json:"file"`
	Status    string `json:"status"`
	Records   int    `json:"records"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ExportManifest lists every dataset of an exported session
type ExportManifest struct {
	SessionID   string        `json:"session_id"`
	SessionName string        `json:"session_name"`
	ExportedAt  time.Time     `json:"exported_at"`
	Datasets    []ExportEntry `json:"datasets"`
}

type bundleFile struct {
	name string
	data []byte
}

// ExportBundle is an assembled session export, ready to be written as a ZIP archive
type ExportBundle struct {
	Manifest ExportManifest
	files    []bundleFile
}

// Partial reports whether any dataset failed to export
func (b *ExportBundle) Partial() bool {
	for _, e := range b.Manifest.Datasets {
		if e.Status != ExportStatusOK {
			return true
		}
	}
	return false
}

// FileNames returns the archive's file names in order, manifest last
func (b *ExportBundle) FileNames() []string {
	names := make([]string, 0, len(b.files)+1)
	for _, f := range b.files {
		names = append(names, f.name)
	}
	return append(names, manifestFile)
}

// WriteZip writes every dataset file followed by manifest.json
func (b *ExportBundle) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	modified := b.Manifest.ExportedAt
	for _, f := range b.files {
		if err := writeZipEntry(zw, f.name, f.data, modified); err != nil {
			return err
		}
	}
	manifest, err := json.MarshalIndent(b.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := writeZipEntry(zw, manifestFile, manifest, modified); err != nil {
		return err
	}
	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ExportService aggregates every dataset of a session into one bundle
type ExportService struct {
	registry *Registry
	tabular  ports.TabularStore
	graph    ports.GraphStore
	limits   ExportLimits
	metrics  *observability.Collector
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService creates a new export service
func NewExportService(
	registry *Registry,
	tabular ports.TabularStore,
	graph ports.GraphStore,
	limits ExportLimits,
	metrics *observability.Collector,
	logger *zap.Logger,
) *ExportService {
	return &ExportService{
		registry: registry,
		tabular:  tabular,
		graph:    graph,
		limits:   limits,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// ExportSession exports tabular datasets as CSV and graph datasets as JSON node
// documents. Each dataset is exported on its own: a failure leaves an error marker
// file in place of the data and the rest of the bundle is still produced.
// Relationships are not exported.
func (s *ExportService) ExportSession(ctx context.Context, sessionID, callerID string) (*ExportBundle, error) {
	session, err := s.registry.ResolveSession(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	datasets, err := s.registry.ListDatasets(ctx, sessionID, callerID, "")
	if err != nil {
		return nil, err
	}

	bundle := &ExportBundle{
		Manifest: ExportManifest{
			SessionID:   session.ID(),
			SessionName: session.Name(),
			ExportedAt:  s.now().UTC(),
			Datasets:    make([]ExportEntry, 0, len(datasets)),
		},
	}
	names := newFileNamer()

	for _, dataset := range datasets {
		ext := "csv"
		if dataset.Kind() == entities.DatasetKindGraph {
			ext = "json"
		}
		base := names.next(dataset)
		entry := ExportEntry{
			DatasetID: dataset.ID().String(),
			Name:      dataset.Name(),
			Kind:      string(dataset.Kind()),
		}

		data, records, truncated, err := s.exportDataset(ctx, dataset)
		if err != nil {
			entry.File = base + ".error.txt"
			entry.Status = ExportStatusError
			entry.Error = exportErrorMessage(err)
			bundle.files = append(bundle.files, bundleFile{name: entry.File, data: []byte(entry.Error + "\n")})
			s.logger.Warn("Dataset export failed",
				zap.String("session_id", sessionID),
				zap.String("dataset_id", entry.DatasetID),
				zap.Error(err),
			)
		} else {
			entry.File = base + "." + ext
			entry.Status = ExportStatusOK
			entry.Records = records
			entry.Truncated = truncated
			bundle.files = append(bundle.files, bundleFile{name: entry.File, data: data})
		}
		bundle.Manifest.Datasets = append(bundle.Manifest.Datasets, entry)
	}

	status := "complete"
	if bundle.Partial() {
		status = "partial"
	}
	s.metrics.ExportFinished(status)
	s.logger.Info("Session exported",
		zap.String("session_id", sessionID),
		zap.Int("datasets", len(datasets)),
		zap.String("status", status),
	)
	return bundle, nil
}

func (s *ExportService) exportDataset(ctx context.Context, dataset *entities.Dataset) ([]byte, int, bool, error) {
	switch dataset.Kind() {
	case entities.DatasetKindTabular:
		rows, err := s.tabular.QueryRows(ctx, dataset.ID(), dataset.Schema(), ports.RowQuery{Limit: s.limits.MaxRows})
		if err != nil {
			return nil, 0, false, storeError(err, storeRelational, "export", dataset.ID())
		}
		data, err := encodeCSV(dataset.Schema().HeaderNames(), rows)
		if err != nil {
			return nil, 0, false, err
		}
		return data, len(rows), len(rows) >= s.limits.MaxRows, nil

	case entities.DatasetKindGraph:
		nodes, err := s.graph.ListNodes(ctx, dataset.ID(), "", s.limits.MaxNodes)
		if err != nil {
			return nil, 0, false, storeError(err, storeGraph, "export", dataset.ID())
		}
		data, err := json.MarshalIndent(graphDocument{Nodes: nodes, Links: []ports.Relationship{}}, "", "  ")
		if err != nil {
			return nil, 0, false, fmt.Errorf("encode graph: %w", err)
		}
		return data, len(nodes), len(nodes) >= s.limits.MaxNodes, nil

	default:
		return nil, 0, false, fmt.Errorf("unknown dataset kind %q", dataset.Kind())
	}
}

// graphDocument is the node-link layout used for graph exports
type graphDocument struct {
	Nodes []ports.Node         `json:"nodes"`
	Links []ports.Relationship `json:"links"`
}

// encodeCSV writes a header row and one record per row, in header order
func encodeCSV(header []string, rows []ports.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = csvValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}

// exportErrorMessage keeps engine internals out of the bundle
func exportErrorMessage(err error) string {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		return fmt.Sprintf("%s: %s", appErr.Type, appErr.Message)
	}
	return "export failed"
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// fileNamer turns dataset names into unique archive file names
type fileNamer struct {
	used map[string]int
}

func newFileNamer() *fileNamer {
	return &fileNamer{used: make(map[string]int)}
}

func (n *fileNamer) next(dataset *entities.Dataset) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(dataset.Name(), "_"), " ._")
	if base == "" {
		base = dataset.ID().String()
	}
	key := strings.ToLower(base)
	n.used[key]++
	if count := n.used[key]; count > 1 {
		candidate := fmt.Sprintf("%s_%d", base, count)
		for n.used[strings.ToLower(candidate)] > 0 {
			count++
			candidate = fmt.Sprintf("%s_%d", base, count)
		}
		n.used[strings.ToLower(candidate)]++
		return candidate
	}
	return base
}
