package entities

import (
	"encoding/json"
	"strings"
	"time"

	"dataworkspace/domain/core/valueobjects"
	"dataworkspace/domain/events"
	pkgerrors "dataworkspace/pkg/errors"
)

const maxDatasetNameLength = 200

// DatasetKind says which backing store holds a dataset's data
type DatasetKind string

const (
	DatasetKindTabular DatasetKind = "tabular"
	DatasetKindGraph   DatasetKind = "graph"
)

// Valid reports whether k is a known kind
func (k DatasetKind) Valid() bool {
	return k == DatasetKindTabular || k == DatasetKindGraph
}

// Dataset is a named collection of tabular rows or graph nodes inside one session
type Dataset struct {
	id        valueobjects.DatasetID
	sessionID string
	name      string
	kind      DatasetKind
	schema    valueobjects.Schema
	createdAt time.Time

	events []events.DomainEvent
}

// NewTabularDataset creates a tabular dataset with an already validated schema
func NewTabularDataset(sessionID, name string, schema valueobjects.Schema, now time.Time) (*Dataset, error) {
	if schema.Len() == 0 {
		return nil, pkgerrors.NewSchemaError("schema must define at least one column")
	}
	return newDataset(sessionID, name, DatasetKindTabular, schema, now)
}

// NewGraphDataset creates a graph dataset
func NewGraphDataset(sessionID, name string, now time.Time) (*Dataset, error) {
	return newDataset(sessionID, name, DatasetKindGraph, valueobjects.Schema{}, now)
}

func newDataset(sessionID, name string, kind DatasetKind, schema valueobjects.Schema, now time.Time) (*Dataset, error) {
	if sessionID == "" {
		return nil, pkgerrors.NewValidationError("session cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("dataset name cannot be empty")
	}
	if len(name) > maxDatasetNameLength {
		return nil, pkgerrors.NewValidationError("dataset name is too long")
	}

	d := &Dataset{
		id:        valueobjects.NewDatasetID(),
		sessionID: sessionID,
		name:      name,
		kind:      kind,
		schema:    schema,
		createdAt: now.UTC(),
	}
	d.events = append(d.events, events.NewDatasetCreated(d.id.String(), sessionID, string(kind), now))
	return d, nil
}

// ReconstructDataset rebuilds a dataset from storage
func ReconstructDataset(id valueobjects.DatasetID, sessionID, name string, kind DatasetKind, schema valueobjects.Schema, createdAt time.Time) *Dataset {
	return &Dataset{
		id:        id,
		sessionID: sessionID,
		name:      name,
		kind:      kind,
		schema:    schema,
		createdAt: createdAt,
	}
}

func (d *Dataset) ID() valueobjects.DatasetID  { return d.id }
func (d *Dataset) SessionID() string           { return d.sessionID }
func (d *Dataset) Name() string                { return d.name }
func (d *Dataset) Kind() DatasetKind           { return d.kind }
func (d *Dataset) Schema() valueobjects.Schema { return d.schema }
func (d *Dataset) CreatedAt() time.Time        { return d.createdAt }

// MarkDeleted records the deletion event
func (d *Dataset) MarkDeleted(now time.Time) {
	d.events = append(d.events, events.NewDatasetDeleted(d.id.String(), d.sessionID, string(d.kind), now))
}

// PullEvents returns and clears pending domain events
func (d *Dataset) PullEvents() []events.DomainEvent {
	pending := d.events
	d.events = nil
	return pending
}

// MarshalJSON renders the public view of a dataset
func (d *Dataset) MarshalJSON() ([]byte, error) {
	view := struct {
		ID        valueobjects.DatasetID `json:"id"`
		SessionID string                 `json:"session_id"`
		Name      string                 `json:"name"`
		Kind      DatasetKind            `json:"kind"`
		Schema    *valueobjects.Schema   `json:"schema,omitempty"`
		CreatedAt time.Time              `json:"created_at"`
	}{
		ID:        d.id,
		SessionID: d.sessionID,
		Name:      d.name,
		Kind:      d.kind,
		CreatedAt: d.createdAt,
	}
	if d.kind == DatasetKindTabular {
		schema := d.schema
		view.Schema = &schema
	}
	return json.Marshal(view)
}
