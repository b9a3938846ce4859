package events

import (
	"time"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

func newBase(aggregateID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   timestamp.UTC(),
		Version:     1,
	}
}

// Event types
const (
	EventTypeSessionCreated           = "session.created"
	EventTypeSessionDeleted           = "session.deleted"
	EventTypeDatasetCreated           = "dataset.created"
	EventTypeDatasetDeleted           = "dataset.deleted"
	EventTypePhysicalResourceOrphaned = "physical_resource.orphaned"
)

// Session Events

// SessionCreated is raised when a caller opens a new session
type SessionCreated struct {
	BaseEvent
	SessionID string `json:"session_id"`
	OwnerID   string `json:"owner_id"`
}

// NewSessionCreated creates a SessionCreated event
func NewSessionCreated(sessionID, ownerID string, timestamp time.Time) SessionCreated {
	return SessionCreated{
		BaseEvent: newBase(sessionID, EventTypeSessionCreated, timestamp),
		SessionID: sessionID,
		OwnerID:   ownerID,
	}
}

// SessionDeleted is raised after a session and its dataset records are removed
type SessionDeleted struct {
	BaseEvent
	SessionID    string `json:"session_id"`
	OwnerID      string `json:"owner_id"`
	DatasetCount int    `json:"dataset_count"`
}

// NewSessionDeleted creates a SessionDeleted event
func NewSessionDeleted(sessionID, ownerID string, datasetCount int, timestamp time.Time) SessionDeleted {
	return SessionDeleted{
		BaseEvent:    newBase(sessionID, EventTypeSessionDeleted, timestamp),
		SessionID:    sessionID,
		OwnerID:      ownerID,
		DatasetCount: datasetCount,
	}
}

// Dataset Events

// DatasetCreated is raised once a dataset's record and physical resource both exist
type DatasetCreated struct {
	BaseEvent
	DatasetID string `json:"dataset_id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
}

// NewDatasetCreated creates a DatasetCreated event
func NewDatasetCreated(datasetID, sessionID, kind string, timestamp time.Time) DatasetCreated {
	return DatasetCreated{
		BaseEvent: newBase(datasetID, EventTypeDatasetCreated, timestamp),
		DatasetID: datasetID,
		SessionID: sessionID,
		Kind:      kind,
	}
}

// DatasetDeleted is raised when a dataset is removed
type DatasetDeleted struct {
	BaseEvent
	DatasetID string `json:"dataset_id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
}

// NewDatasetDeleted creates a DatasetDeleted event
func NewDatasetDeleted(datasetID, sessionID, kind string, timestamp time.Time) DatasetDeleted {
	return DatasetDeleted{
		BaseEvent: newBase(datasetID, EventTypeDatasetDeleted, timestamp),
		DatasetID: datasetID,
		SessionID: sessionID,
		Kind:      kind,
	}
}

// PhysicalResourceOrphaned is raised when a table or graph partition outlives its
// dataset record and needs manual cleanup.
type PhysicalResourceOrphaned struct {
	BaseEvent
	DatasetID string `json:"dataset_id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Resource  string `json:"resource"`
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}

// NewPhysicalResourceOrphaned creates a PhysicalResourceOrphaned event
func NewPhysicalResourceOrphaned(datasetID, sessionID, kind, resource, operation, reason string, timestamp time.Time) PhysicalResourceOrphaned {
	return PhysicalResourceOrphaned{
		BaseEvent: newBase(datasetID, EventTypePhysicalResourceOrphaned, timestamp),
		DatasetID: datasetID,
		SessionID: sessionID,
		Kind:      kind,
		Resource:  resource,
		Operation: operation,
		Reason:    reason,
	}
}
