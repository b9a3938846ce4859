package ports

import (
	"context"
	"errors"

	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/core/valueobjects"
	"dataworkspace/domain/events"
)

// ErrRecordNotFound is returned by a Catalog when no record matches
var ErrRecordNotFound = errors.New("record not found")

// ErrStatementRejected marks a caller-written statement the engine refused as
// invalid. The engine itself is healthy.
var ErrStatementRejected = errors.New("statement rejected by engine")

// Catalog persists session and dataset metadata. It knows nothing about ownership
// rules; the registry enforces those.
type Catalog interface {
	// CreateSession persists a new session
	CreateSession(ctx context.Context, session *entities.Session) error

	// GetSession retrieves a session by ID
	GetSession(ctx context.Context, sessionID string) (*entities.Session, error)

	// ListSessionsByOwner returns the owner's sessions, oldest first
	ListSessionsByOwner(ctx context.Context, ownerID string) ([]*entities.Session, error)

	// DeleteSession removes a session and every dataset record under it in one transaction
	DeleteSession(ctx context.Context, sessionID string) error

	// CreateDataset persists a dataset record
	CreateDataset(ctx context.Context, dataset *entities.Dataset) error

	// GetDataset retrieves a dataset of the given kind inside a session
	GetDataset(ctx context.Context, sessionID string, kind entities.DatasetKind, id valueobjects.DatasetID) (*entities.Dataset, error)

	// DatasetRegistered reports whether any dataset record carries the id,
	// whatever its session or kind
	DatasetRegistered(ctx context.Context, id valueobjects.DatasetID) (bool, error)

	// ListDatasets returns a session's datasets of one kind, oldest first.
	// An empty kind lists every kind.
	ListDatasets(ctx context.Context, sessionID string, kind entities.DatasetKind) ([]*entities.Dataset, error)

	// DeleteDataset removes a dataset record
	DeleteDataset(ctx context.Context, id valueobjects.DatasetID) error

	// Ping checks connectivity
	Ping(ctx context.Context) error
}

// EventPublisher publishes domain events to an operations channel
type EventPublisher interface {
	Publish(ctx context.Context, events []events.DomainEvent) error
}
