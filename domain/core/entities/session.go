package entities

import (
	"encoding/json"
	"strings"
	"time"

	"dataworkspace/domain/events"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/google/uuid"
)

const (
	maxSessionNameLength        = 200
	maxSessionDescriptionLength = 2000
)

// Session is a caller-owned container of datasets. Its owner never changes.
type Session struct {
	id          string
	ownerID     string
	name        string
	description string
	createdAt   time.Time

	events []events.DomainEvent
}

// NewSession creates a session owned by ownerID
func NewSession(ownerID, name, description string, now time.Time) (*Session, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("owner cannot be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("session name cannot be empty")
	}
	if len(name) > maxSessionNameLength {
		return nil, pkgerrors.NewValidationError("session name is too long")
	}
	if len(description) > maxSessionDescriptionLength {
		return nil, pkgerrors.NewValidationError("session description is too long")
	}

	s := &Session{
		id:          uuid.New().String(),
		ownerID:     ownerID,
		name:        name,
		description: description,
		createdAt:   now.UTC(),
	}
	s.events = append(s.events, events.NewSessionCreated(s.id, ownerID, now))
	return s, nil
}

// ReconstructSession rebuilds a session from storage without raising events
func ReconstructSession(id, ownerID, name, description string, createdAt time.Time) *Session {
	return &Session{
		id:          id,
		ownerID:     ownerID,
		name:        name,
		description: description,
		createdAt:   createdAt,
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) OwnerID() string      { return s.ownerID }
func (s *Session) Name() string         { return s.name }
func (s *Session) Description() string  { return s.description }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// OwnedBy reports whether callerID owns the session
func (s *Session) OwnedBy(callerID string) bool {
	return callerID != "" && s.ownerID == callerID
}

// MarkDeleted records the deletion event
func (s *Session) MarkDeleted(datasetCount int, now time.Time) {
	s.events = append(s.events, events.NewSessionDeleted(s.id, s.ownerID, datasetCount, now))
}

// PullEvents returns and clears pending domain events
func (s *Session) PullEvents() []events.DomainEvent {
	pending := s.events
	s.events = nil
	return pending
}

// MarshalJSON renders the public view of a session. The owner id is a credential and
// is never echoed.
func (s *Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}{s.id, s.name, s.description, s.createdAt})
}
