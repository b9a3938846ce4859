package handlers

import (
	"net/http"

	"dataworkspace/application/services"
	"dataworkspace/pkg/common"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionHandler handles session-related HTTP requests
type SessionHandler struct {
	registry *services.Registry
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *services.Registry, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		errors:   errorHandler,
		logger:   logger,
	}
}

// CreateSessionRequest represents the request body for creating a session
type CreateSessionRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	session, err := h.registry.CreateSession(r.Context(), caller, req.Name, req.Description)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, session)
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	sessions, err := h.registry.ListSessions(r.Context(), caller)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondList(w, sessions, len(sessions), nil)
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	session, err := h.registry.ResolveSession(r.Context(), chi.URLParam(r, "sessionID"), caller)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, session)
}

// DeleteSession handles DELETE /sessions/{sessionID}. It answers 204 when every
// physical resource was released and 200 with the deletion report otherwise.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	report, err := h.registry.DeleteSession(r.Context(), chi.URLParam(r, "sessionID"), caller)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if len(report.Orphaned) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	common.RespondJSON(w, http.StatusOK, report)
}
