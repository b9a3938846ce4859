package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"dataworkspace/application/services"
	pkgerrors "dataworkspace/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ExportPartialHeader is set to "true" when at least one dataset failed to export
const ExportPartialHeader = "X-Export-Partial"

// ExportHandler streams session exports as ZIP archives
type ExportHandler struct {
	exports *services.ExportService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exports *services.ExportService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		exports: exports,
		errors:  errorHandler,
		logger:  logger,
	}
}

// ExportSession handles GET /sessions/{sessionID}/export
func (h *ExportHandler) ExportSession(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	bundle, err := h.exports.ExportSession(r.Context(), sessionID, caller)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	// Build the archive first so an encoding failure can still be reported
	var buf bytes.Buffer
	if err := bundle.WriteZip(&buf); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("failed to build export archive").WithCause(err))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="session_%s.zip"`, sessionID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set(ExportPartialHeader, strconv.FormatBool(bundle.Partial()))
	w.WriteHeader(http.StatusOK)
	h.logger.Info("Session exported",
		zap.String("session_id", sessionID),
		zap.Strings("files", bundle.FileNames()),
		zap.Bool("partial", bundle.Partial()),
	)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Export download interrupted", zap.String("session_id", sessionID), zap.Error(err))
	}
}
