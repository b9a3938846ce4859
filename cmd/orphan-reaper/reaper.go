package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dataworkspace/application/services"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/events"
	pkgerrors "dataworkspace/pkg/errors"

	awsevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// OrphanReleaser releases a physical resource whose dataset record is gone
type OrphanReleaser interface {
	ReleaseOrphan(ctx context.Context, sessionID, datasetID string, kind entities.DatasetKind) error
}

// Reaper handles orphan events delivered by EventBridge
type Reaper struct {
	releaser OrphanReleaser
	logger   *zap.Logger
}

// NewReaper creates a new reaper
func NewReaper(releaser OrphanReleaser, logger *zap.Logger) *Reaper {
	return &Reaper{releaser: releaser, logger: logger}
}

// Handle releases the resource named by one orphan event. Events of other types
// and events that can never succeed are acknowledged so EventBridge does not
// retry them. Store failures and datasets whose record is still present are
// returned so the invocation is retried.
func (r *Reaper) Handle(ctx context.Context, event awsevents.CloudWatchEvent) error {
	if event.DetailType != events.EventTypePhysicalResourceOrphaned {
		r.logger.Debug("Ignoring event", zap.String("detail_type", event.DetailType))
		return nil
	}

	var orphan events.PhysicalResourceOrphaned
	if err := json.Unmarshal(event.Detail, &orphan); err != nil {
		r.logger.Error("Malformed orphan event", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}

	logger := r.logger.With(
		zap.String("event_id", event.ID),
		zap.String("session_id", orphan.SessionID),
		zap.String("dataset_id", orphan.DatasetID),
		zap.String("kind", orphan.Kind),
	)

	err := r.releaser.ReleaseOrphan(ctx, orphan.SessionID, orphan.DatasetID, entities.DatasetKind(orphan.Kind))
	switch {
	case err == nil:
		logger.Info("Orphan released")
		return nil
	case errors.Is(err, services.ErrDatasetStillRegistered):
		logger.Warn("Dataset record still present, retrying later")
		return fmt.Errorf("release %s %s: %w", orphan.Kind, orphan.DatasetID, err)
	case pkgerrors.IsValidation(err):
		logger.Warn("Orphan event rejected", zap.Error(err))
		return nil
	default:
		logger.Error("Orphan release failed", zap.Error(err))
		return fmt.Errorf("release %s %s: %w", orphan.Kind, orphan.DatasetID, err)
	}
}
