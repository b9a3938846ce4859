package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dataworkspace/application/services"
	"dataworkspace/domain/core/entities"
	"dataworkspace/domain/events"
	pkgerrors "dataworkspace/pkg/errors"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockReleaser struct {
	mock.Mock
}

func (m *mockReleaser) ReleaseOrphan(ctx context.Context, sessionID, datasetID string, kind entities.DatasetKind) error {
	return m.Called(ctx, sessionID, datasetID, kind).Error(0)
}

func orphanEvent(t *testing.T) awsevents.CloudWatchEvent {
	t.Helper()
	detail, err := json.Marshal(events.NewPhysicalResourceOrphaned(
		"0f8fad5bd9cb469fa16570867728950e", "session-1", "graph", "partition", "delete_session", "graph unavailable",
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	))
	require.NoError(t, err)
	return awsevents.CloudWatchEvent{
		ID:         "evt-1",
		DetailType: events.EventTypePhysicalResourceOrphaned,
		Detail:     detail,
	}
}

func TestReaper_ReleasesOrphan(t *testing.T) {
	// Arrange
	releaser := &mockReleaser{}
	releaser.On("ReleaseOrphan", mock.Anything, "session-1", "0f8fad5bd9cb469fa16570867728950e", entities.DatasetKindGraph).Return(nil)
	reaper := NewReaper(releaser, zap.NewNop())

	// Act
	err := reaper.Handle(context.Background(), orphanEvent(t))

	// Assert
	require.NoError(t, err)
	releaser.AssertExpectations(t)
}

func TestReaper_StoreFailureIsRetried(t *testing.T) {
	releaser := &mockReleaser{}
	releaser.On("ReleaseOrphan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(pkgerrors.NewBackingStoreError("graph", "release_orphan", errors.New("timeout")))
	reaper := NewReaper(releaser, zap.NewNop())

	err := reaper.Handle(context.Background(), orphanEvent(t))

	assert.Error(t, err)
}

func TestReaper_AcknowledgesUnprocessableEvents(t *testing.T) {
	releaser := &mockReleaser{}
	releaser.On("ReleaseOrphan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(pkgerrors.NewValidationError("unknown dataset kind"))
	reaper := NewReaper(releaser, zap.NewNop())

	assert.NoError(t, reaper.Handle(context.Background(), orphanEvent(t)))

	other := orphanEvent(t)
	other.DetailType = events.EventTypeSessionCreated
	assert.NoError(t, reaper.Handle(context.Background(), other))

	malformed := orphanEvent(t)
	malformed.Detail = json.RawMessage(`{"dataset_id": 7`)
	assert.NoError(t, reaper.Handle(context.Background(), malformed))

	releaser.AssertNumberOfCalls(t, "ReleaseOrphan", 1)
}

func TestReaper_RegisteredDatasetIsRetried(t *testing.T) {
	// Arrange
	releaser := &mockReleaser{}
	releaser.On("ReleaseOrphan", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(pkgerrors.NewValidationError("dataset is still registered").WithCause(services.ErrDatasetStillRegistered))
	reaper := NewReaper(releaser, zap.NewNop())

	// Act
	err := reaper.Handle(context.Background(), orphanEvent(t))

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrDatasetStillRegistered)
}
