package eventbridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dataworkspace/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClient struct {
	inputs []*eventbridge.PutEventsInput
	output *eventbridge.PutEventsOutput
	err    error
}

func (f *fakeClient) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.output != nil {
		return f.output, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

func someEvents(n int) []events.DomainEvent {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewDatasetDeleted("d", "s", "tabular", now)
	}
	return out
}

func TestPublisher_BatchesOfTen(t *testing.T) {
	// Arrange
	client := &fakeClient{}
	publisher := NewPublisher(client, "workspace-bus", zap.NewNop())

	// Act
	err := publisher.Publish(context.Background(), someEvents(23))

	// Assert
	require.NoError(t, err)
	require.Len(t, client.inputs, 3)
	assert.Len(t, client.inputs[0].Entries, 10)
	assert.Len(t, client.inputs[2].Entries, 3)

	entry := client.inputs[0].Entries[0]
	assert.Equal(t, "workspace-bus", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.EventTypeDatasetDeleted, aws.ToString(entry.DetailType))

	var detail map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail))
	assert.Equal(t, "d", detail["dataset_id"])
}

func TestPublisher_Failures(t *testing.T) {
	client := &fakeClient{err: errors.New("throttled")}
	err := NewPublisher(client, "bus", zap.NewNop()).Publish(context.Background(), someEvents(1))
	assert.ErrorContains(t, err, "throttled")

	client = &fakeClient{output: &eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("InternalFailure")}},
	}}
	err = NewPublisher(client, "bus", zap.NewNop()).Publish(context.Background(), someEvents(1))
	assert.ErrorContains(t, err, "1 events failed")
}

func TestPublisher_NothingToSend(t *testing.T) {
	client := &fakeClient{}
	require.NoError(t, NewPublisher(client, "bus", zap.NewNop()).Publish(context.Background(), nil))
	assert.Empty(t, client.inputs)
}
