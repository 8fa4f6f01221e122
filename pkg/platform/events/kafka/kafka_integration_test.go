//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"longtrees/pkg/platform/events"
	"longtrees/pkg/platform/events/kafka"
	"longtrees/pkg/testutil/containers"
)

func TestSink_PublishKeyedByID(t *testing.T) {
	broker := containers.GetManager().GetKafka(t).Broker
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "changes-" + t.Name()
	sink, err := kafka.New(ctx, kafka.Config{Brokers: []string{broker}, Topic: topic})
	require.NoError(t, err)

	again, err := kafka.New(ctx, kafka.Config{Brokers: []string{broker}, Topic: topic})
	require.NoError(t, err, "existing topic is reused")
	require.NoError(t, again.Close())

	event := events.ChangeEvent{
		Collection: "trees",
		Action:     events.ActionCreated,
		ID:         "65f1c0ffee0000000000beef",
		RequestID:  "req-1",
		Timestamp:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, sink.Publish(ctx, event))
	require.NoError(t, sink.Close())

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollRecords(ctx, 1)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, event.ID, string(records[0].Key))

	var got events.ChangeEvent
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, event, got)
}

func TestNew_RejectsEmptyConfig(t *testing.T) {
	_, err := kafka.New(context.Background(), kafka.Config{Topic: "x"})
	require.Error(t, err)
	_, err = kafka.New(context.Background(), kafka.Config{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)
}
