package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"longtrees/pkg/platform/circuit"
	"longtrees/pkg/platform/events"
	"longtrees/pkg/platform/events/memory"
	"longtrees/pkg/platform/events/mocks"
)

func created(id string) events.ChangeEvent {
	return events.ChangeEvent{Collection: "trees", Action: events.ActionCreated, ID: id}
}

func TestPublisher_SyncMode(t *testing.T) {
	sink := memory.NewSink()
	pub := events.NewPublisher(sink)
	defer pub.Close()

	before := time.Now().UTC()
	require.NoError(t, pub.Emit(context.Background(), created("a")))

	got := sink.Events()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.False(t, got[0].Timestamp.Before(before), "timestamp is stamped on emit")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	sink := memory.NewSink()
	pub := events.NewPublisher(sink)
	defer pub.Close()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	event := created("a")
	event.Timestamp = at
	require.NoError(t, pub.Emit(context.Background(), event))

	got := sink.Events()
	require.Len(t, got, 1)
	assert.Equal(t, at, got[0].Timestamp)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	sink := memory.NewSink()
	pub := events.NewPublisher(sink, events.WithAsyncBuffer(100))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), created("a")))
	}
	require.NoError(t, pub.Close())

	assert.Len(t, sink.Events(), 10, "all buffered events are delivered before Close returns")
}

func TestPublisher_BufferFullDropsEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	m := events.NewMetrics(nil)

	started := make(chan struct{})
	release := make(chan struct{})
	first := true
	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, events.ChangeEvent) error {
		if first {
			first = false
			close(started)
			<-release
		}
		return nil
	}).Times(2)
	sink.EXPECT().Close().Return(nil)

	pub := events.NewPublisher(sink, events.WithAsyncBuffer(1), events.WithMetrics(m))

	require.NoError(t, pub.Emit(context.Background(), created("in-flight")))
	<-started
	require.NoError(t, pub.Emit(context.Background(), created("buffered")))
	require.NoError(t, pub.Emit(context.Background(), created("dropped")), "a full buffer never blocks the caller")

	close(release)
	require.NoError(t, pub.Close())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped.WithLabelValues("buffer_full")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Published))
}

func TestPublisher_BreakerStopsCallingFailingSink(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	m := events.NewMetrics(nil)
	sinkErr := errors.New("broker down")

	sink.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(sinkErr).Times(2)
	sink.EXPECT().Close().Return(nil)

	breaker := circuit.New("events", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	pub := events.NewPublisher(sink, events.WithBreaker(breaker), events.WithMetrics(m))
	defer pub.Close()

	ctx := context.Background()
	assert.ErrorIs(t, pub.Emit(ctx, created("a")), sinkErr)
	assert.ErrorIs(t, pub.Emit(ctx, created("b")), sinkErr)
	assert.NoError(t, pub.Emit(ctx, created("c")), "open breaker drops without calling the sink")

	assert.True(t, breaker.IsOpen())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped.WithLabelValues("circuit_open")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dropped.WithLabelValues("sink_error")))
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)
	sink.EXPECT().Close().Return(nil).Times(1)

	pub := events.NewPublisher(sink, events.WithAsyncBuffer(4))
	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close(), "second close is a no-op")

	err := pub.Emit(context.Background(), created("late"))
	assert.ErrorIs(t, err, events.ErrClosed)
}

func TestMemorySink_ByCollection(t *testing.T) {
	sink := memory.NewSink()
	ctx := context.Background()
	require.NoError(t, sink.Publish(ctx, created("t1")))
	require.NoError(t, sink.Publish(ctx, events.ChangeEvent{Collection: "growers", Action: events.ActionUpdated, ID: "g1"}))

	assert.Len(t, sink.ByCollection("trees"), 1)
	assert.Len(t, sink.ByCollection("growers"), 1)

	sink.Clear()
	assert.Empty(t, sink.Events())
}
