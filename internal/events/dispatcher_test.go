package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRecorder struct {
	failures atomic.Int64
	dropped  atomic.Int64
}

func (c *countingRecorder) RecordNotificationFailure() { c.failures.Add(1) }
func (c *countingRecorder) RecordNotificationDropped() { c.dropped.Add(1) }

func TestInMemoryDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var calls []string
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestAsyncDispatcherDeliversAndCountsFailures(t *testing.T) {
	recorder := &countingRecorder{}
	d := NewAsyncDispatcher(AsyncOptions{Workers: 2, QueueSize: 8, Metrics: recorder})

	var (
		mu   sync.Mutex
		seen []string
	)
	d.Subscribe(EventTicketAssigned, func(_ context.Context, e Event) error {
		mu.Lock()
		seen = append(seen, e.TicketID)
		mu.Unlock()
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		panic("handler bug")
	})
	d.Start()

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned, TicketID: "t-1"}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned, TicketID: "t-2"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"t-1", "t-2"}, seen)
	assert.EqualValues(t, 2, recorder.failures.Load())
}

func TestAsyncDispatcherDropsWhenQueueFull(t *testing.T) {
	recorder := &countingRecorder{}
	d := NewAsyncDispatcher(AsyncOptions{Workers: 1, QueueSize: 1, Metrics: recorder})

	// Not started: the first event fills the queue, the second is dropped.
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.EqualValues(t, 1, recorder.dropped.Load())

	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.EqualValues(t, 2, recorder.dropped.Load())
}
