package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// FailureRecorder counts handler failures and dropped events.
type FailureRecorder interface {
	RecordNotificationFailure()
	RecordNotificationDropped()
}

type registry struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

func (r *registry) Subscribe(eventType EventType, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners[eventType] = append(r.listeners[eventType], handler)
}

func (r *registry) handlers(eventType EventType) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventHandler{}, r.listeners[eventType]...)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	registry
	logger *zap.Logger
}

// NewInMemoryDispatcher creates a dispatcher that runs handlers inline.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryDispatcher{
		registry: registry{listeners: make(map[EventType][]EventHandler)},
		logger:   logger,
	}
}

// Publish synchronously invokes handlers for the given event. Handler
// errors are logged and do not stop the remaining handlers.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	for _, handler := range d.handlers(event.Type) {
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
	return nil
}

// AsyncDispatcher queues events and runs handlers on a fixed worker pool.
// Publish never blocks: when the queue is full the event is dropped and
// counted.
type AsyncDispatcher struct {
	registry
	queue   chan Event
	workers int
	timeout time.Duration
	logger  *zap.Logger
	metrics FailureRecorder

	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
	closed   bool
	stopOnce sync.Once
}

// AsyncOptions configures an AsyncDispatcher.
type AsyncOptions struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	Logger      *zap.Logger
	Metrics     FailureRecorder
}

// NewAsyncDispatcher builds a dispatcher; call Start to launch workers.
func NewAsyncDispatcher(opts AsyncOptions) *AsyncDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &AsyncDispatcher{
		registry: registry{listeners: make(map[EventType][]EventHandler)},
		queue:    make(chan Event, opts.QueueSize),
		workers:  opts.Workers,
		timeout:  opts.SendTimeout,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Start launches the worker pool. Calling it twice is a no-op.
func (d *AsyncDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

// Stop closes the queue and waits until queued events are handled or ctx
// expires.
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish enqueues event. The caller's context is not propagated to
// handlers because they run after the request has completed.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.drop(event, "dispatcher stopped")
		return nil
	}
	select {
	case d.queue <- event:
	default:
		d.drop(event, "queue full")
	}
	return nil
}

func (d *AsyncDispatcher) drop(event Event, reason string) {
	d.logger.Warn("event dropped",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("reason", reason))
	if d.metrics != nil {
		d.metrics.RecordNotificationDropped()
	}
}

func (d *AsyncDispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.handle(event)
	}
}

func (d *AsyncDispatcher) handle(event Event) {
	for _, handler := range d.handlers(event.Type) {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := safeCall(ctx, handler, event)
		cancel()
		if err == nil {
			continue
		}
		d.logger.Error("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
		if d.metrics != nil {
			d.metrics.RecordNotificationFailure()
		}
	}
}

func safeCall(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("event handler panicked: %v", p)
		}
	}()
	return handler(ctx, event)
}
