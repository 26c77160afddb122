package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull        = errors.New("audit: queue full")
	ErrDispatcherClosed = errors.New("audit: dispatcher closed")
)

type DispatcherOptions struct {
	QueueSize      int
	Workers        int
	MaxRetries     int
	Backoff        time.Duration
	AttemptTimeout time.Duration
}

func (o *DispatcherOptions) defaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 100 * time.Millisecond
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 5 * time.Second
	}
}

// Dispatcher is an asynchronous Sink. Write enqueues and returns immediately;
// worker goroutines deliver to the underlying sink with bounded retries and
// report events that could not be delivered.
type Dispatcher struct {
	sink     Sink
	reporter ErrorReporter
	opts     DispatcherOptions
	queue    chan Event

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sink Sink, reporter ErrorReporter, opts DispatcherOptions) *Dispatcher {
	opts.defaults()
	if reporter == nil {
		reporter = &LogReporter{}
	}
	d := &Dispatcher{
		sink:     sink,
		reporter: reporter,
		opts:     opts,
		queue:    make(chan Event, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

func (d *Dispatcher) Write(_ context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending is the number of queued events not yet picked up by a worker.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Capacity is the queue size.
func (d *Dispatcher) Capacity() int {
	return cap(d.queue)
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

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

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	var err error
	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.opts.Backoff * time.Duration(1<<(attempt-1)))
		}
		if err = d.attempt(e); err == nil {
			return
		}
		log.Warn().Err(err).Str("event_type", e.EventType).Int("attempt", attempt+1).Msg("audit write failed")
	}
	d.reporter.Report(context.Background(), err, map[string]interface{}{
		"event_type":    e.EventType,
		"resource_type": e.ResourceType,
		"resource_id":   e.ResourceID,
		"attempts":      d.opts.MaxRetries + 1,
	})
}

func (d *Dispatcher) attempt(e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit: sink panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.AttemptTimeout)
	defer cancel()
	return d.sink.Write(ctx, e)
}
