package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"longtrees/pkg/platform/circuit"
)

const (
	dropBufferFull = "buffer_full"
	dropBreaker    = "circuit_open"
	dropSinkError  = "sink_error"
	dropClosed     = "closed"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("publisher closed")

// Publisher fans change events out to a Sink. Without an async buffer Emit
// delivers inline and returns the sink's error; with one, Emit never blocks
// and delivery failures are logged and counted.
type Publisher struct {
	sink    Sink
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	bufferSize int
	inbox      chan ChangeEvent
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer delivers events from a background worker reading a
// channel of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breaker == nil {
		p.breaker = circuit.New("events")
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan ChangeEvent, p.bufferSize)
		p.done = make(chan struct{})
		w := newWorker(p.inbox, p.deliver)
		go func() {
			defer close(p.done)
			w.Run()
		}()
	}
	return p
}

// Emit stamps and publishes event.
func (p *Publisher) Emit(ctx context.Context, event ChangeEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.incDropped(dropClosed)
		return ErrClosed
	}

	if p.inbox == nil {
		return p.deliver(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.metrics.incDropped(dropBufferFull)
		p.logger.WarnContext(ctx, "change event dropped",
			"reason", dropBufferFull,
			"collection", event.Collection,
			"id", event.ID,
		)
	}
	return nil
}

// Close stops accepting events, drains the buffer and closes the sink.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
	return p.sink.Close()
}

func (p *Publisher) deliver(ctx context.Context, event ChangeEvent) error {
	if !p.breaker.Allow() {
		p.metrics.incDropped(dropBreaker)
		return nil
	}
	if err := p.sink.Publish(ctx, event); err != nil {
		_, change := p.breaker.RecordFailure()
		p.metrics.incDropped(dropSinkError)
		if change.Opened {
			p.metrics.setBreakerOpen(true)
			p.logger.ErrorContext(ctx, "event sink circuit opened", "breaker", p.breaker.Name(), "error", err)
		}
		p.logger.WarnContext(ctx, "change event delivery failed",
			"collection", event.Collection,
			"id", event.ID,
			"error", err,
		)
		return err
	}
	_, change := p.breaker.RecordSuccess()
	if change.Closed {
		p.metrics.setBreakerOpen(false)
		p.logger.InfoContext(ctx, "event sink circuit closed", "breaker", p.breaker.Name())
	}
	p.metrics.incPublished()
	return nil
}
