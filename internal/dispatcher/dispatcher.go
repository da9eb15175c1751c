// Package dispatcher fans simulation records out to reporting backends.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tollsim/tollsim/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tollsim/tollsim/internal/dispatcher"

// Kind selects which records a handler receives.
type Kind string

const (
	KindMovement Kind = "movement"
	KindToll     Kind = "toll"
)

var (
	// ErrNoHandler is returned when nothing is registered for a kind.
	ErrNoHandler = errors.New("no handler registered")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event carries one record. Exactly one of Movement or Toll is set,
// matching Kind.
type Event struct {
	Kind     Kind
	Movement *core.MovementRecord
	Toll     *core.TollCollectionRecord
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

type route struct {
	name string
	h    HandlerFunc
}

// Dispatcher routes records to every handler registered for their kind.
// It implements sim.Sink.
type Dispatcher struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter

	mu       sync.RWMutex
	handlers map[Kind][]route
	buffers  map[string]chan Event
	closed   bool
	workers  sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[Kind][]route),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	m := otel.Meter(instrumentationName)

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of records waiting per handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for name, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("handler", name)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.records.processed",
		metric.WithDescription("Total records processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.records.dropped",
		metric.WithDescription("Total records dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.records.failed",
		metric.WithDescription("Total records a handler returned an error for"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a named handler for kind. Several handlers may share a kind;
// each receives every record of that kind in registration order.
func (d *Dispatcher) Register(kind Kind, name string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(name, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(name+":"+string(kind), cfg.bufferSize, cfg.blocking, handler)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], route{name: name, h: handler})
}

// Dispatch hands e to every handler of its kind. Errors from synchronous
// handlers and full queues are joined; buffered handlers report their own
// failures through the logger.
func (d *Dispatcher) Dispatch(e Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	routes, ok := d.handlers[e.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, e.Kind)
	}

	var errs []error
	for _, r := range routes {
		if err := r.h(e); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.name, err))
		}
	}
	return errors.Join(errs...)
}

// Movement implements sim.Sink.
func (d *Dispatcher) Movement(r core.MovementRecord) {
	d.dispatchRecord(Event{Kind: KindMovement, Movement: &r})
}

// TollCollection implements sim.Sink.
func (d *Dispatcher) TollCollection(r core.TollCollectionRecord) {
	d.dispatchRecord(Event{Kind: KindToll, Toll: &r})
}

func (d *Dispatcher) dispatchRecord(e Event) {
	err := d.Dispatch(e)
	if err == nil || errors.Is(err, ErrNoHandler) {
		return
	}
	d.failed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(e.Kind))))
	d.logger.Error("record dispatch failed", "kind", e.Kind, "error", err)
}

// Close stops accepting records and waits for buffered handlers to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) withBuffer(name string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[name] = buffer
	d.mu.Unlock()

	nameAttr := attribute.String("handler", name)

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range buffer {
			if err := h(e); err != nil {
				d.failed.Add(context.Background(), 1, metric.WithAttributes(nameAttr))
				d.logger.Error("buffered handler failed", "handler", name, "error", err)
			}
			d.processed.Add(context.Background(), 1, metric.WithAttributes(nameAttr))
		}
	}()

	if blocking {
		return func(e Event) error {
			buffer <- e
			return nil
		}
	}

	return func(e Event) error {
		select {
		case buffer <- e:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(nameAttr))
			return fmt.Errorf("queue full: %s", name)
		}
	}
}

func (d *Dispatcher) withLogging(name string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling record", "handler", name, "kind", e.Kind)

		err := h(e)

		if err != nil {
			d.logger.Error("record failed", "handler", name, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("record complete", "handler", name, "duration", time.Since(start))
		}

		return err
	}
}
