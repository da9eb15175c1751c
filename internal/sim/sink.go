package sim

import (
	"sync"

	"github.com/tollsim/tollsim/pkg/core"
)

// Sink receives records as the run produces them. The engine calls it from
// the Run goroutine only, tick by tick, in trip order within a tick.
type Sink interface {
	Movement(core.MovementRecord)
	TollCollection(core.TollCollectionRecord)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	OnMovement       func(core.MovementRecord)
	OnTollCollection func(core.TollCollectionRecord)
}

func (s SinkFuncs) Movement(r core.MovementRecord) {
	if s.OnMovement != nil {
		s.OnMovement(r)
	}
}

func (s SinkFuncs) TollCollection(r core.TollCollectionRecord) {
	if s.OnTollCollection != nil {
		s.OnTollCollection(r)
	}
}

// Discard drops every record.
var Discard Sink = SinkFuncs{}

// Record carries exactly one of Movement or Toll.
type Record struct {
	Movement *core.MovementRecord
	Toll     *core.TollCollectionRecord
}

// ChannelSink streams records over a channel. The consumer must keep
// reading until the channel is closed, or the run blocks.
type ChannelSink struct {
	ch   chan Record
	once sync.Once
}

// NewChannelSink creates a sink with the given channel buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Record, buffer)}
}

// C returns the receive side.
func (s *ChannelSink) C() <-chan Record { return s.ch }

func (s *ChannelSink) Movement(r core.MovementRecord) {
	s.ch <- Record{Movement: &r}
}

func (s *ChannelSink) TollCollection(r core.TollCollectionRecord) {
	s.ch <- Record{Toll: &r}
}

// Close closes the channel. Call it after Run returns.
func (s *ChannelSink) Close() {
	s.once.Do(func() { close(s.ch) })
}

// Collector keeps every record in memory. It is safe for concurrent use.
type Collector struct {
	mu          sync.Mutex
	movements   []core.MovementRecord
	collections []core.TollCollectionRecord
}

func (c *Collector) Movement(r core.MovementRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.movements = append(c.movements, r)
}

func (c *Collector) TollCollection(r core.TollCollectionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collections = append(c.collections, r)
}

// Movements returns a copy of the collected movement records.
func (c *Collector) Movements() []core.MovementRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.MovementRecord(nil), c.movements...)
}

// TollCollections returns a copy of the collected toll records.
func (c *Collector) TollCollections() []core.TollCollectionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.TollCollectionRecord(nil), c.collections...)
}
