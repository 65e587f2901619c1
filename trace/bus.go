// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package trace

import (
	"iter"
	"log/slog"
	"sync"
	"time"
)

// DefaultBufferSize is the default event buffer capacity for one query.
const DefaultBufferSize = 4096

// Bus is a per-query ordered event channel: one producer pipeline, one
// streaming consumer. Emits never block the pipeline; if the buffer cap is
// exceeded the event is dropped from the live stream (with a warning) but
// still recorded in the durable trace log.
type Bus struct {
	mu      sync.Mutex
	ch      chan Event
	trace   []Event
	closed  bool
	dropped int
	logger  *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithBufferSize sets the live-stream buffer capacity.
// Default is DefaultBufferSize.
func WithBufferSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.ch = make(chan Event, size)
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
	}
}

// NewBus creates a bus scoped to one query's lifetime.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		ch:     make(chan Event, DefaultBufferSize),
		logger: slog.Default().With("component", "trace-bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Emit enqueues an event for the live consumer and appends it to the
// durable trace log. Emits after Close are discarded.
func (b *Bus) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.trace = append(b.trace, event)

	select {
	case b.ch <- event:
	default:
		b.dropped++
		b.logger.Warn("event buffer full, dropping from live stream", "kind", event.Kind())
	}
}

// Close signals that no more events will be emitted. Idempotent. Consumers
// drain remaining buffered events and then terminate.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.ch)
}

// Closed reports whether the bus has been closed.
func (b *Bus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Subscribe returns a lazy sequence of events that terminates when the bus
// is closed and the buffer is drained. Token and structured events share
// the single ordered stream.
func (b *Bus) Subscribe() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for event := range b.ch {
			if !yield(event) {
				return
			}
		}
	}
}

// Trace returns a snapshot of the full ordered event log for persistence.
func (b *Bus) Trace() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.trace))
	copy(out, b.trace)
	return out
}

// Dropped returns the number of events dropped from the live stream.
func (b *Bus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Convenience emitters. All stamp the current time.

// Start emits an agent-start event.
func (b *Bus) Start(agent, note string) {
	b.Emit(Start{Agent: agent, Note: note, At: time.Now().UTC()})
}

// Progress emits an agent-progress event.
func (b *Bus) Progress(agent, note string) {
	b.Emit(Progress{Agent: agent, Note: note, At: time.Now().UTC()})
}

// Error emits an agent-error event.
func (b *Bus) Error(agent, note string) {
	b.Emit(Error{Agent: agent, Note: note, At: time.Now().UTC()})
}

// Token emits one streamed answer token.
func (b *Bus) Token(text string) {
	b.Emit(Token{Text: text, At: time.Now().UTC()})
}

// StreamEnd emits the clean end-of-stream marker.
func (b *Bus) StreamEnd() {
	b.Emit(StreamEnd{At: time.Now().UTC()})
}

// PlanStep emits an orchestrator routing decision.
func (b *Bus) PlanStep(note string) {
	b.Emit(PlanStep{Note: note, At: time.Now().UTC()})
}
