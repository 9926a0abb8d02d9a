// Package progress provides the per-run event sink between the pipeline and
// its single subscriber.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/lingodoc/translation-engine/internal/domain"
	"github.com/lingodoc/translation-engine/internal/observability"
)

// DefaultBufferSize bounds how far the subscriber may lag before events are
// dropped rather than blocking the scheduler.
const DefaultBufferSize = 256

// Emitter serializes concurrent Emit calls into a single ordered event
// stream. One subscriber per run consumes Events(). Emit never blocks the
// caller beyond the bounded buffer: when the subscriber cannot keep up,
// events are dropped and counted instead.
type Emitter struct {
	logger *observability.Logger

	mu      sync.Mutex
	ch      chan domain.Event
	closed  bool
	dropped int
}

// NewEmitter creates an emitter with the given buffer size.
func NewEmitter(logger *observability.Logger, bufferSize int) *Emitter {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Emitter{
		logger: logger.WithComponent("progress"),
		ch:     make(chan domain.Event, bufferSize),
	}
}

// Events returns the subscriber side of the stream. The channel is closed by
// Close once the run has ended.
func (e *Emitter) Events() <-chan domain.Event {
	return e.ch
}

// Emit appends an event of the given type to the stream. The mutex makes the
// emission order the delivery order even under concurrent callers, which is
// the ordering invariant the subscriber relies on.
func (e *Emitter) Emit(eventType domain.EventType, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	evt := domain.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	select {
	case e.ch <- evt:
	default:
		e.dropped++
		e.logger.Warn().
			Str("event_type", string(eventType)).
			Int("dropped_total", e.dropped).
			Msg("Event buffer full, dropping event")
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (e *Emitter) Dropped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Close ends the stream. Safe to call more than once; Emit after Close is a
// no-op rather than a panic.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}

// StartHeartbeat emits a heartbeat event at the given interval until the
// context is cancelled, so a long-lived transport does not treat the run as
// dead during slow translation calls. Returns a stop function.
func (e *Emitter) StartHeartbeat(ctx context.Context, interval time.Duration) func() {
	if interval <= 0 {
		interval = 10 * time.Second
	}

	hbCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-hbCtx.Done():
				return
			case now := <-ticker.C:
				e.Emit(domain.EventHeartbeat, domain.HeartbeatData{Timestamp: now})
			}
		}
	}()

	return cancel
}
