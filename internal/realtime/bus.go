// ABOUTME: Handler registry for named realtime events
// ABOUTME: Registers, removes, and dispatches handlers in registration order

package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// EventNewMessage carries a model.Message for the receiving user.
const EventNewMessage = "newMessage"

// Frame is one event on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler receives the raw JSON payload of an event.
type Handler func(data json.RawMessage)

type registration struct {
	id      string
	handler Handler
}

// Bus maps event names to handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]registration
	events   map[string]string // handler ID -> event
	logger   *slog.Logger
}

// NewBus creates an empty bus. Pass nil logger for default.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]registration),
		events:   make(map[string]string),
		logger:   logger.With("component", "realtime"),
	}
}

// On registers h for event and returns an ID for Remove.
func (b *Bus) On(event string, h Handler) string {
	id := uuid.New().String()

	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], registration{id: id, handler: h})
	b.events[id] = event
	b.mu.Unlock()

	b.logger.Debug("handler added", "event", event, "handler_id", id)
	return id
}

// Remove deregisters a single handler. Unknown IDs are ignored; the return
// value reports whether anything was removed.
func (b *Bus) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	event, ok := b.events[id]
	if !ok {
		return false
	}
	delete(b.events, id)

	regs := b.handlers[event]
	for i, r := range regs {
		if r.id == id {
			b.handlers[event] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(b.handlers[event]) == 0 {
		delete(b.handlers, event)
	}

	b.logger.Debug("handler removed", "event", event, "handler_id", id)
	return true
}

// Off removes every handler registered for event.
func (b *Bus) Off(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range b.handlers[event] {
		delete(b.events, r.id)
	}
	delete(b.handlers, event)
}

// Count returns the number of handlers registered for event.
func (b *Bus) Count(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

// Dispatch calls every handler registered for f.Event. Handlers run on the
// caller's goroutine, outside the bus lock, so a handler may call On or
// Remove without deadlocking.
func (b *Bus) Dispatch(f Frame) {
	b.mu.RLock()
	regs := make([]registration, len(b.handlers[f.Event]))
	copy(regs, b.handlers[f.Event])
	b.mu.RUnlock()

	if len(regs) == 0 {
		b.logger.Debug("no handlers for event", "event", f.Event)
		return
	}
	for _, r := range regs {
		r.handler(f.Data)
	}
}
