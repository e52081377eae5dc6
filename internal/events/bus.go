// Package events carries fire-and-forget status events from the daemon's
// components to whoever listens (IPC subscribers, the journal).
package events

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Event names emitted by the daemon.
const (
	MemoryStatus  = "memory-status"
	MemoryWarning = "memory-warning"
	WindowCreated = "window-created"
	WindowClosed  = "window-closed"
	WindowMoved   = "window-moved"
	WindowsReset  = "windows-reset"
)

// Wildcard subscribes to every event name.
const Wildcard = "*"

// Event is a named payload. Payload must be JSON-serialisable.
type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// New stamps an event with the current time.
func New(name string, payload any) Event {
	return Event{Name: name, Payload: payload, Time: time.Now()}
}

// Publisher is implemented by anything that accepts events.
type Publisher interface {
	Publish(Event)
}

// Handler handles a published event.
type Handler func(Event)

type subscription struct {
	id      string
	name    string
	handler Handler
}

// Bus is a synchronous pub-sub bus. Handlers run on the publisher's goroutine,
// so they must not block.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription
	nextID        atomic.Uint64
	logger        *slog.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus creates an empty bus. A nil logger discards handler panics' reports.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		subscriptions: make(map[string][]subscription),
		logger:        logger,
	}
}

// Subscribe registers handler for one event name (or Wildcard) and returns a
// subscription ID for Unsubscribe.
func (b *Bus) Subscribe(name string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := fmt.Sprintf("sub-%d", b.nextID.Add(1))
	b.subscriptions[name] = append(b.subscriptions[name], subscription{
		id:      id,
		name:    name,
		handler: handler,
	})
	return id
}

// SubscribeAll registers handler for every event.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(Wildcard, handler)
}

// Unsubscribe removes a subscription. It reports whether one was removed.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			rest := make([]subscription, 0, len(subs)-1)
			rest = append(rest, subs[:i]...)
			rest = append(rest, subs[i+1:]...)
			b.subscriptions[name] = rest
			return true
		}
	}
	return false
}

// Publish dispatches ev to specific subscribers first, then wildcard ones.
// A panicking handler is logged and skipped.
func (b *Bus) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	b.mu.RLock()
	specific := append([]subscription(nil), b.subscriptions[ev.Name]...)
	wildcard := append([]subscription(nil), b.subscriptions[Wildcard]...)
	b.mu.RUnlock()

	for _, sub := range specific {
		b.safeCall(sub.handler, ev)
	}
	for _, sub := range wildcard {
		b.safeCall(sub.handler, ev)
	}
}

func (b *Bus) safeCall(handler Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", ev.Name,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	handler(ev)
}
