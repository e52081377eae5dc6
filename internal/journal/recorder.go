package journal

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/1broseidon/overlaycat/internal/display"
	"github.com/1broseidon/overlaycat/internal/events"
	"github.com/1broseidon/overlaycat/internal/memwatch"
)

const recorderQueueSize = 256

// Subscriber is the part of events.Bus the recorder needs.
type Subscriber interface {
	SubscribeAll(handler events.Handler) string
	Unsubscribe(id string) bool
}

// Recorder writes bus events to the journal on its own goroutine so that
// publishers never wait on SQLite.
type Recorder struct {
	repo         *Repository
	recordStatus bool
	logger       *slog.Logger

	mu      sync.Mutex
	closed  bool
	queue   chan events.Event
	done    chan struct{}
	bus     Subscriber
	subID   string
	dropped atomic.Uint64
}

// NewRecorder creates a recorder. memory-status ticks are skipped unless
// recordStatus is set.
func NewRecorder(repo *Repository, recordStatus bool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		repo:         repo,
		recordStatus: recordStatus,
		logger:       logger,
		queue:        make(chan events.Event, recorderQueueSize),
		done:         make(chan struct{}),
	}
}

// Start subscribes to bus and begins writing.
func (r *Recorder) Start(bus Subscriber) {
	r.bus = bus
	r.subID = bus.SubscribeAll(r.enqueue)
	go r.run()
}

// Stop unsubscribes, writes what is queued and returns.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.bus != nil {
		r.bus.Unsubscribe(r.subID)
	}
	close(r.queue)
	started := r.bus != nil
	r.mu.Unlock()

	if started {
		<-r.done
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) enqueue(ev events.Event) {
	if ev.Name == events.MemoryStatus && !r.recordStatus {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- ev:
	default:
		r.dropped.Add(1)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.queue {
		entry, err := EntryFromEvent(ev)
		if err != nil {
			r.logger.Warn("failed to encode journal entry", "event", ev.Name, "error", err)
			continue
		}
		if err := r.repo.Create(&entry); err != nil {
			r.logger.Warn("failed to write journal entry", "event", ev.Name, "error", err)
		}
	}
}

// EntryFromEvent flattens the known payloads into indexed columns and keeps
// the full payload as JSON.
func EntryFromEvent(ev events.Event) (Entry, error) {
	entry := Entry{Timestamp: ev.Time, Event: ev.Name}

	switch p := ev.Payload.(type) {
	case display.WindowInstance:
		entry.WindowID = p.ID
		entry.MonitorIndex = intPtr(p.MonitorIndex)
	case display.ClosedEvent:
		entry.WindowID = p.ID
		entry.MonitorIndex = intPtr(p.MonitorIndex)
	case memwatch.Status:
		entry.CurrentMB = p.CurrentMB
		entry.LimitMB = p.LimitMB
	}

	if ev.Payload != nil {
		data, err := json.Marshal(ev.Payload)
		if err != nil {
			return Entry{}, err
		}
		entry.Payload = string(data)
	}
	return entry, nil
}

func intPtr(v int) *int { return &v }
