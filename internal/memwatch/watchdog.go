// Package memwatch samples the process's resident memory on a fixed interval
// and reports it against a soft limit.
package memwatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/1broseidon/overlaycat/internal/events"
)

const (
	DefaultLimitMB  = 300
	DefaultInterval = 10 * time.Second

	bytesPerMB = 1024 * 1024
)

// Status is one memory reading against the configured limit.
type Status struct {
	CurrentMB       uint64  `json:"currentMb"`
	LimitMB         uint64  `json:"limitMb"`
	UsagePercentage float64 `json:"usagePercentage"`
	IsOverLimit     bool    `json:"isOverLimit"`
}

// NewStatus computes a status for currentMB against limitMB.
func NewStatus(currentMB, limitMB uint64) Status {
	s := Status{CurrentMB: currentMB, LimitMB: limitMB}
	if limitMB > 0 {
		s.UsagePercentage = float64(currentMB) / float64(limitMB) * 100
	}
	s.IsOverLimit = currentMB > limitMB
	return s
}

// Config configures a Watchdog.
type Config struct {
	LimitMB   uint64
	Interval  time.Duration
	Sampler   Sampler
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Watchdog is a periodic memory sampler. Start is idempotent and Stop is safe
// to call at any time; a stopped loop exits at its next tick.
type Watchdog struct {
	sampler   Sampler
	publisher events.Publisher
	logger    *slog.Logger

	limitMB    atomic.Uint64
	interval   atomic.Int64
	running    atomic.Bool
	generation atomic.Uint64
	last       atomic.Pointer[Status]
}

// New creates a stopped watchdog.
func New(cfg Config) *Watchdog {
	if cfg.Sampler == nil {
		cfg.Sampler = NewProcessSampler()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	w := &Watchdog{
		sampler:   cfg.Sampler,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
	w.SetLimit(cfg.LimitMB)
	w.SetInterval(cfg.Interval)
	return w
}

// SetLimit changes the threshold. Zero restores the default.
func (w *Watchdog) SetLimit(mb uint64) {
	if mb == 0 {
		mb = DefaultLimitMB
	}
	w.limitMB.Store(mb)
}

// Limit returns the threshold in MB.
func (w *Watchdog) Limit() uint64 {
	return w.limitMB.Load()
}

// SetInterval changes the tick interval. A running loop picks it up after its
// next tick.
func (w *Watchdog) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	w.interval.Store(int64(d))
}

// Start launches the sampling loop unless one is already running. The loop
// also exits when ctx is cancelled.
func (w *Watchdog) Start(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	gen := w.generation.Add(1)
	go w.loop(ctx, gen)
	w.logger.Info("memory watchdog started", "limit_mb", w.Limit(), "interval", time.Duration(w.interval.Load()))
}

// Stop asks the loop to exit.
func (w *Watchdog) Stop() {
	if w.running.CompareAndSwap(true, false) {
		w.logger.Info("memory watchdog stopped")
	}
}

// Running reports whether a loop is active.
func (w *Watchdog) Running() bool {
	return w.running.Load()
}

// Last returns the most recent reading taken by the loop.
func (w *Watchdog) Last() (Status, bool) {
	s := w.last.Load()
	if s == nil {
		return Status{}, false
	}
	return *s, true
}

func (w *Watchdog) loop(ctx context.Context, gen uint64) {
	interval := time.Duration(w.interval.Load())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	current := func() bool {
		return w.running.Load() && w.generation.Load() == gen
	}

	for {
		if !current() {
			return
		}
		w.tick(ctx)

		select {
		case <-ctx.Done():
			if w.generation.Load() == gen {
				w.running.Store(false)
			}
			return
		case <-ticker.C:
		}

		if next := time.Duration(w.interval.Load()); next != interval {
			interval = next
			ticker.Reset(interval)
		}
	}
}

func (w *Watchdog) tick(ctx context.Context) {
	status, err := w.Status(ctx)
	if err != nil {
		w.logger.Warn("failed to sample memory usage", "error", err)
		return
	}
	w.last.Store(&status)

	w.publish(events.MemoryStatus, status)
	if status.IsOverLimit {
		w.logger.Warn("memory usage over limit", "current_mb", status.CurrentMB, "limit_mb", status.LimitMB)
		w.publish(events.MemoryWarning, status)
	}
}

func (w *Watchdog) publish(name string, status Status) {
	if w.publisher != nil {
		w.publisher.Publish(events.New(name, status))
	}
}

// Status takes a fresh reading.
func (w *Watchdog) Status(ctx context.Context) (Status, error) {
	bytes, err := w.sampler.SampleResidentMemory(ctx)
	if err != nil {
		return Status{}, err
	}
	return NewStatus(bytes/bytesPerMB, w.Limit()), nil
}

// Cleanup forces a collection, returns freed pages to the OS and reports the
// resulting usage.
func (w *Watchdog) Cleanup(ctx context.Context) (string, error) {
	runtime.GC()
	debug.FreeOSMemory()

	status, err := w.Status(ctx)
	if err != nil {
		return "", err
	}
	w.logger.Info("memory cleanup complete", "current_mb", status.CurrentMB)
	return fmt.Sprintf("memory cleanup complete, current usage: %dMB", status.CurrentMB), nil
}
