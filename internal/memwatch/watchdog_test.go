package memwatch

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/overlaycat/internal/events"
)

type chanPublisher struct {
	ch chan events.Event
}

func (p *chanPublisher) Publish(e events.Event) {
	select {
	case p.ch <- e:
	default:
	}
}

func fixedSampler(mb uint64) Sampler {
	return SamplerFunc(func(context.Context) (uint64, error) {
		return mb * bytesPerMB, nil
	})
}

func TestNewStatus(t *testing.T) {
	tests := []struct {
		current, limit uint64
		pct            float64
		over           bool
	}{
		{350, 300, 116.67, true},
		{300, 300, 100, false},
		{150, 300, 50, false},
		{0, 300, 0, false},
	}
	for _, tt := range tests {
		s := NewStatus(tt.current, tt.limit)
		if math.Abs(s.UsagePercentage-tt.pct) > 0.01 {
			t.Errorf("NewStatus(%d, %d).UsagePercentage = %.4f, want %.2f", tt.current, tt.limit, s.UsagePercentage, tt.pct)
		}
		if s.IsOverLimit != tt.over {
			t.Errorf("NewStatus(%d, %d).IsOverLimit = %v, want %v", tt.current, tt.limit, s.IsOverLimit, tt.over)
		}
	}
}

func TestStatus_OverLimit(t *testing.T) {
	w := New(Config{LimitMB: 300, Sampler: fixedSampler(350)})
	s, err := w.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if s.CurrentMB != 350 || s.LimitMB != 300 || !s.IsOverLimit {
		t.Fatalf("unexpected status %+v", s)
	}
	if math.Abs(s.UsagePercentage-116.67) > 0.01 {
		t.Fatalf("usage = %.4f, want ~116.67", s.UsagePercentage)
	}
}

func TestWatchdog_EmitsWarningWhenOverLimit(t *testing.T) {
	pub := &chanPublisher{ch: make(chan events.Event, 16)}
	w := New(Config{LimitMB: 300, Interval: 10 * time.Millisecond, Sampler: fixedSampler(350), Publisher: pub})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[events.MemoryStatus] || !seen[events.MemoryWarning] {
		select {
		case e := <-pub.ch:
			seen[e.Name] = true
			status, ok := e.Payload.(Status)
			if !ok || !status.IsOverLimit {
				t.Fatalf("unexpected payload %#v", e.Payload)
			}
		case <-deadline:
			t.Fatalf("timed out, saw %v", seen)
		}
	}
	if last, ok := w.Last(); !ok || last.CurrentMB != 350 {
		t.Fatalf("Last() = %+v, %v", last, ok)
	}
}

func TestWatchdog_NoWarningUnderLimit(t *testing.T) {
	pub := &chanPublisher{ch: make(chan events.Event, 16)}
	w := New(Config{LimitMB: 300, Interval: 5 * time.Millisecond, Sampler: fixedSampler(100), Publisher: pub})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	count := 0
	for drained := false; !drained; {
		select {
		case e := <-pub.ch:
			if e.Name == events.MemoryWarning {
				t.Fatalf("unexpected warning under limit")
			}
			count++
		default:
			drained = true
		}
	}
	if count == 0 {
		t.Fatalf("expected at least one status event")
	}
}

func TestWatchdog_StartIsIdempotent(t *testing.T) {
	var samples atomic.Int32
	sampler := SamplerFunc(func(context.Context) (uint64, error) {
		samples.Add(1)
		return 10 * bytesPerMB, nil
	})
	w := New(Config{Interval: time.Hour, Sampler: sampler})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Start(ctx)
		}()
	}
	wg.Wait()

	// Only one loop takes its immediate first sample.
	time.Sleep(50 * time.Millisecond)
	if n := samples.Load(); n != 1 {
		t.Fatalf("expected 1 sample from a single loop, got %d", n)
	}
	if !w.Running() {
		t.Fatalf("expected watchdog to be running")
	}
}

func TestWatchdog_StopWithoutStart(t *testing.T) {
	w := New(Config{Sampler: fixedSampler(1)})
	w.Stop()
	if w.Running() {
		t.Fatalf("watchdog should not be running")
	}
}

func TestWatchdog_RestartDoesNotLeaveTwoLoops(t *testing.T) {
	var samples atomic.Int32
	sampler := SamplerFunc(func(context.Context) (uint64, error) {
		samples.Add(1)
		return 10 * bytesPerMB, nil
	})
	w := New(Config{Interval: 20 * time.Millisecond, Sampler: sampler})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	w.Stop()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(110 * time.Millisecond)
	// A single loop ticking every 20ms takes about 6 samples in 110ms plus the
	// first loop's one immediate sample. Two live loops would take about 12.
	if n := samples.Load(); n > 9 {
		t.Fatalf("too many samples for one loop: %d", n)
	}
}

func TestWatchdog_ContextCancelStops(t *testing.T) {
	w := New(Config{Interval: 5 * time.Millisecond, Sampler: fixedSampler(1)})
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	deadline := time.Now().Add(time.Second)
	for w.Running() {
		if time.Now().After(deadline) {
			t.Fatalf("watchdog still running after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatchdog_SamplingFailureKeepsLooping(t *testing.T) {
	var calls atomic.Int32
	sampler := SamplerFunc(func(context.Context) (uint64, error) {
		calls.Add(1)
		return 0, errors.New("proc unavailable")
	})
	w := New(Config{Interval: 5 * time.Millisecond, Sampler: sampler})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	time.Sleep(60 * time.Millisecond)
	if calls.Load() < 2 {
		t.Fatalf("expected repeated sampling attempts, got %d", calls.Load())
	}
	if !w.Running() {
		t.Fatalf("sampling failures must not stop the loop")
	}
}

func TestCleanup(t *testing.T) {
	w := New(Config{Sampler: fixedSampler(42)})
	msg, err := w.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !strings.Contains(msg, "42MB") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestProcessSampler(t *testing.T) {
	rss, err := NewProcessSampler().SampleResidentMemory(context.Background())
	if err != nil {
		t.Skipf("process memory unavailable: %v", err)
	}
	if rss == 0 {
		t.Fatalf("expected non-zero RSS")
	}
}
