package display

import (
	"sync"
	"testing"
)

func TestPositionStore_GetValidated(t *testing.T) {
	mon := Monitor{Index: 0, Name: "DP-1", X: 0, Y: 0, Width: 1920, Height: 1080}

	tests := []struct {
		name string
		pos  WindowPosition
		ok   bool
	}{
		{"inside", WindowPosition{X: 100, Y: 100, Width: 400, Height: 400, Monitor: "DP-1"}, true},
		{"touching edges", WindowPosition{X: 1520, Y: 680, Width: 400, Height: 400, Monitor: "DP-1"}, true},
		{"overflows right", WindowPosition{X: 1700, Y: 100, Width: 400, Height: 400, Monitor: "DP-1"}, false},
		{"top-left outside", WindowPosition{X: -10, Y: 100, Width: 400, Height: 400, Monitor: "DP-1"}, false},
		{"different monitor", WindowPosition{X: 100, Y: 100, Width: 400, Height: 400, Monitor: "HDMI-1"}, false},
		{"unnamed record", WindowPosition{X: 100, Y: 100, Width: 400, Height: 400}, true},
		{"fits only at recorded size", WindowPosition{X: 1700, Y: 100, Width: 200, Height: 200, Monitor: "DP-1"}, false},
		{"recorded size ignored", WindowPosition{X: 100, Y: 100, Width: 10, Height: 10, Monitor: "DP-1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPositionStore()
			s.Save(0, tt.pos)
			got, ok := s.GetValidated(0, mon, 400, 400)
			if ok != tt.ok {
				t.Fatalf("GetValidated ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.pos {
				t.Fatalf("GetValidated = %+v, want %+v", got, tt.pos)
			}
		})
	}
}

func TestPositionStore_MissingAndClear(t *testing.T) {
	s := NewPositionStore()
	mon := Monitor{Width: 800, Height: 600}
	if _, ok := s.GetValidated(1, mon, 100, 100); ok {
		t.Fatalf("expected no position for unsaved slot")
	}

	s.Save(1, WindowPosition{X: 10, Y: 10, Width: 100, Height: 100})
	s.Save(2, WindowPosition{X: 10, Y: 10, Width: 100, Height: 100})
	if s.Len() != 2 {
		t.Fatalf("expected 2 positions, got %d", s.Len())
	}
	s.ClearAll()
	if s.Len() != 0 {
		t.Fatalf("expected empty store after ClearAll, got %d", s.Len())
	}
}

func TestRegistry_PutReplacesAndRemove(t *testing.T) {
	r := NewRegistry()
	r.Put(0, WindowInstance{ID: "secondary_monitor_0", MonitorIndex: 0})
	r.Put(0, WindowInstance{ID: "main_monitor_0", MonitorIndex: 0, IsPrimary: true})

	inst, ok := r.Get(0)
	if !ok || inst.ID != "main_monitor_0" {
		t.Fatalf("expected replaced entry, got %+v (ok=%v)", inst, ok)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", r.Len())
	}

	removed, ok := r.Remove(0)
	if !ok || removed.ID != "main_monitor_0" {
		t.Fatalf("Remove returned %+v (ok=%v)", removed, ok)
	}
	if _, ok := r.Remove(0); ok {
		t.Fatalf("second Remove should report nothing removed")
	}
}

func TestRegistry_RemoveByIdentifier(t *testing.T) {
	r := NewRegistry()
	r.Put(1, WindowInstance{ID: "secondary_monitor_1", MonitorIndex: 1})
	r.Put(3, WindowInstance{ID: "secondary_monitor_3", MonitorIndex: 3})

	if slot, ok := r.SlotOf("secondary_monitor_3"); !ok || slot != 3 {
		t.Fatalf("SlotOf = (%d, %v), want (3, true)", slot, ok)
	}
	slot, ok := r.RemoveByIdentifier("secondary_monitor_3")
	if !ok || slot != 3 {
		t.Fatalf("RemoveByIdentifier = (%d, %v), want (3, true)", slot, ok)
	}
	if _, ok := r.RemoveByIdentifier("secondary_monitor_3"); ok {
		t.Fatalf("expected identifier to be gone")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", r.Len())
	}
}

func TestRegistry_ListOrderedBySlot(t *testing.T) {
	r := NewRegistry()
	for _, slot := range []int{4, 0, 2} {
		r.Put(slot, WindowInstance{ID: Identifier(slot, RoleSecondary), MonitorIndex: slot})
	}
	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	for i, want := range []int{0, 2, 4} {
		if list[i].MonitorIndex != want {
			t.Fatalf("list[%d].MonitorIndex = %d, want %d", i, list[i].MonitorIndex, want)
		}
	}

	// The snapshot is a copy.
	list[0].ID = "mutated"
	if inst, _ := r.Get(0); inst.ID == "mutated" {
		t.Fatalf("List must return a copy")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			id := Identifier(slot%5, RoleSecondary)
			r.Put(slot%5, WindowInstance{ID: id, MonitorIndex: slot % 5})
			_ = r.List()
			r.RemoveByIdentifier(id)
		}(i)
	}
	wg.Wait()
	if r.Len() > 5 {
		t.Fatalf("registry grew beyond slot count: %d", r.Len())
	}
}
