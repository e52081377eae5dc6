package display

import (
	"sort"
	"sync"

	"github.com/1broseidon/overlaycat/internal/platform"
)

// WindowInstance is the bookkeeping for one live overlay window.
type WindowInstance struct {
	ID           string `json:"id"`
	MonitorIndex int    `json:"monitorIndex"`
	MonitorName  string `json:"monitorName,omitempty"`
	X            int    `json:"x"`
	Y            int    `json:"y"`
	IsPrimary    bool   `json:"isPrimary"`
}

// WindowPosition is the remembered placement for a monitor slot. Monitor is
// the name of the display it was recorded on.
type WindowPosition struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Monitor string `json:"monitor,omitempty"`
}

// PositionStore remembers the last position used on each slot.
type PositionStore struct {
	mu        sync.Mutex
	positions map[int]WindowPosition
}

// NewPositionStore creates an empty store.
func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[int]WindowPosition)}
}

// Save records pos for slot, replacing any previous entry.
func (s *PositionStore) Save(slot int, pos WindowPosition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[slot] = pos
}

// GetValidated returns the stored position for slot only if a width x height
// window placed there still lies entirely within mon, and, when both names are
// known, it was recorded on a display with the same name. Otherwise the caller
// computes a default. Only X and Y of the result are meant to be reused.
func (s *PositionStore) GetValidated(slot int, mon Monitor, width, height int) (WindowPosition, bool) {
	s.mu.Lock()
	pos, ok := s.positions[slot]
	s.mu.Unlock()
	if !ok {
		return WindowPosition{}, false
	}
	if pos.Monitor != "" && mon.Name != "" && pos.Monitor != mon.Name {
		return WindowPosition{}, false
	}
	if !mon.Bounds().Contains(platform.Rect{X: pos.X, Y: pos.Y, Width: width, Height: height}) {
		return WindowPosition{}, false
	}
	return pos, true
}

// ClearAll forgets every stored position.
func (s *PositionStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = make(map[int]WindowPosition)
}

// Len returns the number of stored positions.
func (s *PositionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions)
}

// Registry maps a monitor slot to the live window opened on it. It does not
// enforce one-window-per-slot on its own; Manager does.
type Registry struct {
	mu        sync.Mutex
	instances map[int]WindowInstance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[int]WindowInstance)}
}

// Get returns the instance registered on slot.
func (r *Registry) Get(slot int) (WindowInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[slot]
	return inst, ok
}

// Put registers inst on slot, replacing any previous entry.
func (r *Registry) Put(slot int, inst WindowInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[slot] = inst
}

// Remove unregisters slot and returns what was there.
func (r *Registry) Remove(slot int) (WindowInstance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[slot]
	if ok {
		delete(r.instances, slot)
	}
	return inst, ok
}

// SlotOf finds the slot holding id without modifying the registry.
func (r *Registry) SlotOf(id string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotOfLocked(id)
}

// RemoveByIdentifier unregisters the instance with id and returns its slot.
func (r *Registry) RemoveByIdentifier(id string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slotOfLocked(id)
	if ok {
		delete(r.instances, slot)
	}
	return slot, ok
}

func (r *Registry) slotOfLocked(id string) (int, bool) {
	for slot, inst := range r.instances {
		if inst.ID == id {
			return slot, true
		}
	}
	return 0, false
}

// List returns a snapshot of all instances ordered by slot.
func (r *Registry) List() []WindowInstance {
	r.mu.Lock()
	out := make([]WindowInstance, 0, len(r.instances))
	for _, inst := range r.instances {
		out = append(out, inst)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].MonitorIndex < out[j].MonitorIndex })
	return out
}

// ClearAll unregisters everything.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[int]WindowInstance)
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
