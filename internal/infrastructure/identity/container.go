package identity

import "sync"

// Slot is an in-memory ButtonContainer. Surfaces that render server-side
// use it to collect the control the provider mounts; tests use it to assert
// clear-before-render behaviour.
type Slot struct {
	width int

	mu       sync.Mutex
	controls []any
}

// NewSlot builds a Slot with the given layout width.
func NewSlot(width int) *Slot {
	return &Slot{width: width}
}

func (s *Slot) Width() int { return s.width }

func (s *Slot) Clear() {
	s.mu.Lock()
	s.controls = nil
	s.mu.Unlock()
}

func (s *Slot) Mount(control any) {
	s.mu.Lock()
	s.controls = append(s.controls, control)
	s.mu.Unlock()
}

// Controls returns a copy of the currently mounted controls.
func (s *Slot) Controls() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.controls))
	copy(out, s.controls)
	return out
}
