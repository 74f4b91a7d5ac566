package httpapi

import "sync"

// Selection is the server-side waveform selection. The front end stages
// bounds with the cut command's body; the controller reads them through the
// [session.SelectionSurface] interface when the toggle runs.
type Selection struct {
	mu         sync.Mutex
	active     bool
	start, end float64
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Set stages a selection region in seconds.
func (s *Selection) Set(start, end float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = true
	s.start, s.end = start, end
}

// Active implements [session.SelectionSurface].
func (s *Selection) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Bounds implements [session.SelectionSurface].
func (s *Selection) Bounds() (start, end float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start, s.end
}

// Clear implements [session.SelectionSurface].
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.start, s.end = 0, 0
}
