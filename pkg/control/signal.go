// Package control holds the state shared between the voice listener and
// the main loop: whether detection is active, and a single-slot calibration
// request.
package control

import "sync"

// State is the tri-state view of the control signal.
type State int

const (
	Idle State = iota
	DetectionActive
	CalibrationRequested
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case DetectionActive:
		return "detection_active"
	case CalibrationRequested:
		return "calibration_requested"
	default:
		return "idle"
	}
}

// Signal is safe for concurrent use. The listener writes it; the main loop
// reads it once per frame and drains at most one calibration request.
type Signal struct {
	mu      sync.Mutex
	active  bool
	pending bool

	// OnChange, if set, is called with the new state after each change.
	// It runs outside the lock.
	OnChange func(State)
}

// New returns an idle signal.
func New() *Signal {
	return &Signal{}
}

// SetActive turns detection on or off.
func (s *Signal) SetActive(active bool) {
	s.mu.Lock()
	changed := s.active != active
	s.active = active
	st := s.stateLocked()
	s.mu.Unlock()

	if changed {
		s.notify(st)
	}
}

// Active reports whether detection is on.
func (s *Signal) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// RequestCalibration marks a calibration as pending. Requests made while one
// is already pending collapse into it. Returns false if one was pending.
func (s *Signal) RequestCalibration() bool {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = true
	st := s.stateLocked()
	s.mu.Unlock()

	s.notify(st)
	return true
}

// TakeCalibration consumes the pending request, if any.
func (s *Signal) TakeCalibration() bool {
	s.mu.Lock()
	taken := s.pending
	s.pending = false
	st := s.stateLocked()
	s.mu.Unlock()

	if taken {
		s.notify(st)
	}
	return taken
}

// State returns the current tri-state. A pending calibration takes
// precedence over the detection flag.
func (s *Signal) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Signal) stateLocked() State {
	switch {
	case s.pending:
		return CalibrationRequested
	case s.active:
		return DetectionActive
	default:
		return Idle
	}
}

func (s *Signal) notify(st State) {
	if s.OnChange != nil {
		s.OnChange(st)
	}
}
