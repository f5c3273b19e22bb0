package gesture

import (
	"time"

	"timedash/internal/grid"
	"timedash/internal/model"
)

// Kind identifies what a pointer-drag on an event rectangle manipulates.
type Kind string

const (
	// Move translates both endpoints, preserving duration.
	Move Kind = "move"
	// ResizeTop moves only the start endpoint.
	ResizeTop Kind = "resize-top"
	// ResizeBottom moves only the end endpoint.
	ResizeBottom Kind = "resize-bottom"
)

// Valid reports whether k is a known gesture kind.
func (k Kind) Valid() bool {
	switch k {
	case Move, ResizeTop, ResizeBottom:
		return true
	}
	return false
}

// Session is the state of one continuous pointer-down -> move -> up sequence
// on a single event. It replaces closure-captured drag variables with an
// explicit, inspectable record: the original endpoints are fixed at
// gesture-start and every tick is computed from them plus the accumulated
// pixel delta, so rejected ticks leave no residue.
type Session struct {
	kind    Kind
	metrics grid.Metrics

	// snapMinutes is the time quantum applied to drag deltas.
	snapMinutes int
	// minBlockPx is the height floor guarding against degenerate blocks.
	minBlockPx int

	originalStart time.Time
	originalEnd   time.Time

	// Current (accepted) endpoint state; starts equal to the originals.
	start time.Time
	end   time.Time
}

// Config carries the grid geometry and interaction constants for sessions.
type Config struct {
	Metrics     grid.Metrics
	SnapMinutes int
	MinBlockPx  int
}

// Begin opens a gesture session of the given kind on an event.
func Begin(kind Kind, ev model.Event, cfg Config) *Session {
	snap := cfg.SnapMinutes
	if snap <= 0 {
		snap = 15
	}
	minPx := cfg.MinBlockPx
	if minPx <= 0 {
		minPx = 25
	}
	return &Session{
		kind:          kind,
		metrics:       cfg.Metrics,
		snapMinutes:   snap,
		minBlockPx:    minPx,
		originalStart: ev.Start,
		originalEnd:   ev.End,
		start:         ev.Start,
		end:           ev.End,
	}
}

// Times returns the session's current start/end pair, i.e. the state after
// the last accepted tick.
func (s *Session) Times() (start, end time.Time) {
	return s.start, s.end
}

// MoveBy processes one pointer-move tick with the accumulated vertical pixel
// delta since gesture-start. The delta is converted to minutes and snapped to
// the time quantum; a tick whose result violates the window or size
// constraints is rejected and leaves the session state unchanged. It returns
// whether the tick was accepted.
func (s *Session) MoveBy(deltaPixels float64) bool {
	deltaMinutes := s.snapDelta(deltaPixels)
	shift := time.Duration(deltaMinutes) * time.Minute

	switch s.kind {
	case Move:
		newStart := s.originalStart.Add(shift)
		newEnd := s.originalEnd.Add(shift)
		if !s.metrics.InCreationWindow(newStart) || !s.metrics.InCreationWindow(newEnd) {
			return false
		}
		s.start = newStart
		s.end = newEnd
		return true

	case ResizeTop:
		newStart := s.originalStart.Add(shift)
		if !newStart.Before(s.originalEnd) {
			return false
		}
		if !s.metrics.InCreationWindow(newStart) {
			return false
		}
		s.start = newStart
		return true

	case ResizeBottom:
		newEnd := s.originalEnd.Add(shift)
		if !newEnd.After(s.originalStart) {
			return false
		}
		if !s.metrics.InCreationWindow(newEnd) {
			return false
		}
		if s.metrics.DurationToHeight(s.originalStart, newEnd) < float64(s.minBlockPx) {
			return false
		}
		s.end = newEnd
		return true
	}
	return false
}

// snapDelta converts a pixel delta to minutes rounded to the nearest snap
// step.
func (s *Session) snapDelta(deltaPixels float64) int {
	minutesPerPixel := 60 / float64(s.metrics.HourPixels)
	raw := deltaPixels * minutesPerPixel / float64(s.snapMinutes)
	steps := int(roundHalfAway(raw))
	return steps * s.snapMinutes
}

// End closes the session and returns the final endpoints for committing
// through the event store. There is no cancel gesture: whatever state exists
// at pointer-up is what gets committed.
func (s *Session) End() (start, end time.Time) {
	return s.start, s.end
}

func roundHalfAway(v float64) float64 {
	if v >= 0 {
		return float64(int(v + 0.5))
	}
	return float64(int(v - 0.5))
}
