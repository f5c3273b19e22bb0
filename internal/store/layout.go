package store

import (
	"time"

	"timedash/internal/grid"
)

// HoverZ is the elevation a rectangle is promoted to while hovered. It sits
// above every base z-order so the hovered event paints over its siblings;
// on pointer-leave the renderer reverts to Rect.Z.
const HoverZ = 1000

// Rect is the on-screen placement of one event within the week grid.
type Rect struct {
	Col    int     `json:"col"`
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
	Z      int     `json:"z"`
}

// Layout computes the rectangle for every event whose start date matches one
// of the given week days. Events starting outside the visible window are
// omitted from the result, not an error.
//
// Overlapping events are not reflowed side by side: their rectangles remain
// geometrically overlapping, and the stacking pass below (base z by
// collection index, HoverZ on pointer-enter) is the only disambiguation.
func (s *EventStore) Layout(weekDays []time.Time) map[string]Rect {
	rects := make(map[string]Rect)

	for i, ev := range s.events {
		col := grid.ColumnFor(weekDays, ev.Start)
		if col == -1 {
			continue
		}
		if !s.metrics.StartInWindow(ev.Start) {
			continue
		}

		top := s.metrics.TimeToOffset(grid.TimeOfDay{Hour: ev.Start.Hour(), Minute: ev.Start.Minute()})
		height := s.metrics.DurationToHeight(ev.Start, ev.End)

		rects[ev.ID] = Rect{
			Col:    col,
			Top:    top,
			Height: height,
			// Later-indexed events stack above earlier ones.
			Z: i + 1,
		}
	}

	return rects
}
