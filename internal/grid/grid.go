package grid

import (
	"time"

	"timedash/internal/dateutil"
)

// Metrics describes the geometry of the week grid: the vertical scale and the
// visible window of hours. Both come from configuration; events whose start
// falls outside [WindowStartHour, WindowEndHour] receive no rectangle.
type Metrics struct {
	HourPixels      int
	WindowStartHour int
	WindowEndHour   int
}

// TimeOfDay is a wall-clock hour/minute pair within one day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// TimeToOffset converts a time-of-day into a vertical pixel offset from the
// top of the visible window.
func (m Metrics) TimeToOffset(t TimeOfDay) float64 {
	px := float64(m.HourPixels)
	return float64(t.Hour-m.WindowStartHour)*px + float64(t.Minute)/60*px
}

// OffsetToTime is the inverse of TimeToOffset. Minutes are not quantized
// here; snapping to the time quantum is the gesture layer's concern.
func (m Metrics) OffsetToTime(offset float64) TimeOfDay {
	px := float64(m.HourPixels)
	totalMinutes := int(offset/px*60 + 0.5)
	return TimeOfDay{
		Hour:   m.WindowStartHour + totalMinutes/60,
		Minute: totalMinutes % 60,
	}
}

// DurationToHeight converts an event's start/end pair into a rectangle height
// in pixels.
func (m Metrics) DurationToHeight(start, end time.Time) float64 {
	px := float64(m.HourPixels)
	return float64(end.Hour()-start.Hour())*px + float64(end.Minute()-start.Minute())/60*px
}

// StartInWindow reports whether an event starting at t is inside the visible
// window and therefore eligible for layout.
func (m Metrics) StartInWindow(t time.Time) bool {
	h := t.Hour()
	return h >= m.WindowStartHour && h <= m.WindowEndHour
}

// InCreationWindow reports whether a timestamp's time-of-day is acceptable
// for creating or editing an event. The upper bound is inclusive only on the
// exact hour (e.g. 21:00 is allowed, 21:10 is not).
func (m Metrics) InCreationWindow(t time.Time) bool {
	h, min := t.Hour(), t.Minute()
	if h < m.WindowStartHour {
		return false
	}
	if h > m.WindowEndHour {
		return false
	}
	if h == m.WindowEndHour && min > 0 {
		return false
	}
	return true
}

// ColumnFor returns the index of the week day matching t's civil date, or -1
// when t falls outside the week. Columns map 1:1 onto the 7-date WeekView
// sequence.
func ColumnFor(weekDays []time.Time, t time.Time) int {
	for i, day := range weekDays {
		if dateutil.IsSameDay(day, t) {
			return i
		}
	}
	return -1
}
