package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeToOffsetAndBack(t *testing.T) {
	t.Parallel()

	m := Metrics{HourPixels: 64, WindowStartHour: 8, WindowEndHour: 21}

	tests := []struct {
		name string
		tod  TimeOfDay
		want float64
	}{
		{"window top", TimeOfDay{Hour: 8, Minute: 0}, 0},
		{"half past ten", TimeOfDay{Hour: 10, Minute: 30}, 160},
		{"quarter step", TimeOfDay{Hour: 8, Minute: 15}, 16},
		{"window bottom", TimeOfDay{Hour: 21, Minute: 0}, 832},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			offset := m.TimeToOffset(tt.tod)
			assert.InDelta(t, tt.want, offset, 0.001)

			// The inverse recovers the exact hour/minute pair.
			back := m.OffsetToTime(offset)
			assert.Equal(t, tt.tod, back)
		})
	}
}

func TestOffsetToTimeDoesNotQuantize(t *testing.T) {
	t.Parallel()

	m := Metrics{HourPixels: 60, WindowStartHour: 8, WindowEndHour: 21}

	// 7 pixels at 60 px/hour is exactly 7 minutes; no snapping here.
	got := m.OffsetToTime(7)
	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 7}, got)
}

func TestDurationToHeight(t *testing.T) {
	t.Parallel()

	m := Metrics{HourPixels: 50, WindowStartHour: 8, WindowEndHour: 21}
	start := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 3, 10, 30, 0, 0, time.UTC)

	assert.InDelta(t, 75, m.DurationToHeight(start, end), 0.001)
}

func TestStartInWindow(t *testing.T) {
	t.Parallel()

	m := Metrics{HourPixels: 50, WindowStartHour: 8, WindowEndHour: 21}

	at := func(h, min int) time.Time {
		return time.Date(2024, 1, 3, h, min, 0, 0, time.UTC)
	}

	assert.False(t, m.StartInWindow(at(7, 59)))
	assert.True(t, m.StartInWindow(at(8, 0)))
	assert.True(t, m.StartInWindow(at(21, 30)))
	assert.False(t, m.StartInWindow(at(22, 0)))
}

func TestInCreationWindow(t *testing.T) {
	t.Parallel()

	m := Metrics{HourPixels: 50, WindowStartHour: 8, WindowEndHour: 21}

	at := func(h, min int) time.Time {
		return time.Date(2024, 1, 3, h, min, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		in   time.Time
		want bool
	}{
		{"before window", at(7, 0), false},
		{"window start", at(8, 0), true},
		{"midday", at(14, 30), true},
		{"exact upper bound", at(21, 0), true},
		{"past upper bound", at(21, 10), false},
		{"after window", at(22, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, m.InCreationWindow(tt.in))
		})
	}
}

func TestColumnFor(t *testing.T) {
	t.Parallel()

	weekDays := make([]time.Time, 7)
	for i := range weekDays {
		weekDays[i] = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}

	inWeek := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	outOfWeek := time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 2, ColumnFor(weekDays, inWeek))
	assert.Equal(t, -1, ColumnFor(weekDays, outOfWeek))
}
