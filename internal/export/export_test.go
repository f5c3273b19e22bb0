package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timedash/internal/dateutil"
	"timedash/internal/model"
)

func testWeek() ([]time.Time, []model.Event) {
	wed := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	weekDays := dateutil.WeekDays(wed, 1)

	events := []model.Event{
		{
			ID:       "ev-1",
			Title:    "Deep work",
			Start:    time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 1, 3, 11, 0, 0, 0, time.UTC),
			Category: model.CategoryWork,
		},
		{
			ID:       "ev-2",
			Title:    "Next week",
			Start:    time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
			Category: model.CategoryPersonal,
		},
	}
	return weekDays, events
}

func TestWeekJSON(t *testing.T) {
	t.Parallel()

	weekDays, events := testWeek()

	data, err := WeekJSON(events, weekDays)
	require.NoError(t, err)

	var doc struct {
		WeekStart string `json:"week_start"`
		WeekEnd   string `json:"week_end"`
		Events    []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Start    string `json:"start"`
			Category string `json:"category"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	// Only the in-week event survives the filter.
	require.Len(t, doc.Events, 1)
	assert.Equal(t, "ev-1", doc.Events[0].ID)
	assert.Equal(t, "work", doc.Events[0].Category)

	// Timestamps round-trip through RFC 3339.
	start, err := time.Parse(time.RFC3339, doc.Events[0].Start)
	require.NoError(t, err)
	assert.True(t, start.Equal(events[0].Start))

	weekStart, err := time.Parse(time.RFC3339, doc.WeekStart)
	require.NoError(t, err)
	assert.True(t, dateutil.IsSameDay(weekStart, weekDays[0]))
}

func TestWeekJSONEmptyWeek(t *testing.T) {
	t.Parallel()

	weekDays, _ := testWeek()
	data, err := WeekJSON(nil, weekDays)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"events": []`)
}

func TestWeekICS(t *testing.T) {
	t.Parallel()

	weekDays, events := testWeek()
	body := WeekICS(events, weekDays)

	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "END:VCALENDAR")
	assert.Contains(t, body, "METHOD:PUBLISH")
	assert.Contains(t, body, "UID:ev-1")
	assert.Contains(t, body, "SUMMARY:Deep work")
	assert.Contains(t, body, "CATEGORIES:work")

	// The out-of-week event is filtered here too.
	assert.NotContains(t, body, "ev-2")
}
