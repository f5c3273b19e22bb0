package export

import (
	"encoding/json"
	"time"

	ical "github.com/arran4/golang-ical"

	"timedash/internal/dateutil"
	"timedash/internal/model"
)

// weekDocument is the JSON download shape for one week of events.
type weekDocument struct {
	WeekStart string      `json:"week_start"`
	WeekEnd   string      `json:"week_end"`
	Events    []weekEvent `json:"events"`
}

type weekEvent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
}

// filterWeek keeps the events whose start date falls on one of the given
// week days.
func filterWeek(events []model.Event, weekDays []time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		for _, day := range weekDays {
			if dateutil.IsSameDay(ev.Start, day) {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

// WeekJSON serializes the given week's events to a downloadable JSON
// document with ISO-8601 timestamps. Export is one-way; there is no import
// path.
func WeekJSON(events []model.Event, weekDays []time.Time) ([]byte, error) {
	doc := weekDocument{Events: []weekEvent{}}
	if len(weekDays) > 0 {
		doc.WeekStart = weekDays[0].Format(time.RFC3339)
		doc.WeekEnd = weekDays[len(weekDays)-1].Format(time.RFC3339)
	}

	for _, ev := range filterWeek(events, weekDays) {
		doc.Events = append(doc.Events, weekEvent{
			ID:       ev.ID,
			Title:    ev.Title,
			Start:    ev.Start.Format(time.RFC3339),
			End:      ev.End.Format(time.RFC3339),
			Category: string(ev.Category),
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// WeekICS builds an iCalendar document for the given week's events.
func WeekICS(events []model.Event, weekDays []time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//timedash//week export//EN")

	for _, ev := range filterWeek(events, weekDays) {
		ve := cal.AddEvent(ev.ID)
		ve.SetSummary(ev.Title)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetProperty(ical.ComponentPropertyCategories, string(ev.Category))
		ve.SetDtStampTime(time.Now().UTC())
	}

	return cal.Serialize()
}
