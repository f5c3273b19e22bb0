package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timedash/internal/grid"
	"timedash/internal/kv"
	appLog "timedash/internal/log"
	"timedash/internal/model"
)

// EventsKey is the key under which the event collection is persisted.
const EventsKey = "calendarEvents"

// storedEvent is the wire shape of one persisted event. Start and end are
// ISO-8601 strings; deserialization reverses this exactly before any date
// arithmetic happens.
type storedEvent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
}

// EventStore exclusively owns the in-memory event collection. It is loaded
// once at construction, mutated in place by the CRUD operations, and the
// entire collection is re-serialized to the key-value store on every
// mutation.
type EventStore struct {
	kv      kv.Store
	metrics grid.Metrics
	loc     *time.Location
	events  []model.Event
}

// New loads the persisted collection (an absent key or a corrupt payload
// degrades to an empty collection) and returns the store.
func New(store kv.Store, metrics grid.Metrics, loc *time.Location) *EventStore {
	if loc == nil {
		loc = time.Local
	}
	s := &EventStore{
		kv:      store,
		metrics: metrics,
		loc:     loc,
	}
	s.events = s.load()
	return s
}

func (s *EventStore) load() []model.Event {
	raw, ok, err := s.kv.Get(EventsKey)
	if err != nil {
		appLog.Error("event load failed; starting empty", err, "key", EventsKey)
		return []model.Event{}
	}
	if !ok {
		return []model.Event{}
	}

	var stored []storedEvent
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		appLog.Error("event payload corrupt; starting empty", err, "key", EventsKey)
		return []model.Event{}
	}

	events := make([]model.Event, 0, len(stored))
	for _, se := range stored {
		start, serr := time.Parse(time.RFC3339, se.Start)
		if serr != nil {
			appLog.Error("skipping event with bad start timestamp", serr, "id", se.ID)
			continue
		}
		end, eerr := time.Parse(time.RFC3339, se.End)
		if eerr != nil {
			appLog.Error("skipping event with bad end timestamp", eerr, "id", se.ID)
			continue
		}
		events = append(events, model.Event{
			ID:       se.ID,
			Title:    se.Title,
			Start:    start.In(s.loc),
			End:      end.In(s.loc),
			Category: model.Category(se.Category),
		})
	}

	appLog.Info("events loaded", "count", len(events))
	return events
}

// persist writes the whole collection back. Write failures are logged and
// otherwise ignored: the in-memory collection stays authoritative for the
// rest of the session.
func (s *EventStore) persist() {
	stored := make([]storedEvent, 0, len(s.events))
	for _, ev := range s.events {
		stored = append(stored, storedEvent{
			ID:       ev.ID,
			Title:    ev.Title,
			Start:    ev.Start.Format(time.RFC3339),
			End:      ev.End.Format(time.RFC3339),
			Category: string(ev.Category),
		})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		appLog.Error("event serialization failed", err, "count", len(stored))
		return
	}
	if err := s.kv.Set(EventsKey, string(data)); err != nil {
		appLog.Error("event persist failed; in-memory state unsaved", err, "key", EventsKey)
	}
}

// List returns a copy of every stored event.
func (s *EventStore) List() []model.Event {
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Get returns the event with the given id.
func (s *EventStore) Get(id string) (model.Event, error) {
	for _, ev := range s.events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.Event{}, ErrNotFound
}

// Create validates, assigns a fresh id, appends, and persists a new event.
// Empty titles and unknown categories get defaults substituted rather than
// rejected.
func (s *EventStore) Create(title string, category model.Category, start, end time.Time) (model.Event, error) {
	if err := s.validateTimes(start, end); err != nil {
		return model.Event{}, err
	}
	if title == "" {
		title = "New event"
	}
	if !category.Valid() {
		category = model.CategoryWork
	}

	ev := model.Event{
		ID:       uuid.NewString(),
		Title:    title,
		Start:    start.In(s.loc),
		End:      end.In(s.loc),
		Category: category,
	}
	s.events = append(s.events, ev)
	s.persist()

	appLog.Info("event created", "id", ev.ID, "title", ev.Title, "category", string(ev.Category))
	return ev, nil
}

// Update describes the mutable fields of an event; nil fields are left
// untouched.
type Update struct {
	Title    *string
	Category *model.Category
	Start    *time.Time
	End      *time.Time
}

// ApplyUpdate merges the given fields into the event with the given id,
// re-validates the time invariants, persists, and returns the updated event.
func (s *EventStore) ApplyUpdate(id string, upd Update) (model.Event, error) {
	idx := -1
	for i, ev := range s.events {
		if ev.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		appLog.Error("update for unknown event", ErrNotFound, "id", id)
		return model.Event{}, ErrNotFound
	}

	merged := s.events[idx]
	if upd.Title != nil {
		merged.Title = *upd.Title
	}
	if upd.Category != nil && upd.Category.Valid() {
		merged.Category = *upd.Category
	}
	if upd.Start != nil {
		merged.Start = upd.Start.In(s.loc)
	}
	if upd.End != nil {
		merged.End = upd.End.In(s.loc)
	}

	if err := s.validateTimes(merged.Start, merged.End); err != nil {
		return model.Event{}, err
	}

	s.events[idx] = merged
	s.persist()
	return merged, nil
}

// Delete removes the event with the given id and persists. Any required user
// confirmation is the caller's capability; Delete itself does not prompt.
func (s *EventStore) Delete(id string) error {
	for i, ev := range s.events {
		if ev.ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			s.persist()
			appLog.Info("event deleted", "id", id)
			return nil
		}
	}
	appLog.Error("delete for unknown event", ErrNotFound, "id", id)
	return ErrNotFound
}

// Len reports the number of stored events.
func (s *EventStore) Len() int {
	return len(s.events)
}

func (s *EventStore) validateTimes(start, end time.Time) error {
	if !end.After(start) {
		return newValidationError("end time must be after start time")
	}
	if !s.metrics.InCreationWindow(start) || !s.metrics.InCreationWindow(end) {
		return newValidationError(fmt.Sprintf(
			"events must fall between %02d:00 and %02d:00",
			s.metrics.WindowStartHour, s.metrics.WindowEndHour,
		))
	}
	return nil
}
