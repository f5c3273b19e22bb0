package tasks

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"timedash/internal/kv"
	appLog "timedash/internal/log"
	"timedash/internal/model"
)

// TasksKey is the key under which the task collection is persisted.
const TasksKey = "taskMatrixData"

// ErrNotFound is returned when an operation references an unknown task id.
var ErrNotFound = errors.New("task not found")

// Store owns the Eisenhower matrix task collection. Like the event store, it
// holds the whole collection in memory and re-persists it after every
// mutation.
type Store struct {
	kv    kv.Store
	tasks []model.Task
}

// New loads the persisted collection; absent or corrupt data degrades to an
// empty collection.
func New(store kv.Store) *Store {
	s := &Store{kv: store}
	s.tasks = s.load()
	return s
}

func (s *Store) load() []model.Task {
	raw, ok, err := s.kv.Get(TasksKey)
	if err != nil {
		appLog.Error("task load failed; starting empty", err, "key", TasksKey)
		return []model.Task{}
	}
	if !ok {
		return []model.Task{}
	}

	var tasks []model.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		appLog.Error("task payload corrupt; starting empty", err, "key", TasksKey)
		return []model.Task{}
	}
	return tasks
}

func (s *Store) persist() {
	data, err := json.Marshal(s.tasks)
	if err != nil {
		appLog.Error("task serialization failed", err, "count", len(s.tasks))
		return
	}
	if err := s.kv.Set(TasksKey, string(data)); err != nil {
		appLog.Error("task persist failed; in-memory state unsaved", err, "key", TasksKey)
	}
}

// List returns a copy of every task.
func (s *Store) List() []model.Task {
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Quadrants buckets every task into its matrix quadrant (keys 1..4).
func (s *Store) Quadrants() map[int][]model.Task {
	out := map[int][]model.Task{1: {}, 2: {}, 3: {}, 4: {}}
	for _, t := range s.tasks {
		q := t.Quadrant()
		out[q] = append(out[q], t)
	}
	return out
}

// Create validates priorities, assigns a fresh id, appends, and persists.
func (s *Store) Create(t model.Task) (model.Task, error) {
	if t.Title == "" {
		return model.Task{}, errors.New("title is required")
	}
	if t.Urgency != model.PriorityHigh {
		t.Urgency = model.PriorityLow
	}
	if t.Importance != model.PriorityHigh {
		t.Importance = model.PriorityLow
	}
	if t.Status != model.TaskCompleted {
		t.Status = model.TaskPending
	}
	t.ID = uuid.NewString()

	s.tasks = append(s.tasks, t)
	s.persist()
	appLog.Info("task created", "id", t.ID, "quadrant", t.Quadrant())
	return t, nil
}

// Update replaces the mutable fields of the task with the given id, keeping
// the original id.
func (s *Store) Update(id string, upd model.Task) (model.Task, error) {
	for i, t := range s.tasks {
		if t.ID != id {
			continue
		}
		upd.ID = id
		if upd.Title == "" {
			upd.Title = t.Title
		}
		if upd.Urgency != model.PriorityHigh && upd.Urgency != model.PriorityLow {
			upd.Urgency = t.Urgency
		}
		if upd.Importance != model.PriorityHigh && upd.Importance != model.PriorityLow {
			upd.Importance = t.Importance
		}
		if upd.Status != model.TaskCompleted && upd.Status != model.TaskPending {
			upd.Status = t.Status
		}
		s.tasks[i] = upd
		s.persist()
		return upd, nil
	}
	return model.Task{}, ErrNotFound
}

// ToggleStatus flips a task between pending and completed.
func (s *Store) ToggleStatus(id string) (model.Task, error) {
	for i, t := range s.tasks {
		if t.ID != id {
			continue
		}
		if t.Status == model.TaskCompleted {
			t.Status = model.TaskPending
		} else {
			t.Status = model.TaskCompleted
		}
		s.tasks[i] = t
		s.persist()
		return t, nil
	}
	return model.Task{}, ErrNotFound
}

// Delete removes the task with the given id.
func (s *Store) Delete(id string) error {
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.persist()
			return nil
		}
	}
	return ErrNotFound
}
