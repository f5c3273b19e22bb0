package model

import "time"

// Category classifies a scheduled event and determines its rendered color.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
	CategoryHealth   Category = "health"
	CategoryOther    Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryStudy, CategoryHealth, CategoryOther:
		return true
	}
	return false
}

// Color returns the fixed hex color for a category, used by the analytics
// charts and as a fallback for the week grid.
func (c Category) Color() string {
	switch c {
	case CategoryWork:
		return "#4f46e5"
	case CategoryPersonal:
		return "#10b981"
	case CategoryStudy:
		return "#8b5cf6"
	case CategoryHealth:
		return "#ef4444"
	default:
		return "#6366f1"
	}
}

// Event is a scheduled time block on the week calendar.
//
// The id is assigned at creation and immutable afterwards. Start and End are
// wall-clock timestamps in the configured display timezone; Start < End holds
// for every persisted event.
type Event struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Category Category  `json:"category"`
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Priority levels for task urgency and importance.
type Priority string

const (
	PriorityLow  Priority = "low"
	PriorityHigh Priority = "high"
)

// TaskStatus is the completion state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// Task is an entry in the Eisenhower prioritization matrix.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Urgency     Priority   `json:"urgency"`
	Importance  Priority   `json:"importance"`
	DueDate     string     `json:"dueDate"` // free-form DD/MM, may be empty
	Status      TaskStatus `json:"status"`
}

// Quadrant maps the urgency/importance pair onto the four matrix quadrants:
//
//	1: urgent & important       (do now)
//	2: important, not urgent    (schedule)
//	3: urgent, not important    (delegate)
//	4: not urgent, not important (eliminate)
func (t Task) Quadrant() int {
	switch {
	case t.Urgency == PriorityHigh && t.Importance == PriorityHigh:
		return 1
	case t.Importance == PriorityHigh:
		return 2
	case t.Urgency == PriorityHigh:
		return 3
	default:
		return 4
	}
}

// TimerSettings configures the Pomodoro focus timer.
type TimerSettings struct {
	WorkMinutes  int `json:"workDuration"`
	BreakMinutes int `json:"breakDuration"`
	Cycles       int `json:"cycles"`
}

// CategoryBucket is one slice of the time-usage summary: total hours spent in
// a category over the selected view window.
type CategoryBucket struct {
	Category Category `json:"category"`
	Hours    float64  `json:"hours"`
	Color    string   `json:"color"`
}
