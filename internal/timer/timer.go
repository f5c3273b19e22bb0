package timer

import (
	"encoding/json"

	"timedash/internal/kv"
	appLog "timedash/internal/log"
	"timedash/internal/model"
)

// SettingsKey is the key under which timer settings are persisted.
const SettingsKey = "focusTimerSettings"

// Phase is the focus timer's state machine position.
type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)

// DefaultSettings returns the stock Pomodoro configuration.
func DefaultSettings() model.TimerSettings {
	return model.TimerSettings{WorkMinutes: 25, BreakMinutes: 5, Cycles: 4}
}

// Timer is the Pomodoro countdown state machine. The caller drives it with a
// 1-second interval: each Tick while running decrements the remaining time
// and advances work -> break -> next cycle; completing the final break
// returns the machine to idle.
type Timer struct {
	kv       kv.Store
	settings model.TimerSettings

	phase     Phase
	running   bool
	remaining int // seconds left in the current phase
	cycle     int // 1-based current cycle
}

// New loads persisted settings (absent or corrupt settings fall back to the
// defaults) and returns an idle timer.
func New(store kv.Store) *Timer {
	t := &Timer{
		kv:       store,
		settings: DefaultSettings(),
	}
	if raw, ok, err := store.Get(SettingsKey); err == nil && ok {
		var s model.TimerSettings
		if jerr := json.Unmarshal([]byte(raw), &s); jerr == nil && s.WorkMinutes > 0 && s.BreakMinutes > 0 && s.Cycles > 0 {
			t.settings = s
		} else if jerr != nil {
			appLog.Error("timer settings corrupt; using defaults", jerr, "key", SettingsKey)
		}
	}
	t.reset()
	return t
}

func (t *Timer) reset() {
	t.phase = PhaseIdle
	t.running = false
	t.remaining = t.settings.WorkMinutes * 60
	t.cycle = 1
}

// Settings returns the current configuration.
func (t *Timer) Settings() model.TimerSettings {
	return t.settings
}

// ApplySettings replaces the configuration and persists it. An idle timer
// picks up the new work duration immediately; a running one keeps its current
// phase until it elapses.
func (t *Timer) ApplySettings(s model.TimerSettings) {
	if s.WorkMinutes <= 0 || s.BreakMinutes <= 0 || s.Cycles <= 0 {
		return
	}
	t.settings = s
	if t.phase == PhaseIdle {
		t.remaining = s.WorkMinutes * 60
	}

	data, err := json.Marshal(s)
	if err != nil {
		appLog.Error("timer settings serialization failed", err)
		return
	}
	if err := t.kv.Set(SettingsKey, string(data)); err != nil {
		appLog.Error("timer settings persist failed", err, "key", SettingsKey)
	}
}

// Toggle starts a paused/idle timer or pauses a running one.
func (t *Timer) Toggle() {
	if t.phase == PhaseIdle {
		t.phase = PhaseWork
		t.remaining = t.settings.WorkMinutes * 60
	}
	t.running = !t.running
}

// Reset stops the timer and returns it to the idle state.
func (t *Timer) Reset() {
	t.reset()
}

// Tick advances the countdown by one second. It is a no-op unless running.
func (t *Timer) Tick() {
	if !t.running {
		return
	}

	t.remaining--
	if t.remaining > 0 {
		return
	}

	switch t.phase {
	case PhaseWork:
		t.phase = PhaseBreak
		t.remaining = t.settings.BreakMinutes * 60
	case PhaseBreak:
		if t.cycle < t.settings.Cycles {
			t.cycle++
			t.phase = PhaseWork
			t.remaining = t.settings.WorkMinutes * 60
		} else {
			// All cycles completed.
			t.reset()
		}
	}
}

// Phase returns the current state machine position.
func (t *Timer) Phase() Phase {
	return t.phase
}

// Running reports whether the countdown is active.
func (t *Timer) Running() bool {
	return t.running
}

// Remaining returns the seconds left in the current phase.
func (t *Timer) Remaining() int {
	return t.remaining
}

// Cycle returns the 1-based current cycle number.
func (t *Timer) Cycle() int {
	return t.cycle
}

// Progress returns the elapsed fraction of the current phase in [0, 1],
// used for the circular progress rendering.
func (t *Timer) Progress() float64 {
	total := t.settings.WorkMinutes * 60
	if t.phase == PhaseBreak {
		total = t.settings.BreakMinutes * 60
	}
	if total <= 0 {
		return 0
	}
	return 1 - float64(t.remaining)/float64(total)
}
