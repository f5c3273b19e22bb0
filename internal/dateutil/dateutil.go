package dateutil

import (
	"fmt"
	"iter"
	"time"
)

// StartOfWeek returns the first instant (00:00:00) of the 7-day window
// containing t, given the weekday the week starts on (0=Sunday ... 6=Saturday).
func StartOfWeek(t time.Time, weekStartsOn int) time.Time {
	day := int(t.Weekday())
	diff := day - weekStartsOn
	if diff < 0 {
		diff += 7
	}
	d := t.AddDate(0, 0, -diff)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfWeek returns the last instant of the 7-day window containing t.
func EndOfWeek(t time.Time, weekStartsOn int) time.Time {
	start := StartOfWeek(t, weekStartsOn)
	d := start.AddDate(0, 0, 6)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// Days yields one date per civil day from start to end inclusive. The
// sequence is finite and restartable; each step advances by one calendar day
// via AddDate, so month and year boundaries roll over correctly.
func Days(start, end time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// WeekDays returns the 7 dates of the week containing t as a slice, in order
// from the configured first weekday.
func WeekDays(t time.Time, weekStartsOn int) []time.Time {
	days := make([]time.Time, 0, 7)
	for d := range Days(StartOfWeek(t, weekStartsOn), EndOfWeek(t, weekStartsOn)) {
		days = append(days, d)
	}
	return days
}

// AddDays shifts t forward by n civil days, rolling over month and year
// boundaries correctly.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// SubDays shifts t backward by n civil days.
func SubDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, -n)
}

// AddHours shifts t forward by n hours.
func AddHours(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * time.Hour)
}

// IsSameDay reports civil-date equality ignoring time-of-day.
func IsSameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

var (
	shortDays   = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	longMonths  = [...]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
	shortMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
)

// Format renders t using one of the fixed display patterns:
//
//	PPP          January 2, 2024
//	MMM d        Jan 2
//	MMM d, yyyy  Jan 2, 2024
//	MMM yyyy     Jan 2024
//	EEE          Tue
//	d            2
//	h:mm a       9:05 AM
//	HH:mm        09:05
//
// Month and day names are fixed English; there is no locale negotiation.
// Unknown patterns fall back to the civil date.
func Format(t time.Time, pattern string) string {
	switch pattern {
	case "PPP":
		return fmt.Sprintf("%s %d, %d", longMonths[t.Month()-1], t.Day(), t.Year())
	case "MMM d":
		return fmt.Sprintf("%s %d", shortMonths[t.Month()-1], t.Day())
	case "MMM d, yyyy":
		return fmt.Sprintf("%s %d, %d", shortMonths[t.Month()-1], t.Day(), t.Year())
	case "MMM yyyy":
		return fmt.Sprintf("%s %d", shortMonths[t.Month()-1], t.Year())
	case "EEE":
		return shortDays[t.Weekday()]
	case "d":
		return fmt.Sprintf("%d", t.Day())
	case "h:mm a":
		hour := t.Hour()
		ampm := "AM"
		if hour >= 12 {
			ampm = "PM"
		}
		hour = hour % 12
		if hour == 0 {
			hour = 12
		}
		return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), ampm)
	case "HH:mm":
		return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	default:
		return fmt.Sprintf("%04d-%02d-%02d", t.Year(), t.Month(), t.Day())
	}
}
