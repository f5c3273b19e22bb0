package analytics

import (
	"math"
	"sort"
	"time"

	"timedash/internal/dateutil"
	"timedash/internal/model"
)

// View selects the aggregation window.
type View string

const (
	ViewDaily  View = "daily"
	ViewWeekly View = "weekly"
)

// Summary is the aggregated time-usage report for one view.
type Summary struct {
	View       View                   `json:"view"`
	Buckets    []model.CategoryBucket `json:"buckets"`
	TotalHours float64                `json:"total_hours"`
}

// HoursByCategory aggregates event durations into per-category hour totals
// for the selected view: daily keeps events on now's civil day, weekly keeps
// events within now's week (per the given week start). An empty category
// filter keeps everything. Hours are rounded to one decimal; buckets come
// back in fixed category order so the chart is stable across renders.
func HoursByCategory(events []model.Event, view View, now time.Time, weekStartsOn int, category model.Category) Summary {
	weekStart := dateutil.StartOfWeek(now, weekStartsOn)
	weekEnd := dateutil.EndOfWeek(now, weekStartsOn)

	totals := make(map[model.Category]float64)
	for _, ev := range events {
		if category != "" && ev.Category != category {
			continue
		}
		switch view {
		case ViewDaily:
			if !dateutil.IsSameDay(ev.Start, now) {
				continue
			}
		default:
			if ev.Start.Before(weekStart) || ev.Start.After(weekEnd) {
				continue
			}
		}
		totals[ev.Category] += ev.Duration().Hours()
	}

	buckets := make([]model.CategoryBucket, 0, len(totals))
	for cat, hours := range totals {
		buckets = append(buckets, model.CategoryBucket{
			Category: cat,
			Hours:    round1(hours),
			Color:    cat.Color(),
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return categoryOrder(buckets[i].Category) < categoryOrder(buckets[j].Category)
	})

	var total float64
	for _, b := range buckets {
		total += b.Hours
	}

	return Summary{
		View:       view,
		Buckets:    buckets,
		TotalHours: round1(total),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func categoryOrder(c model.Category) int {
	switch c {
	case model.CategoryWork:
		return 0
	case model.CategoryPersonal:
		return 1
	case model.CategoryStudy:
		return 2
	case model.CategoryHealth:
		return 3
	default:
		return 4
	}
}
