// Package stats computes summary statistics and histograms over one
// owner's events. All calendar arithmetic happens in the configured local
// timezone, never on the UTC components of an instant.
package stats

import (
	"time"

	"conelog/internal/store"
)

// Summary holds aggregate counts and per-unit averages for a set of events.
type Summary struct {
	Total       int     `json:"total"`
	Today       int     `json:"today"`
	ThisWeek    int     `json:"thisWeek"`
	ThisMonth   int     `json:"thisMonth"`
	AvgPerDay   float64 `json:"avgPerDay"`
	AvgPerWeek  float64 `json:"avgPerWeek"`
	AvgPerMonth float64 `json:"avgPerMonth"`
	FirstDate   string  `json:"firstDate,omitempty"`
}

// Histogram buckets events by local hour of day, weekday name and calendar
// month. Buckets with zero events are omitted; consumers treat missing keys
// as zero.
type Histogram struct {
	HourOfDay map[int]int    `json:"hourOfDay"`
	Weekday   map[string]int `json:"weekday"`
	Month     map[int]int    `json:"month"`
}

// Compute aggregates events relative to now in the given location.
//
// The week starts Monday 00:00 local time. Averages divide the total by the
// inclusive number of elapsed days/weeks/months since the earliest event's
// local date; months count distinct calendar year-month pairs spanned, not
// a flat 30-day approximation.
func Compute(events []store.Event, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}

	var s Summary
	s.Total = len(events)
	if s.Total == 0 {
		return s
	}

	local := now.In(loc)
	today := local.Format("2006-01-02")

	// Monday of the current week: weekday index with Monday as 0 is
	// (int(Weekday)+6) mod 7 since time.Weekday starts at Sunday.
	daysSinceMonday := (int(local.Weekday()) + 6) % 7
	weekStart := local.AddDate(0, 0, -daysSinceMonday).Format("2006-01-02")
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).Format("2006-01-02")

	earliest := events[0].LocalDate
	for _, e := range events {
		if e.LocalDate < earliest {
			earliest = e.LocalDate
		}
		if e.LocalDate == today {
			s.Today++
		}
		if e.LocalDate >= weekStart && e.LocalDate <= today {
			s.ThisWeek++
		}
		if e.LocalDate >= monthStart && e.LocalDate <= today {
			s.ThisMonth++
		}
	}
	s.FirstDate = earliest

	days := elapsedDays(earliest, today)
	weeks := (days + 6) / 7
	months := elapsedMonths(earliest, today)

	s.AvgPerDay = float64(s.Total) / float64(max(1, days))
	s.AvgPerWeek = float64(s.Total) / float64(max(1, weeks))
	s.AvgPerMonth = float64(s.Total) / float64(max(1, months))
	return s
}

// Histograms buckets events by the local hour, weekday and month of their
// instants.
func Histograms(events []store.Event, loc *time.Location) Histogram {
	if loc == nil {
		loc = time.UTC
	}

	h := Histogram{
		HourOfDay: make(map[int]int),
		Weekday:   make(map[string]int),
		Month:     make(map[int]int),
	}
	for _, e := range events {
		local := e.Instant.In(loc)
		h.HourOfDay[local.Hour()]++
		h.Weekday[local.Weekday().String()]++
		h.Month[int(local.Month())]++
	}
	return h
}

// elapsedDays returns the inclusive day span between two local dates, so a
// single-day history counts as 1. The arithmetic runs on plain dates in
// UTC so DST transitions cannot shorten or stretch a day.
func elapsedDays(earliest, today string) int {
	from, err1 := time.Parse("2006-01-02", earliest)
	to, err2 := time.Parse("2006-01-02", today)
	if err1 != nil || err2 != nil || to.Before(from) {
		return 1
	}
	return int(to.Sub(from).Hours()/24) + 1
}

// elapsedMonths returns the inclusive count of distinct calendar
// year-month pairs spanned by the two local dates.
func elapsedMonths(earliest, today string) int {
	from, err1 := time.Parse("2006-01-02", earliest)
	to, err2 := time.Parse("2006-01-02", today)
	if err1 != nil || err2 != nil || to.Before(from) {
		return 1
	}
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
}
