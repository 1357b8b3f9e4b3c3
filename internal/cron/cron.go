// Package cron evaluates standard 5-field cron expressions
// (minute hour day-of-month month day-of-week).
//
// Supported field syntax: "*", single values, ranges ("1-5"), lists
// ("1,3,5"), and steps ("*/15", "0-30/10"). Day-of-month and day-of-week
// follow the standard cron rule: when both are restricted, a time matches
// if either does.
package cron

import (
	"fmt"
	"time"
)

// Schedule is a parsed cron expression. The zero value is not usable;
// obtain one from Parse.
type Schedule struct {
	minutes     fieldSet // 0-59
	hours       fieldSet // 0-23
	daysOfMonth fieldSet // 1-31
	months      fieldSet // 1-12
	daysOfWeek  fieldSet // 0-6, 0=Sunday

	expression string
}

// fieldSet is a bitmask of permitted values for one cron field.
type fieldSet uint64

func (f fieldSet) contains(v int) bool {
	return f&(1<<uint(v)) != 0
}

func (f fieldSet) count() int {
	n := 0
	for v := 0; v < 64; v++ {
		if f.contains(v) {
			n++
		}
	}
	return n
}

// Expression returns the original expression string.
func (s *Schedule) Expression() string {
	return s.expression
}

// Next returns the first time strictly after the given instant that the
// schedule matches, evaluated in after's location. Callers pick the
// timezone by converting the argument first (time.Time.In).
//
// The scan is minute-resolution and bounded to five years; a valid
// schedule always fires well within that window.
func (s *Schedule) Next(after time.Time) time.Time {
	// Strictly after: truncate to the minute boundary, then advance.
	t := after.Truncate(time.Minute).Add(time.Minute)

	limit := after.AddDate(5, 0, 0)
	for t.Before(limit) {
		if s.matches(t) {
			return t
		}
		// Skip whole days/hours that can never match to keep sparse
		// schedules cheap.
		if !s.months.contains(int(t.Month())) || !s.matchesDay(t) {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
			continue
		}
		if !s.hours.contains(t.Hour()) {
			// Advance to the top of the next wall-clock hour. Truncate is
			// not used here because it operates in UTC and misaligns in
			// zones with fractional-hour offsets.
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(time.Hour)
			continue
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}
}

// matches reports whether the given time satisfies the schedule.
func (s *Schedule) matches(t time.Time) bool {
	return s.minutes.contains(t.Minute()) &&
		s.hours.contains(t.Hour()) &&
		s.months.contains(int(t.Month())) &&
		s.matchesDay(t)
}

// matchesDay applies the day-of-month vs day-of-week rule: OR when both
// fields are restricted, otherwise whichever field is restricted decides.
func (s *Schedule) matchesDay(t time.Time) bool {
	domRestricted := s.daysOfMonth.count() < 31
	dowRestricted := s.daysOfWeek.count() < 7

	domMatch := s.daysOfMonth.contains(t.Day())
	dowMatch := s.daysOfWeek.contains(int(t.Weekday()))

	switch {
	case domRestricted && dowRestricted:
		return domMatch || dowMatch
	case domRestricted:
		return domMatch
	case dowRestricted:
		return dowMatch
	default:
		return true
	}
}

// Validate parses the expression and discards the result. It exists for
// callers that only need a syntax check.
func Validate(expression string) error {
	_, err := Parse(expression)
	return err
}

// maxDayOfMonth returns the largest possible day number for a month,
// allowing 29 for February so leap-year schedules parse.
func maxDayOfMonth(month int) int {
	switch month {
	case 2:
		return 29
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

// checkSatisfiable rejects schedules that can never fire, such as
// "0 0 31 2 *".
func checkSatisfiable(daysOfMonth, months fieldSet) error {
	for month := 1; month <= 12; month++ {
		if !months.contains(month) {
			continue
		}
		for day := 1; day <= maxDayOfMonth(month); day++ {
			if daysOfMonth.contains(day) {
				return nil
			}
		}
	}
	return fmt.Errorf("unsatisfiable schedule: no requested day exists in any requested month")
}
