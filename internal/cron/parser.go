package cron

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a 5-field cron expression.
func Parse(expression string) (*Schedule, error) {
	fields := strings.Fields(expression)
	if len(fields) != 5 {
		return nil, fmt.Errorf("invalid cron expression %q: expected 5 fields, got %d", expression, len(fields))
	}

	specs := []struct {
		name string
		min  int
		max  int
		dest *fieldSet
	}{
		{name: "minute", min: 0, max: 59},
		{name: "hour", min: 0, max: 23},
		{name: "day-of-month", min: 1, max: 31},
		{name: "month", min: 1, max: 12},
		{name: "day-of-week", min: 0, max: 6},
	}

	sched := &Schedule{expression: expression}
	dests := []*fieldSet{&sched.minutes, &sched.hours, &sched.daysOfMonth, &sched.months, &sched.daysOfWeek}

	for i, spec := range specs {
		set, err := parseField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("invalid %s field %q: %w", spec.name, fields[i], err)
		}
		*dests[i] = set
	}

	// A restricted day-of-week can satisfy the schedule on its own under
	// the dom/dow OR rule, so the day-of-month check only applies when
	// day-of-week is a wildcard.
	if sched.daysOfWeek.count() == 7 {
		if err := checkSatisfiable(sched.daysOfMonth, sched.months); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

// parseField parses one cron field into its permitted-value set.
func parseField(field string, min, max int) (fieldSet, error) {
	var set fieldSet

	for _, part := range strings.Split(field, ",") {
		if part == "" {
			return 0, fmt.Errorf("empty list element")
		}

		partSet, err := parsePart(part, min, max)
		if err != nil {
			return 0, err
		}
		set |= partSet
	}

	return set, nil
}

// parsePart parses a single comma-separated element: "*", "*/N", "M",
// "M-N", or "M-N/S".
func parsePart(part string, min, max int) (fieldSet, error) {
	rangePart := part
	step := 1

	if slash := strings.IndexByte(part, '/'); slash >= 0 {
		rangePart = part[:slash]
		var err error
		step, err = strconv.Atoi(part[slash+1:])
		if err != nil {
			return 0, fmt.Errorf("invalid step value: %w", err)
		}
		if step <= 0 {
			return 0, fmt.Errorf("step must be greater than 0, got %d", step)
		}
	}

	lo, hi := min, max
	switch {
	case rangePart == "*":
		// Full range.
	case strings.ContainsRune(rangePart, '-'):
		bounds := strings.SplitN(rangePart, "-", 2)
		var err error
		if lo, err = strconv.Atoi(bounds[0]); err != nil {
			return 0, fmt.Errorf("invalid range start: %w", err)
		}
		if hi, err = strconv.Atoi(bounds[1]); err != nil {
			return 0, fmt.Errorf("invalid range end: %w", err)
		}
		if lo > hi {
			return 0, fmt.Errorf("range start %d greater than end %d", lo, hi)
		}
	default:
		v, err := strconv.Atoi(rangePart)
		if err != nil {
			return 0, fmt.Errorf("invalid value: %w", err)
		}
		if step != 1 {
			// "5/2" is not standard syntax; steps need "*" or a range.
			return 0, fmt.Errorf("step requires a range or wildcard base")
		}
		lo, hi = v, v
	}

	if lo < min || hi > max {
		return 0, fmt.Errorf("value out of bounds [%d, %d]", min, max)
	}

	var set fieldSet
	for v := lo; v <= hi; v += step {
		set |= 1 << uint(v)
	}
	return set, nil
}
