package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"* * * * *",
		"0 3 * * *",
		"*/15 * * * *",
		"0 0-6/2 * * *",
		"30 4 1,15 * 5",
		"0 12 * * 1-5",
		"5,10-20/5 8 * 1,6 *",
		"0 0 29 2 *",
		// Day-of-month 31 never exists in February, but the restricted
		// day-of-week fires on February Mondays under the OR rule.
		"0 0 31 2 1",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			t.Parallel()

			sched, err := Parse(expr)
			require.NoError(t, err)
			assert.Equal(t, expr, sched.Expression())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
	}{
		{name: "too few fields", expr: "* * * *"},
		{name: "too many fields", expr: "* * * * * *"},
		{name: "empty expression", expr: ""},
		{name: "minute out of bounds", expr: "60 * * * *"},
		{name: "hour out of bounds", expr: "0 24 * * *"},
		{name: "month out of bounds", expr: "0 0 1 13 *"},
		{name: "day of week out of bounds", expr: "0 0 * * 7"},
		{name: "reversed range", expr: "30-10 * * * *"},
		{name: "zero step", expr: "*/0 * * * *"},
		{name: "step without range base", expr: "5/2 * * * *"},
		{name: "non numeric value", expr: "x * * * *"},
		{name: "trailing comma", expr: "1, * * * *"},
		{name: "unsatisfiable date", expr: "0 0 31 2 *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(tt.expr)
			assert.Error(t, err)
		})
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	// Tuesday 2024-03-05 10:30:00 UTC
	base := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		expr  string
		after time.Time
		want  time.Time
	}{
		{
			name:  "every minute",
			expr:  "* * * * *",
			after: base,
			want:  time.Date(2024, 3, 5, 10, 31, 0, 0, time.UTC),
		},
		{
			name:  "exactly at a fire time is excluded",
			expr:  "30 10 * * *",
			after: base,
			want:  time.Date(2024, 3, 6, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "daily at three",
			expr:  "0 3 * * *",
			after: base,
			want:  time.Date(2024, 3, 6, 3, 0, 0, 0, time.UTC),
		},
		{
			name:  "every quarter hour",
			expr:  "*/15 * * * *",
			after: base,
			want:  time.Date(2024, 3, 5, 10, 45, 0, 0, time.UTC),
		},
		{
			name:  "weekday only skips the weekend",
			expr:  "0 9 * * 1-5",
			after: time.Date(2024, 3, 8, 10, 0, 0, 0, time.UTC), // Friday after nine
			want:  time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), // Monday
		},
		{
			name:  "first of month",
			expr:  "0 0 1 * *",
			after: base,
			want:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "impossible dom still fires via restricted dow",
			expr:  "0 0 31 2 1", // February Mondays
			after: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "dom and dow are OR when both restricted",
			expr:  "0 0 15 * 0", // 15th or any Sunday
			after: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), // Sunday before the 15th
		},
		{
			name:  "leap day",
			expr:  "0 0 29 2 *",
			after: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
			want:  time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sched, err := Parse(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sched.Next(tt.after))
		})
	}
}

func TestNextInTimezone(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	sched, err := Parse("0 3 * * *")
	require.NoError(t, err)

	after := time.Date(2024, 3, 5, 1, 0, 0, 0, loc)
	next := sched.Next(after)

	assert.Equal(t, 3, next.Hour())
	assert.Equal(t, loc.String(), next.Location().String())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Validate("0 3 * * *"))
	assert.Error(t, Validate("not a schedule"))
}
