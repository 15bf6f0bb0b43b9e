package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 6, 0, 0, 0, time.Local)
}

func TestJobsFor(t *testing.T) {
	t.Parallel()

	both := []Job{JobFind, JobCount}
	count := []Job{JobCount}

	tests := []struct {
		name  string
		today time.Time
		dayTo int
		want  []Job
	}{
		{"run day", day(2024, 5, 1), 1, both},
		{"other day", day(2024, 5, 2), 1, count},
		{"mid month", day(2024, 5, 15), 15, both},
		{"clamped to end of february", day(2023, 2, 28), 31, both},
		{"leap year end", day(2024, 2, 29), 30, both},
		{"not yet end of month", day(2024, 2, 28), 30, count},
		{"zero clamps to first", day(2024, 5, 1), 0, both},
		{"negative clamps to first", day(2024, 5, 1), -4, both},
		{"thirty day month", day(2024, 4, 30), 31, both},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, JobsFor(tc.today, tc.dayTo))
		})
	}
}

func TestParseJobMode(t *testing.T) {
	t.Parallel()

	jobs, err := ParseJobMode("auto", day(2024, 5, 2), 2)
	require.NoError(t, err)
	require.Equal(t, []Job{JobFind, JobCount}, jobs)

	jobs, err = ParseJobMode("", day(2024, 5, 3), 2)
	require.NoError(t, err)
	require.Equal(t, []Job{JobCount}, jobs)

	jobs, err = ParseJobMode("FIND", day(2024, 5, 3), 2)
	require.NoError(t, err)
	require.Equal(t, []Job{JobFind}, jobs)

	jobs, err = ParseJobMode("both", day(2024, 5, 3), 2)
	require.NoError(t, err)
	require.Equal(t, []Job{JobFind, JobCount}, jobs)

	_, err = ParseJobMode("reboot", day(2024, 5, 3), 2)
	require.ErrorContains(t, err, "reboot")
}

func TestParseClock(t *testing.T) {
	t.Parallel()

	h, m, err := parseClock("06:30")
	require.NoError(t, err)
	require.Equal(t, 6, h)
	require.Equal(t, 30, m)

	for _, bad := range []string{"", "6", "25:00", "06:61", "noon"} {
		_, _, err := parseClock(bad)
		require.Error(t, err, bad)
	}
}

func TestNextRun(t *testing.T) {
	t.Parallel()

	before := time.Date(2024, 5, 31, 5, 0, 0, 0, time.Local)
	require.Equal(t, time.Date(2024, 5, 31, 6, 0, 0, 0, time.Local), nextRun(before, 6, 0))

	exactly := time.Date(2024, 5, 31, 6, 0, 0, 0, time.Local)
	require.Equal(t, time.Date(2024, 6, 1, 6, 0, 0, 0, time.Local), nextRun(exactly, 6, 0))

	after := time.Date(2024, 12, 31, 23, 0, 0, 0, time.Local)
	require.Equal(t, time.Date(2025, 1, 1, 6, 0, 0, 0, time.Local), nextRun(after, 6, 0))
}

func TestRunDaily_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := runDaily(ctx, "06:00", time.Now, func(context.Context, time.Time) { called = true })
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestRunDaily_RejectsBadClock(t *testing.T) {
	t.Parallel()

	err := runDaily(context.Background(), "later", time.Now, func(context.Context, time.Time) {})
	require.Error(t, err)
}
