package main

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Job names a unit of work the agent can run.
type Job string

const (
	JobFind  Job = "find"
	JobCount Job = "count"
)

// JobsFor returns the jobs due on today. Discovery runs once a month on
// dayToRunBoth, clamped into the month, followed by counting; every other
// day only counts.
func JobsFor(today time.Time, dayToRunBoth int) []Job {
	if today.Day() == clampDay(today, dayToRunBoth) {
		return []Job{JobFind, JobCount}
	}
	return []Job{JobCount}
}

func clampDay(t time.Time, day int) int {
	last := daysIn(t.Year(), t.Month())
	switch {
	case day < 1:
		return 1
	case day > last:
		return last
	default:
		return day
	}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseJobMode resolves the -job flag. "auto" defers to the schedule.
func ParseJobMode(mode string, today time.Time, dayToRunBoth int) ([]Job, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return JobsFor(today, dayToRunBoth), nil
	case "find":
		return []Job{JobFind}, nil
	case "count":
		return []Job{JobCount}, nil
	case "both":
		return []Job{JobFind, JobCount}, nil
	default:
		return nil, fmt.Errorf("unknown job %q (want auto, find, count or both)", mode)
	}
}

// parseClock parses HH:MM.
func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// nextRun returns the first instant strictly after now at hour:minute local
// to now.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return next
}

// runDaily calls fn once a day at the clock time at until ctx is done.
func runDaily(ctx context.Context, at string, now func() time.Time, fn func(ctx context.Context, when time.Time)) error {
	hour, minute, err := parseClock(at)
	if err != nil {
		return err
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := nextRun(now(), hour, minute)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			fn(ctx, now())
		}
	}
}
