package storage

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RunLog is the human-readable audit trail of one job run. Milestones go
// to both the monthly log (appended across runs) and today's log (truncated
// when the run starts); per-host details go to today's log only.
type RunLog struct {
	mu      sync.Mutex
	monthly *os.File
	today   *os.File
	mw      *bufio.Writer
	tw      *bufio.Writer
	now     func() time.Time
}

// OpenRunLog opens both logs. An empty monthlyPath disables the monthly log.
func OpenRunLog(monthlyPath, todayPath string) (*RunLog, error) {
	l := &RunLog{now: time.Now}

	if err := os.MkdirAll(filepath.Dir(todayPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	today, err := os.Create(todayPath)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	l.today = today
	l.tw = bufio.NewWriter(today)

	if monthlyPath != "" {
		monthly, err := os.OpenFile(monthlyPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			today.Close()
			return nil, fmt.Errorf("open monthly log: %w", err)
		}
		l.monthly = monthly
		l.mw = bufio.NewWriter(monthly)
	}
	return l, nil
}

// Start writes the run banner.
func (l *RunLog) Start(job string) {
	l.Milestone("***** %s - starting %s", l.now().Format("03:04 PM - 02 January 2006"), job)
}

// Finish writes the closing banner with the elapsed run time.
func (l *RunLog) Finish(job string, elapsed time.Duration) {
	l.Milestone("%s - %s finished in %s", l.now().Format("03:04 PM - 02 Jan"), job, elapsed.Round(time.Second))
}

// Milestone writes a line to both logs.
func (l *RunLog) Milestone(format string, args ...interface{}) {
	line := ensureNewline(fmt.Sprintf(format, args...))
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mw != nil {
		l.mw.WriteString(line)
	}
	if l.tw != nil {
		l.tw.WriteString(line)
	}
}

// Timed writes a milestone prefixed with the wall-clock time.
func (l *RunLog) Timed(format string, args ...interface{}) {
	l.Milestone("%s %s", l.now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

// Detail writes a line to today's log only.
func (l *RunLog) Detail(format string, args ...interface{}) {
	line := ensureNewline(fmt.Sprintf(format, args...))
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tw != nil {
		l.tw.WriteString(line)
	}
}

// Flush pushes buffered lines to disk.
func (l *RunLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flush()
}

func (l *RunLog) flush() error {
	var errs []error
	if l.mw != nil {
		errs = append(errs, l.mw.Flush())
	}
	if l.tw != nil {
		errs = append(errs, l.tw.Flush())
	}
	return errors.Join(errs...)
}

// Close flushes and closes both files. It is safe to call more than once.
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	errs := []error{l.flush()}
	if l.monthly != nil {
		errs = append(errs, l.monthly.Close())
		l.monthly, l.mw = nil, nil
	}
	if l.today != nil {
		errs = append(errs, l.today.Close())
		l.today, l.tw = nil, nil
	}
	return errors.Join(errs...)
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
