package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func quietLogger(level LogLevel, dir string) *Logger {
	l := New(level, dir, "test.log", 100)
	l.SetConsoleOutput(false)
	return l
}

func entries(l *Logger) []LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]LogEntry(nil), l.buffer...)
}

func TestLoggerLevels(t *testing.T) {
	t.Parallel()

	logger := quietLogger(INFO, t.TempDir())
	defer logger.Close()

	logger.Error("error message")
	logger.Warn("warn message")
	logger.Info("info message")
	logger.Debug("debug message") // Should not appear
	logger.Trace("trace message") // Should not appear

	buffer := entries(logger)
	if len(buffer) != 3 {
		t.Fatalf("expected 3 log entries, got %d", len(buffer))
	}
	if buffer[0].Level != ERROR || buffer[0].Message != "error message" {
		t.Errorf("first entry should be ERROR, got %v", buffer[0])
	}
	if buffer[1].Level != WARN || buffer[1].Message != "warn message" {
		t.Errorf("second entry should be WARN, got %v", buffer[1])
	}
	if buffer[2].Level != INFO || buffer[2].Message != "info message" {
		t.Errorf("third entry should be INFO, got %v", buffer[2])
	}
}

func TestLoggerFieldsKeepOrder(t *testing.T) {
	t.Parallel()

	logger := quietLogger(INFO, t.TempDir())
	defer logger.Close()

	logger.Info("test message", "ip", "10.0.0.5", "outcome", "committed", "dangling")

	buffer := entries(logger)
	if len(buffer) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(buffer))
	}
	fields := buffer[0].Fields
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields (odd trailing key dropped), got %d", len(fields))
	}
	if fields[0].Key != "ip" || fields[1].Key != "outcome" {
		t.Errorf("fields out of order: %+v", fields)
	}

	line := formatLogEntry(buffer[0])
	if !strings.HasSuffix(line, "test message ip=10.0.0.5 outcome=committed") {
		t.Errorf("unexpected formatted line: %q", line)
	}
}

func TestLoggerSetLevel(t *testing.T) {
	t.Parallel()

	logger := quietLogger(ERROR, t.TempDir())
	defer logger.Close()

	logger.Info("hidden")
	logger.SetLevel(DEBUG)
	logger.Debug("visible")

	if got := logger.GetLevel(); got != DEBUG {
		t.Errorf("expected DEBUG, got %v", got)
	}
	buffer := entries(logger)
	if len(buffer) != 1 || buffer[0].Message != "visible" {
		t.Errorf("unexpected buffer: %+v", buffer)
	}
}

func TestLoggerCircularBuffer(t *testing.T) {
	t.Parallel()

	logger := New(INFO, "", "test.log", 5)
	logger.SetConsoleOutput(false)

	for i := 0; i < 10; i++ {
		logger.Info("message", "n", i)
	}

	buffer := entries(logger)
	if len(buffer) != 5 {
		t.Fatalf("expected buffer capped at 5, got %d", len(buffer))
	}
	if buffer[0].Fields[0].Value != 5 {
		t.Errorf("oldest retained entry should be n=5, got %v", buffer[0].Fields[0].Value)
	}
}

func TestLoggerFileOutput(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	logger := quietLogger(INFO, tmpDir)

	logger.Info("written to disk", "ip", "10.0.0.9")
	if err := logger.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, "test.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] written to disk ip=10.0.0.9") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestLoggerNoDirSkipsFile(t *testing.T) {
	t.Parallel()

	logger := New(INFO, "", "", 10)
	logger.SetConsoleOutput(false)
	logger.Info("buffer only")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if len(entries(logger)) != 1 {
		t.Fatal("entry should still be buffered")
	}
}

func TestLoggerConsoleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(INFO, "", "", 10)
	logger.SetConsoleWriter(&buf)

	logger.Warn("to console")
	if !strings.Contains(buf.String(), "[WARN] to console") {
		t.Errorf("console output missing entry: %q", buf.String())
	}
}

func TestLoggerRateLimiting(t *testing.T) {
	t.Parallel()

	logger := quietLogger(INFO, "")
	for i := 0; i < 5; i++ {
		logger.WarnRateLimited("snmp-timeout", time.Hour, "repeated warning")
	}

	if got := len(entries(logger)); got != 1 {
		t.Errorf("expected 1 rate-limited entry, got %d", got)
	}
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"ERROR", ERROR},
		{"warn", WARN},
		{"warning", WARN},
		{"info", INFO},
		{" Debug ", DEBUG},
		{"TRACE", TRACE},
		{"bogus", INFO},
		{"", INFO},
	}

	for _, tc := range tests {
		if got := LevelFromString(tc.input); got != tc.expected {
			t.Errorf("LevelFromString(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestLevelToString(t *testing.T) {
	t.Parallel()

	if LevelToString(DEBUG) != "DEBUG" {
		t.Errorf("expected DEBUG, got %s", LevelToString(DEBUG))
	}
}

func TestLoggerRotation(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	logger := quietLogger(INFO, tmpDir)
	logger.SetRotationPolicy(RotationPolicy{Enabled: true, MaxSizeMB: 1, MaxFiles: 5})

	// ~1.1MB of entries forces at least one rotation
	payload := strings.Repeat("x", 1024)
	for i := 0; i < 1100; i++ {
		logger.Info(payload)
	}
	logger.Close()

	rotated, err := filepath.Glob(filepath.Join(tmpDir, "test_*.log"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(rotated) == 0 {
		t.Error("expected at least one rotated file")
	}
}

func TestLoggerConcurrency(t *testing.T) {
	t.Parallel()

	logger := quietLogger(INFO, t.TempDir())
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				logger.Info("concurrent", "worker", n)
			}
		}(i)
	}
	wg.Wait()

	if got := len(entries(logger)); got != 100 {
		t.Errorf("expected 100 entries, got %d", got)
	}
}

func TestCopy(t *testing.T) {
	t.Parallel()

	logger := quietLogger(INFO, "")
	logger.Info("one")
	logger.Info("two")

	var buf bytes.Buffer
	if err := logger.Copy(&buf); err != nil {
		t.Fatalf("Copy() failed: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Errorf("expected 2 lines, got %q", buf.String())
	}
}

func TestLoggerTraceLevel(t *testing.T) {
	t.Parallel()

	logger := quietLogger(TRACE, "")
	logger.Trace("host scanned", "ip", "10.0.0.5")

	got := entries(logger)
	if len(got) != 1 || got[0].Level != TRACE {
		t.Fatalf("expected one TRACE entry, got %+v", got)
	}
}

func TestCopyKeepsOnlyRecent(t *testing.T) {
	t.Parallel()

	logger := New(INFO, "", "", 3)
	logger.SetConsoleOutput(false)
	for _, msg := range []string{"a", "b", "c", "d"} {
		logger.Info(msg)
	}

	var buf bytes.Buffer
	if err := logger.Copy(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || !strings.HasSuffix(lines[0], "[INFO] b") || !strings.HasSuffix(lines[2], "[INFO] d") {
		t.Errorf("unexpected copy: %q", buf.String())
	}
}
