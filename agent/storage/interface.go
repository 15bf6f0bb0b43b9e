package storage

import (
	"errors"
)

var (
	// ErrDuplicate is returned when the partition already holds a record for the address
	ErrDuplicate = errors.New("device already recorded")
	// ErrInvalidSerial is returned when serial is empty or invalid
	ErrInvalidSerial = errors.New("invalid or empty serial")
	// ErrHeaderMismatch is returned when an existing file header is not the expected one
	ErrHeaderMismatch = errors.New("unexpected file header")
)

// Logger interface for storage operations
type Logger interface {
	Error(msg string, context ...interface{})
	Warn(msg string, context ...interface{})
	Info(msg string, context ...interface{})
	Debug(msg string, context ...interface{})
}

type nopLogger struct{}

func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

func orNop(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}
