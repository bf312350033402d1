package track

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a malformed field in a data row.
	ErrParse = errors.New("parse error")

	// ErrInvalidConfiguration marks a pipeline that cannot run, e.g. a
	// non-positive sample rate.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrGapUnresolvable marks a signal-loss gap whose endpoints are not a
	// whole number of sample ticks apart.
	ErrGapUnresolvable = errors.New("gap unresolvable")
)

// ParseError describes a field that could not be parsed. It matches ErrParse
// with errors.Is.
type ParseError struct {
	Row   int // 1-based input line, 0 if unknown
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: invalid %s %q: %v", e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
