package config

import (
	"errors"
	"fmt"
)

var (
	ErrExpectedKeyValue  = errors.New("expected `key = value`")
	ErrKeyOutsideSection = errors.New("key outside of [job:<id>] section")
	ErrDuplicateKey      = errors.New("duplicate")
	ErrUnknownKey        = errors.New("unknown key")
	ErrEmptyValue        = errors.New("cannot be empty")
	ErrFanoutConflict    = errors.New("conflicting fanout keys")
	ErrFanoutNotInteger  = errors.New("fanout must be an integer")
	ErrFanoutTooLarge    = errors.New("fanout too large")
	ErrMissingSchedule   = errors.New("missing schedule")
	ErrMissingCommand    = errors.New("missing command")
	ErrInvalidSchedule   = errors.New("invalid schedule")
	ErrInvalidCommand    = errors.New("invalid command")
	ErrDuplicateJobID    = errors.New("duplicate job id")
	ErrInvalidUTF8       = errors.New("invalid utf-8")
)

// ParseError is a configuration error tied to a line of the job file and,
// when known, to the job section it belongs to.
type ParseError struct {
	Line  int
	JobID string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.JobID != "":
		return fmt.Sprintf("line %d: job '%s': %v", e.Line, e.JobID, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case e.JobID != "":
		return fmt.Sprintf("job '%s': %v", e.JobID, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *ParseError) Unwrap() error { return e.Err }
