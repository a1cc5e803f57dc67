package cronexpr

import (
	"errors"
	"fmt"
)

var (
	ErrFieldCount   = errors.New("expected 5 fields in cron expression")
	ErrInvalidValue = errors.New("invalid value")
	ErrInvalidRange = errors.New("invalid range")
	ErrInvalidStep  = errors.New("invalid step")
)

// FieldError reports the field and token that failed to compile.
type FieldError struct {
	Field string
	Token string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Field, e.Err, e.Token)
}

func (e *FieldError) Unwrap() error { return e.Err }
