package dashboard

import (
	"errors"
	"fmt"
)

// ErrNoConnection is returned when no store connection has been configured.
var ErrNoConnection = errors.New("store connection is not configured")

// ValidationError reports operator input that cannot be used.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// FetchError wraps a failed store query.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
