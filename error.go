package fdcanusb

import (
	"errors"
	"fmt"
	"time"
)

var ErrBusy = errors.New("a command is already in flight")

// FrameSizeError is returned when frame construction is handed more than
// MaxFrameLength bytes of payload. The payload is never truncated.
type FrameSizeError int

func (e FrameSizeError) Error() string {
	return fmt.Sprintf("frame data exceeds %d bytes: %d", MaxFrameLength, int(e))
}

// MalformedResponseError carries the raw line that arrived where a specific
// response was expected.
type MalformedResponseError struct {
	Expected string
	Raw      []byte
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("expected %s, received %q", e.Expected, e.Raw)
}

type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout (%s)", e.Op, e.Timeout)
}

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	if _, ok := err.(unrecoverableError); ok {
		return false
	}
	return true
}
