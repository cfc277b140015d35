package model

import "fmt"

// UserError reports a mistake the operator can fix: bad configuration, a
// bad message catalog, an invalid template field or time format. It is
// reported once and never retried.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *UserError) Unwrap() error { return e.Err }

// Userf builds a UserError with a formatted message.
func Userf(format string, args ...any) *UserError {
	return &UserError{Msg: fmt.Sprintf(format, args...)}
}

// ConnectionError reports an I/O failure against a destination, e.g. a
// syslog connect or write failure. Console sinks never produce it.
type ConnectionError struct {
	Msg string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// StreamError reports a transient fault on the live notification stream.
// The stream controller converts it into a reconnect; it never terminates
// the process unless subscription creation itself fails.
type StreamError struct {
	Msg string
	Err error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *StreamError) Unwrap() error { return e.Err }
