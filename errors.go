package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a store after Close.
	ErrClosed = errors.New("kvstore: store is closed")
	// ErrNilStore is returned when an adapter is built around a nil store.
	ErrNilStore = errors.New("kvstore: nil store")
)

// Error is the failure reported by every layer of the module.
// Op names the operation ("get", "set", ...), Msg describes what went wrong
// and Err, if set, is the underlying cause.
// Absence of a value is never reported as an Error.
type Error struct {
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("kvstore: %s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("kvstore: %s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("kvstore: %s: %v", e.Msg, e.Err)
	default:
		return "kvstore: " + e.Msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error for op wrapping err.
func Errorf(op string, err error, format string, args ...any) *Error {
	return &Error{Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsClosed reports whether err was caused by using a closed store.
func IsClosed(err error) bool { return errors.Is(err, ErrClosed) }
