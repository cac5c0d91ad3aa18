package chat

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every caller-facing failure wraps exactly one of them.
var (
	ErrInvalidInput  = errors.New("invalid_input")
	ErrNotRegistered = errors.New("not_registered")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("not_found")
	ErrConflict      = errors.New("conflict")
)

// OpError is a typed operation error with a stable Op + Kind contract for callers/tests.
// Msg is the human-readable reason sent back to the client.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

func opErr(op string, kind error, format string, args ...any) error {
	return OpError{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func notRegistered(op string) error {
	return OpError{Op: op, Kind: ErrNotRegistered, Msg: "not registered"}
}

// Reason extracts the client-facing text of err.
func Reason(err error) string {
	var oe OpError
	if errors.As(err, &oe) && oe.Msg != "" {
		return oe.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsConflict reports whether err represents ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsNotRegistered reports whether err represents ErrNotRegistered.
func IsNotRegistered(err error) bool { return errors.Is(err, ErrNotRegistered) }
