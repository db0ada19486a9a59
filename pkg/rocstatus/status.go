// Package rocstatus defines the closed status-code taxonomy every pipeline
// operation reports through, and the error type that carries it.
package rocstatus

import (
	"errors"
	"fmt"
)

// Code is a closed taxonomy of outcomes for a read/write along the pipeline.
// Never add a Kind outside this set — the pipeline stages switch on it
// exhaustively.
type Code int

const (
	// OK: success.
	OK Code = iota
	// Part: partial frame produced (e.g. a gap was zero-filled).
	Part
	// Drain: upstream is empty, no data available right now.
	Drain
	// NoMem: an allocation failed; fatal for the current read.
	NoMem
	// NoRoute: unknown SSRC or payload type; the packet was dropped.
	NoRoute
	// Finish: the session ended cleanly (watchdog, clean shutdown).
	Finish
	// Abort: a fatal protocol violation; the session is dead.
	Abort
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Part:
		return "part"
	case Drain:
		return "drain"
	case NoMem:
		return "no_mem"
	case NoRoute:
		return "no_route"
	case Finish:
		return "finish"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("status(%d)", int(c))
	}
}

// Error wraps a Code with an optional underlying cause. Two Errors compare
// equal under errors.Is when their Codes match, regardless of cause, so
// callers can test for a status class without caring about the detail.
type Error struct {
	Code  Code
	Cause error
}

func New(code Code) *Error {
	return &Error{Code: code}
}

func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Code.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// Is reports whether err carries the given status Code, anywhere in its
// wrap chain.
func Is(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}
