package compiler

import (
	"errors"
	"fmt"
)

// Kinds of compile errors. Every *Error unwraps to one of these.
var (
	ErrCaptureIndex = errors.New("capture index out of range")
	ErrMarkIndex    = errors.New("mark index out of range")
	ErrUnsupported  = errors.New("unsupported node")
	ErrMalformed    = errors.New("malformed node")
	ErrTooLarge     = errors.New("program too large")
)

// Error is returned when a tree cannot be compiled. It is never produced
// while matching.
type Error struct {
	Kind   error
	Node   string // rendering of the offending node, if any
	Detail string
}

func (e *Error) Error() string {
	msg := "compile: " + e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Node != "" {
		msg += " (at " + e.Node + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func errorf(kind error, node fmt.Stringer, format string, args ...any) *Error {
	e := &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
	if node != nil {
		e.Node = node.String()
	}
	return e
}
