// Package streamerr defines the error kinds and wrapper type shared across
// the engine (spec.md §7). It is modeled on tvarr's
// pipeline/core.StageError/ConfigurationError pair: a small sentinel-backed
// Kind plus a wrapper that preserves Unwrap for errors.Is/errors.As.
package streamerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error independent of where it occurred.
type Kind string

const (
	KindConfig    Kind = "config"
	KindNotFound  Kind = "not_found"
	KindPort      Kind = "port"
	KindState     Kind = "state"
	KindSetup     Kind = "setup"
	KindRuntimeOp Kind = "runtime_op"
	KindTransport Kind = "transport"
	KindInternal  Kind = "internal"
)

// Sentinel errors callers can match with errors.Is regardless of the
// wrapping Op/Kind context.
var (
	ErrPortNotFound             = errors.New("port not found")
	ErrPortAlreadyConnected     = errors.New("port already connected")
	ErrTypeMismatch             = errors.New("link message type mismatch")
	ErrProcessorNotFound        = errors.New("processor not found")
	ErrLinkNotFound             = errors.New("link not found")
	ErrCycleWouldViolate        = errors.New("cycle would violate constraint")
	ErrProcessorHasLiveLinks    = errors.New("processor still has live links")
	ErrOperationAlreadyPending  = errors.New("operation already pending for this entity")
	ErrInvalidStateTransition   = errors.New("invalid state transition")
	ErrPipelineClockAlreadySet  = errors.New("pipeline clock already selected")
)

// Error wraps a cause with the Kind and the operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New creates an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause so errors.Is/errors.As see through
// the Kind/Op wrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target shares this error's Kind when target is itself
// a *Error with no wrapped cause set (used in tests to assert on Kind alone).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Err == nil
}

// KindOf returns the Kind associated with err, or KindInternal if err was
// not produced via streamerr.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
