package manager

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("manager closed")

// invalidStateError rejects a command issued in the wrong state, e.g. load
// while loading. It is never queued for retry.
type invalidStateError struct {
	op    string
	state string
}

func (e invalidStateError) Error() string {
	return fmt.Sprintf("cannot %s: %s", e.op, e.state)
}

// IsInvalidState reports whether err rejected a command for the current state.
func IsInvalidState(err error) bool {
	var e invalidStateError
	return errors.As(err, &e)
}

// modelNotLoadedError maps to 503 with the "Model not loaded" payload.
type modelNotLoadedError struct{}

func (modelNotLoadedError) Error() string { return "Model not loaded" }

// IsModelNotLoaded reports whether err indicates no live model handle.
func IsModelNotLoaded(err error) bool {
	var e modelNotLoadedError
	return errors.As(err, &e)
}

// tooBusyError signals admission timeout for 429 mapping.
type tooBusyError struct{ limit int }

func (e tooBusyError) Error() string {
	return fmt.Sprintf("too busy: %d generations in progress", e.limit)
}

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing inference runtime so the HTTP
// layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// engineError wraps a load or generation failure from the engine.
type engineError struct {
	op  string
	err error
}

func (e engineError) Error() string { return e.op + ": " + e.err.Error() }
func (e engineError) Unwrap() error { return e.err }

// IsEngineError reports whether err came from the inference engine.
func IsEngineError(err error) bool {
	var e engineError
	return errors.As(err, &e)
}

// invalidRequestError rejects a malformed generation request (400).
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// IsInvalidRequest reports whether err rejected the request payload.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}
