package terminal

import "errors"

var (
	// ErrNotFound is returned when no session matches the given id.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidState is returned for operations that need a running session.
	ErrInvalidState = errors.New("session not running")

	// ErrResourceExhausted is returned when the session limit is reached.
	ErrResourceExhausted = errors.New("session limit reached")

	// ErrSpawnFailure wraps OS-level PTY or process creation failures.
	ErrSpawnFailure = errors.New("failed to spawn process")

	// ErrInvalidArgument is returned for malformed requests such as a zero terminal size.
	ErrInvalidArgument = errors.New("invalid argument")
)
