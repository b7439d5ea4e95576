// Package reactive implements the reactive runtime: stores and notifiers
// (global and session scoped), derived computations with caching, debouncing
// and overlap coalescing, query/mutation definitions, and the registry of
// active subscriptions shared by all connections.
package reactive

import "errors"

var (
	// ErrUnknownAction is returned when a subscribe or mutation frame names
	// an action that the connection's action map does not contain.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidInput is returned (wrapped) when a validator rejects params.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoSession is returned when a session-scoped store is accessed from
	// a context that carries no session.
	ErrNoSession = errors.New("no session in context")

	// ErrNotQuery and ErrNotMutation are returned when a frame's type does
	// not match the kind of the named action.
	ErrNotQuery    = errors.New("action is not a query")
	ErrNotMutation = errors.New("action is not a mutation")
)
