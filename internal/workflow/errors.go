package workflow

import (
	"errors"
	"fmt"
)

// Rejection kinds. Callers branch on these with errors.Is; the concrete
// TransitionError carries the offending edge for user-facing messages.
var (
	ErrInvalidTransition           = errors.New("invalid transition")
	ErrUnauthorizedRole            = errors.New("role not authorized for transition")
	ErrTerminalState               = errors.New("cycle is dispatched")
	ErrConflictingActiveAssignment = errors.New("cycle already has an active assignment")
	ErrTransient                   = errors.New("transient storage error")
)

// TransitionError is a rejected status change: the edge that was requested,
// who requested it, and which rule it violated.
type TransitionError struct {
	Kind  error
	From  CycleStatus
	To    CycleStatus
	Actor Role
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case ErrUnauthorizedRole:
		return fmt.Sprintf("%v: %s may not move cycle from %s to %s", e.Kind, e.Actor, e.From, e.To)
	case ErrTerminalState:
		return fmt.Sprintf("%v: no transitions leave %s", e.Kind, e.From)
	default:
		return fmt.Sprintf("%v: %s -> %s", e.Kind, e.From, e.To)
	}
}

func (e *TransitionError) Unwrap() error { return e.Kind }
