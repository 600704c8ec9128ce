package fsm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition indicates the transition is not declared from the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrGuardNotSatisfied indicates a domain precondition of the transition is false.
	ErrGuardNotSatisfied = errors.New("guard not satisfied")
	// ErrPermissionDenied indicates the actor may not invoke the transition.
	ErrPermissionDenied = errors.New("permission denied")
)

// GuardError names the guard that blocked a transition.
type GuardError struct {
	Transition string
	Guard      string
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("transition %q blocked by guard %q", e.Transition, e.Guard)
}

// Is reports whether target is ErrGuardNotSatisfied.
func (e *GuardError) Is(target error) bool {
	return target == ErrGuardNotSatisfied
}

// PermissionError names the actor refused by a transition's permission predicate.
type PermissionError struct {
	Transition string
	ActorID    string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("actor %q may not invoke %q", e.ActorID, e.Transition)
}

// Is reports whether target is ErrPermissionDenied.
func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}
