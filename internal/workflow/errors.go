package workflow

import (
	"errors"
	"fmt"

	"github.com/rpggio/sciflow/internal/repository"
)

var (
	// ErrConflict indicates a concurrent write changed the entity. Re-read and retry.
	ErrConflict = repository.ErrConflict
	// ErrCascadeFailure indicates a dependent transition or successor document failed.
	ErrCascadeFailure = errors.New("cascade failure")
	// ErrUnknownEntity indicates the entity type is neither project nor document.
	ErrUnknownEntity = errors.New("unknown entity type")
	// ErrNotFound indicates the entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrUnknownStatus indicates a status outside the entity's declared states.
	ErrUnknownStatus = errors.New("unknown status")
)

// CascadeError reports a cascade that failed and was rolled back. The cause
// is kept for logs; the message stays opaque.
type CascadeError struct {
	Transition string
	Err        error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade failure during %q", e.Transition)
}

// Unwrap returns the underlying cause.
func (e *CascadeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrCascadeFailure.
func (e *CascadeError) Is(target error) bool { return target == ErrCascadeFailure }

// cascadeFailure wraps err unless it is a conflict or already a cascade failure.
func cascadeFailure(transition string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CascadeError
	if errors.As(err, &ce) || errors.Is(err, ErrConflict) {
		return err
	}
	return &CascadeError{Transition: transition, Err: err}
}
