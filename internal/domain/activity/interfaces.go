package activity

import (
	"context"
	"errors"
)

// ErrInvalidInput indicates a malformed activity entry.
var ErrInvalidInput = errors.New("invalid activity entry")

// Repository provides persistence operations for activity entries.
type Repository interface {
	Log(ctx context.Context, entry *ActivityEntry) error
	List(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error)
}
