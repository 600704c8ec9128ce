package annualreport

import (
	"context"

	"github.com/rpggio/sciflow/internal/domain/project"
)

// Repository provides persistence for annual reports.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByYear(ctx context.Context, year int) (*Report, error)
	Latest(ctx context.Context) (*Report, error)
	List(ctx context.Context) ([]Report, error)
}

// Projects lists candidate projects for the fan-out.
type Projects interface {
	List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error)
}

// Transitioner runs one project transition on behalf of an actor.
type Transitioner interface {
	TransitionProject(ctx context.Context, projectID, transition, actorID string) (project.Status, error)
}

// RoleChecker answers whether a user holds a system role.
type RoleChecker interface {
	IsMember(ctx context.Context, userID, role string) (bool, error)
}

// Locker guards the fan-out against a second concurrent run.
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}
