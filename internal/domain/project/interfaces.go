package project

import "context"

// Repository provides persistence for projects and their teams.
type Repository interface {
	Create(ctx context.Context, proj *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	GetByNumber(ctx context.Context, year, number int) (*Project, error)
	NextNumber(ctx context.Context, year int) (int, error)
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
	UpdateStatus(ctx context.Context, change StatusChange) (int64, error)
	UpdateDetails(ctx context.Context, proj *Project, expectedVersion int64) (int64, error)
	SetDocuments(ctx context.Context, id string, docs Documents) error
	AddMember(ctx context.Context, member Member) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	ListMembers(ctx context.Context, projectID string) ([]Member, error)
}

// RoleChecker answers whether a user holds a system role.
type RoleChecker interface {
	IsMember(ctx context.Context, userID, role string) (bool, error)
}
