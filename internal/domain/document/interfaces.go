package document

import (
	"context"

	"github.com/rpggio/sciflow/internal/domain/project"
)

// Repository provides persistence for documents.
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	FindCurrent(ctx context.Context, projectID string, kind Kind, year int) (*Document, error)
	FindPrevious(ctx context.Context, projectID string, kind Kind, beforeYear int) (*Document, error)
	ListByProject(ctx context.Context, projectID string) ([]Document, error)
	UpdateStatus(ctx context.Context, change StatusChange) (int64, error)
	UpdateContent(ctx context.Context, doc *Document, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, id string) error
}

// RoleChecker answers whether a user holds a system role.
type RoleChecker interface {
	IsMember(ctx context.Context, userID, role string) (bool, error)
}

// Team lists the members of a project.
type Team interface {
	ListMembers(ctx context.Context, projectID string) ([]project.Member, error)
}
