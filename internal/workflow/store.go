package workflow

import (
	"context"

	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
)

// Store is the persistence gateway. Every engine operation runs inside one
// transaction; returning an error from fn rolls back all of its writes.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes repositories bound to a single transaction.
type Tx interface {
	Projects() project.Repository
	Documents() document.Repository
	Reports() annualreport.Repository
	Activity() activity.Repository
	Roles() RoleOracle
}

// RoleOracle answers role membership questions.
type RoleOracle interface {
	IsMember(ctx context.Context, userID, role string) (bool, error)
	Members(ctx context.Context, role string) ([]string, error)
}
