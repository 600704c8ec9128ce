package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/workflow"
)

// repos binds every repository to one querier.
type repos struct {
	q querier
}

func (r repos) Projects() project.Repository     { return &ProjectRepository{q: r.q} }
func (r repos) Documents() document.Repository   { return &DocumentRepository{q: r.q} }
func (r repos) Reports() annualreport.Repository { return &AnnualReportRepository{q: r.q} }
func (r repos) Activity() activity.Repository    { return &ActivityRepository{q: r.q} }
func (r repos) Roles() workflow.RoleOracle       { return &UserRepository{q: r.q} }

// Store is the transactional persistence gateway used by the workflow engine.
// Its own repository accessors run outside any transaction.
type Store struct {
	repos
	db *DB
}

// NewStore creates a store over db.
func NewStore(db *DB) *Store {
	return &Store{repos: repos{q: db.DB}, db: db}
}

// Users returns the user repository.
func (s *Store) Users() *UserRepository { return &UserRepository{q: s.db.DB} }

// Outbox returns the notification outbox.
func (s *Store) Outbox() *NotificationRepository { return &NotificationRepository{q: s.db.DB} }

// WithinTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx workflow.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(repos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ workflow.Store = (*Store)(nil)
