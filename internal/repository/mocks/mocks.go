package mocks

import (
	"context"

	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	args := m.Called(ctx, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) GetByNumber(ctx context.Context, year, number int) (*project.Project, error) {
	args := m.Called(ctx, year, number)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) NextNumber(ctx context.Context, year int) (int, error) {
	args := m.Called(ctx, year)
	return args.Int(0), args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]project.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) UpdateStatus(ctx context.Context, change project.StatusChange) (int64, error) {
	args := m.Called(ctx, change)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProjectRepository) UpdateDetails(ctx context.Context, proj *project.Project, expectedVersion int64) (int64, error) {
	args := m.Called(ctx, proj, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ProjectRepository) SetDocuments(ctx context.Context, id string, docs project.Documents) error {
	args := m.Called(ctx, id, docs)
	return args.Error(0)
}

func (m *ProjectRepository) AddMember(ctx context.Context, member project.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]project.Member, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]project.Member); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// DocumentRepository is a mock for document.Repository.
type DocumentRepository struct {
	mock.Mock
}

func (m *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *DocumentRepository) Get(ctx context.Context, id string) (*document.Document, error) {
	args := m.Called(ctx, id)
	if doc, ok := args.Get(0).(*document.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) FindCurrent(ctx context.Context, projectID string, kind document.Kind, year int) (*document.Document, error) {
	args := m.Called(ctx, projectID, kind, year)
	if doc, ok := args.Get(0).(*document.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) FindPrevious(ctx context.Context, projectID string, kind document.Kind, beforeYear int) (*document.Document, error) {
	args := m.Called(ctx, projectID, kind, beforeYear)
	if doc, ok := args.Get(0).(*document.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) ListByProject(ctx context.Context, projectID string) ([]document.Document, error) {
	args := m.Called(ctx, projectID)
	if list, ok := args.Get(0).([]document.Document); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DocumentRepository) UpdateStatus(ctx context.Context, change document.StatusChange) (int64, error) {
	args := m.Called(ctx, change)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DocumentRepository) UpdateContent(ctx context.Context, doc *document.Document, expectedVersion int64) (int64, error) {
	args := m.Called(ctx, doc, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AnnualReportRepository is a mock for annualreport.Repository.
type AnnualReportRepository struct {
	mock.Mock
}

func (m *AnnualReportRepository) Create(ctx context.Context, r *annualreport.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *AnnualReportRepository) GetByYear(ctx context.Context, year int) (*annualreport.Report, error) {
	args := m.Called(ctx, year)
	if r, ok := args.Get(0).(*annualreport.Report); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AnnualReportRepository) Latest(ctx context.Context) (*annualreport.Report, error) {
	args := m.Called(ctx)
	if r, ok := args.Get(0).(*annualreport.Report); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AnnualReportRepository) List(ctx context.Context) ([]annualreport.Report, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]annualreport.Report); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) List(ctx context.Context) ([]user.User, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GrantRole(ctx context.Context, userID, role string) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *UserRepository) RevokeRole(ctx context.Context, userID, role string) error {
	args := m.Called(ctx, userID, role)
	return args.Error(0)
}

func (m *UserRepository) IsMember(ctx context.Context, userID, role string) (bool, error) {
	args := m.Called(ctx, userID, role)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepository) Members(ctx context.Context, role string) ([]string, error) {
	args := m.Called(ctx, role)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) RolesOf(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) CreateAPIKey(ctx context.Context, keyHash, userID, description string) error {
	args := m.Called(ctx, keyHash, userID, description)
	return args.Error(0)
}

func (m *UserRepository) ResolveAPIKey(ctx context.Context, keyHash string) (string, error) {
	args := m.Called(ctx, keyHash)
	return args.String(0), args.Error(1)
}

// RoleChecker is a mock for the role membership checks of the domain services.
type RoleChecker struct {
	mock.Mock
}

func (m *RoleChecker) IsMember(ctx context.Context, userID, role string) (bool, error) {
	args := m.Called(ctx, userID, role)
	return args.Bool(0), args.Error(1)
}

// Transitioner is a mock for annualreport.Transitioner.
type Transitioner struct {
	mock.Mock
}

func (m *Transitioner) TransitionProject(ctx context.Context, projectID, transition, actorID string) (project.Status, error) {
	args := m.Called(ctx, projectID, transition, actorID)
	return args.Get(0).(project.Status), args.Error(1)
}
