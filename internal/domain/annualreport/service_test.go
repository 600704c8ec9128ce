package annualreport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/repository"
	"github.com/rpggio/sciflow/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeLock struct {
	held     bool
	unlocked bool
}

func (l *fakeLock) TryLock() (bool, error) { return !l.held, nil }
func (l *fakeLock) Unlock() error          { l.unlocked = true; return nil }

func approver() *mocks.RoleChecker {
	roles := &mocks.RoleChecker{}
	roles.On("IsMember", mock.Anything, "dir", user.RoleAdmins).Return(false, nil)
	roles.On("IsMember", mock.Anything, "dir", user.RoleApprovers).Return(true, nil)
	return roles
}

func TestAnnualReportService_FanOut(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.AnnualReportRepository{}
	repo.On("Latest", ctx).Return(nil, repository.ErrNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(r *annualreport.Report) bool { return r.Year == 2026 })).Return(nil)

	projects := &mocks.ProjectRepository{}
	projects.On("List", ctx, project.ListOptions{
		Statuses: []project.Status{project.StatusActive, project.StatusClosing},
	}).Return([]project.Summary{
		{ID: "sci", Kind: project.KindScience, Status: project.StatusActive},
		{ID: "ext", Kind: project.KindCollaboration, Status: project.StatusActive},
		{ID: "stp", Kind: project.KindStudent, Status: project.StatusActive},
		{ID: "old", Kind: project.KindCoreFunction, Status: project.StatusClosing},
	}, nil)

	engine := &mocks.Transitioner{}
	engine.On("TransitionProject", mock.Anything, "sci", annualreport.TransitionRequestUpdate, "dir").Return(project.StatusUpdating, nil)
	engine.On("TransitionProject", mock.Anything, "stp", annualreport.TransitionRequestUpdate, "dir").Return(project.Status(""), errors.New("cascade failure"))
	engine.On("TransitionProject", mock.Anything, "old", annualreport.TransitionRequestFinalUpdate, "dir").Return(project.StatusFinalUpdate, nil)

	lock := &fakeLock{}
	svc := annualreport.NewService(repo, projects, engine, approver(), nil, annualreport.WithLocker(lock), annualreport.WithWorkers(2))
	result, err := svc.Create(ctx, annualreport.CreateRequest{Year: 2026, ActorID: "dir"})
	require.NoError(t, err)
	require.True(t, lock.unlocked)

	require.Len(t, result.Outcomes, 3)
	require.Equal(t, 1, result.Failed())
	byID := map[string]annualreport.Outcome{}
	for _, o := range result.Outcomes {
		byID[o.ProjectID] = o
	}
	require.Equal(t, "updating", byID["sci"].Status)
	require.Equal(t, "final_update", byID["old"].Status)
	require.NotEmpty(t, byID["stp"].Error)
	require.NotContains(t, byID, "ext")
	engine.AssertExpectations(t)
}

func TestAnnualReportService_OnePerYear(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AnnualReportRepository{}
	repo.On("Latest", ctx).Return(&annualreport.Report{ID: "r26", Year: 2026}, nil)
	repo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)

	svc := annualreport.NewService(repo, &mocks.ProjectRepository{}, &mocks.Transitioner{}, approver(), nil)
	_, err := svc.Create(ctx, annualreport.CreateRequest{Year: 2026, ActorID: "dir"})
	require.ErrorIs(t, err, annualreport.ErrReportExists)
}

func TestAnnualReportService_Rejections(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AnnualReportRepository{}

	roles := &mocks.RoleChecker{}
	roles.On("IsMember", ctx, "alice", mock.Anything).Return(false, nil)

	svc := annualreport.NewService(repo, nil, nil, roles, nil, annualreport.WithLocker(&fakeLock{held: true}))

	_, err := svc.Create(ctx, annualreport.CreateRequest{Year: 12, ActorID: "alice"})
	require.ErrorIs(t, err, annualreport.ErrInvalidInput)

	_, err = svc.Create(ctx, annualreport.CreateRequest{Year: 2026, ActorID: "alice"})
	require.ErrorIs(t, err, annualreport.ErrNotPermitted)

	busy := annualreport.NewService(repo, nil, nil, approver(), nil, annualreport.WithLocker(&fakeLock{held: true}))
	_, err = busy.Create(ctx, annualreport.CreateRequest{Year: 2026, ActorID: "dir"})
	require.ErrorIs(t, err, annualreport.ErrBusy)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAnnualReportService_RejectsBackdatedYear(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.AnnualReportRepository{}
	repo.On("Latest", ctx).Return(&annualreport.Report{ID: "r26", Year: 2026}, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(r *annualreport.Report) bool { return r.Year == 2027 })).Return(nil)

	projects := &mocks.ProjectRepository{}
	projects.On("List", ctx, mock.Anything).Return([]project.Summary{}, nil)

	lock := &fakeLock{}
	svc := annualreport.NewService(repo, projects, &mocks.Transitioner{}, approver(), nil, annualreport.WithLocker(lock))

	_, err := svc.Create(ctx, annualreport.CreateRequest{Year: 2024, ActorID: "dir"})
	require.ErrorIs(t, err, annualreport.ErrYearBackdated)
	require.True(t, lock.unlocked)
	projects.AssertNotCalled(t, "List", mock.Anything, mock.Anything)

	result, err := svc.Create(ctx, annualreport.CreateRequest{Year: 2027, ActorID: "dir"})
	require.NoError(t, err)
	require.Equal(t, 2027, result.Report.Year)
	repo.AssertNumberOfCalls(t, "Create", 1)
}
