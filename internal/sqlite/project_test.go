package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestProjectRepository_CreateGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	proj := insertProject(t, db, "p1", 1, project.StatusNew)
	require.NoError(t, repo.AddMember(ctx, project.Member{
		ProjectID: "p1", UserID: proj.OwnerID, Role: project.RoleSupervisingScientist, TimeAllocation: 0.5,
	}))

	retrieved, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, proj.Title, retrieved.Title)
	require.Equal(t, project.StatusNew, retrieved.Status)
	require.Equal(t, int64(1), retrieved.Version)
	require.Len(t, retrieved.Members, 1)
	require.Equal(t, 0.5, retrieved.Members[0].TimeAllocation)

	byNumber, err := repo.GetByNumber(ctx, 2026, 1)
	require.NoError(t, err)
	require.Equal(t, "p1", byNumber.ID)

	_, err = repo.Get(ctx, "nonexistent")
	require.Equal(t, repository.ErrNotFound, err)
}

func TestProjectRepository_NumberUniquePerYear(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()

	next, err := repo.NextNumber(ctx, 2026)
	require.NoError(t, err)
	require.Equal(t, 1, next)

	insertProject(t, db, "p1", 1, project.StatusNew)
	next, err = repo.NextNumber(ctx, 2026)
	require.NoError(t, err)
	require.Equal(t, 2, next)

	dup := &project.Project{ID: "p2", Kind: project.KindScience, Year: 2026, Number: 1, Title: "Dup", Status: project.StatusNew, OwnerID: "owner-p1"}
	require.ErrorIs(t, repo.Create(ctx, dup), repository.ErrDuplicate)

	next, err = repo.NextNumber(ctx, 2027)
	require.NoError(t, err)
	require.Equal(t, 1, next)
}

func TestProjectRepository_UpdateStatusCompareAndSwap(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertProject(t, db, "p1", 1, project.StatusActive)

	version, err := repo.UpdateStatus(ctx, project.StatusChange{ID: "p1", From: project.StatusActive, To: project.StatusUpdating, Version: 1})
	require.NoError(t, err)
	require.Equal(t, int64(2), version)

	// Stale status or version loses.
	_, err = repo.UpdateStatus(ctx, project.StatusChange{ID: "p1", From: project.StatusActive, To: project.StatusSuspended, Version: 2})
	require.ErrorIs(t, err, repository.ErrConflict)
	_, err = repo.UpdateStatus(ctx, project.StatusChange{ID: "p1", From: project.StatusUpdating, To: project.StatusActive, Version: 1})
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.UpdateStatus(ctx, project.StatusChange{ID: "missing", From: project.StatusActive, To: project.StatusUpdating, Version: 1})
	require.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, project.StatusUpdating, got.Status)
}

func TestProjectRepository_DetailsAndDocumentCache(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	proj := insertProject(t, db, "p1", 1, project.StatusNew)

	proj.Title = "Renamed"
	version, err := repo.UpdateDetails(ctx, proj, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)
	_, err = repo.UpdateDetails(ctx, proj, 1)
	require.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, repo.SetDocuments(ctx, "p1", project.Documents{ConceptPlanID: "cp1"}))
	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)
	require.Equal(t, "cp1", got.Documents.ConceptPlanID)
	require.Equal(t, int64(2), got.Version, "document cache leaves the version alone")
}

func TestProjectRepository_ListFilters(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertProject(t, db, "p1", 1, project.StatusActive)
	insertProject(t, db, "p2", 2, project.StatusClosing)
	insertProject(t, db, "p3", 3, project.StatusCompleted)

	all, err := repo.List(ctx, project.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "p3", all[0].ID)
	require.Equal(t, "SP 2026-003", all[0].Code)

	open, err := repo.List(ctx, project.ListOptions{Statuses: []project.Status{project.StatusActive, project.StatusClosing}})
	require.NoError(t, err)
	require.Len(t, open, 2)

	page, err := repo.List(ctx, project.ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "p2", page[0].ID)
}

func TestProjectRepository_Members(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProjectRepository(db)
	ctx := context.Background()
	insertProject(t, db, "p1", 1, project.StatusNew)
	insertUser(t, db, "u2")

	require.NoError(t, repo.AddMember(ctx, project.Member{ProjectID: "p1", UserID: "u2", Role: project.RoleTechnicalOfficer, Position: 1}))
	require.ErrorIs(t, repo.AddMember(ctx, project.Member{ProjectID: "p1", UserID: "u2", Role: project.RoleGroup}), repository.ErrDuplicate)
	require.ErrorIs(t, repo.AddMember(ctx, project.Member{ProjectID: "p1", UserID: "ghost", Role: project.RoleGroup}), repository.ErrForeignKeyViolation)

	members, err := repo.ListMembers(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, members, 1)

	require.NoError(t, repo.RemoveMember(ctx, "p1", "u2"))
	require.ErrorIs(t, repo.RemoveMember(ctx, "p1", "u2"), repository.ErrNotFound)
}
