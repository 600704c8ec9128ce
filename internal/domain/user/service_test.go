package user_test

import (
	"context"
	"testing"

	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/repository"
	"github.com/rpggio/sciflow/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_CreateTrimsAndAssignsID(t *testing.T) {
	repo := &mocks.UserRepository{}
	svc := user.NewService(repo, nil)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(u *user.User) bool {
		return u.ID != "" && u.Username == "alice" && u.DisplayName == "Alice"
	})).Return(nil)

	u, err := svc.Create(ctx, user.CreateRequest{Username: "  alice ", DisplayName: "Alice"})
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	repo.AssertExpectations(t)
}

func TestService_CreateRejectsInput(t *testing.T) {
	repo := &mocks.UserRepository{}
	svc := user.NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, user.CreateRequest{Username: "  "})
	require.ErrorIs(t, err, user.ErrInvalidInput)

	repo.On("Create", ctx, mock.Anything).Return(repository.ErrDuplicate)
	_, err = svc.Create(ctx, user.CreateRequest{Username: "alice"})
	require.ErrorIs(t, err, user.ErrUsernameTaken)
}

func TestService_LookupFallsBackToUsername(t *testing.T) {
	repo := &mocks.UserRepository{}
	svc := user.NewService(repo, nil)
	ctx := context.Background()

	repo.On("Get", ctx, "alice").Return(nil, repository.ErrNotFound)
	repo.On("GetByUsername", ctx, "alice").Return(&user.User{ID: "u1", Username: "alice"}, nil)
	repo.On("Get", ctx, "bob").Return(nil, repository.ErrNotFound)
	repo.On("GetByUsername", ctx, "bob").Return(nil, repository.ErrNotFound)

	u, err := svc.Lookup(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)

	_, err = svc.Lookup(ctx, "bob")
	require.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestService_GrantRoleValidatesRole(t *testing.T) {
	repo := &mocks.UserRepository{}
	svc := user.NewService(repo, nil)
	ctx := context.Background()

	err := svc.GrantRole(ctx, "u1", "wizards")
	require.ErrorIs(t, err, user.ErrUnknownRole)

	repo.On("Get", ctx, "u1").Return(&user.User{ID: "u1"}, nil)
	repo.On("GrantRole", ctx, "u1", user.RoleReviewers).Return(nil)
	require.NoError(t, svc.GrantRole(ctx, "u1", user.RoleReviewers))
	repo.AssertExpectations(t)
}

func TestService_IsMemberEmptyActor(t *testing.T) {
	repo := &mocks.UserRepository{}
	svc := user.NewService(repo, nil)

	ok, err := svc.IsMember(context.Background(), "", user.RoleAdmins)
	require.NoError(t, err)
	require.False(t, ok)
	repo.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_APIKeyRoundTrip(t *testing.T) {
	repo := &mocks.UserRepository{}
	svc := user.NewService(repo, nil)
	ctx := context.Background()

	var stored string
	repo.On("Get", ctx, "u1").Return(&user.User{ID: "u1"}, nil)
	repo.On("CreateAPIKey", ctx, mock.Anything, "u1", "laptop").
		Run(func(args mock.Arguments) { stored = args.String(1) }).
		Return(nil)

	token, err := svc.IssueAPIKey(ctx, "u1", "laptop")
	require.NoError(t, err)
	require.Len(t, token, 64)
	require.Equal(t, user.HashToken(token), stored)
	require.NotEqual(t, token, stored)

	repo.On("ResolveAPIKey", ctx, stored).Return("u1", nil)
	repo.On("ResolveAPIKey", ctx, user.HashToken("bogus")).Return("", repository.ErrNotFound)

	actor, err := svc.ResolveActor(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "u1", actor)

	_, err = svc.ResolveActor(ctx, "bogus")
	require.ErrorIs(t, err, user.ErrInvalidToken)
	_, err = svc.ResolveActor(ctx, "")
	require.ErrorIs(t, err, user.ErrInvalidToken)
}
