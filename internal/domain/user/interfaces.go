package user

import "context"

// Repository provides persistence for users, role membership and API keys.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	GrantRole(ctx context.Context, userID, role string) error
	RevokeRole(ctx context.Context, userID, role string) error
	IsMember(ctx context.Context, userID, role string) (bool, error)
	Members(ctx context.Context, role string) ([]string, error)
	RolesOf(ctx context.Context, userID string) ([]string, error)
	CreateAPIKey(ctx context.Context, keyHash, userID, description string) error
	ResolveAPIKey(ctx context.Context, keyHash string) (string, error)
}
