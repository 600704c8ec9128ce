package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/sciflow/internal/repository"
)

// Service handles user accounts and role membership.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// CreateRequest defines user creation inputs.
type CreateRequest struct {
	Username    string
	DisplayName string
	Email       string
}

// Create registers a new user.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrInvalidInput
	}

	u := &User{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Email:       strings.TrimSpace(req.Email),
		CreatedAt:   time.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// Lookup resolves a user by ID or, failing that, by username.
func (s *Service) Lookup(ctx context.Context, ref string) (*User, error) {
	u, err := s.Get(ctx, ref)
	if err == nil || !errors.Is(err, ErrUserNotFound) {
		return u, err
	}
	u, err = s.repo.GetByUsername(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// GrantRole adds the user to a role.
func (s *Service) GrantRole(ctx context.Context, userID, role string) error {
	if !slices.Contains(KnownRoles, role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if _, err := s.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.GrantRole(ctx, userID, role); err != nil {
		return fmt.Errorf("granting role: %w", err)
	}
	s.logger.Info("role granted", "user_id", userID, "role", role)
	return nil
}

// RevokeRole removes the user from a role.
func (s *Service) RevokeRole(ctx context.Context, userID, role string) error {
	if !slices.Contains(KnownRoles, role) {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if err := s.repo.RevokeRole(ctx, userID, role); err != nil {
		return fmt.Errorf("revoking role: %w", err)
	}
	s.logger.Info("role revoked", "user_id", userID, "role", role)
	return nil
}

// IsMember reports whether the user holds the role.
func (s *Service) IsMember(ctx context.Context, userID, role string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.repo.IsMember(ctx, userID, role)
}

// Roles lists the roles held by a user.
func (s *Service) Roles(ctx context.Context, userID string) ([]string, error) {
	return s.repo.RolesOf(ctx, userID)
}

// IssueAPIKey creates a bearer token for the user. Only its hash is stored.
func (s *Service) IssueAPIKey(ctx context.Context, userID, description string) (string, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return "", err
	}
	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := s.repo.CreateAPIKey(ctx, HashToken(token), userID, description); err != nil {
		return "", fmt.Errorf("creating api key: %w", err)
	}
	return token, nil
}

// ResolveActor returns the user ID owning a bearer token.
func (s *Service) ResolveActor(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", ErrInvalidToken
	}
	userID, err := s.repo.ResolveAPIKey(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("resolving api key: %w", err)
	}
	return userID, nil
}

// HashToken returns the stored form of an API key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
