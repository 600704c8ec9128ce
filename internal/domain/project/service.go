package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/repository"
)

// Service handles project details and team management. Status changes go
// through the workflow engine, never through this service.
type Service struct {
	repo   Repository
	roles  RoleChecker
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, roles RoleChecker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, roles: roles, logger: logger}
}

// CreateRequest defines project creation inputs.
type CreateRequest struct {
	Kind            Kind
	Year            int
	Title           string
	ActorID         string
	DataCustodianID string
	SiteCustodianID string
}

// Validate normalizes and checks creation inputs.
func (r *CreateRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	switch {
	case !r.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, r.Kind)
	case r.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case r.Year < 1900 || r.Year > 9999:
		return fmt.Errorf("%w: year %d out of range", ErrInvalidInput, r.Year)
	case r.ActorID == "":
		return fmt.Errorf("%w: creator is required", ErrInvalidInput)
	}
	if r.DataCustodianID == "" {
		r.DataCustodianID = r.ActorID
	}
	if r.SiteCustodianID == "" {
		r.SiteCustodianID = r.ActorID
	}
	return nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*Project, error) {
	proj, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}

// List returns project summaries.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	return s.repo.List(ctx, opts)
}

// DetailsUpdate holds editable project attributes. Empty fields are left unchanged.
type DetailsUpdate struct {
	Title           string
	DataCustodianID string
	SiteCustodianID string
	ExpectedVersion *int64
}

// UpdateDetails edits title and custodians.
func (s *Service) UpdateDetails(ctx context.Context, id, actorID string, upd DetailsUpdate) (*Project, error) {
	proj, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, proj, actorID); err != nil {
		return nil, err
	}

	expected := proj.Version
	if upd.ExpectedVersion != nil {
		expected = *upd.ExpectedVersion
	}
	if title := strings.TrimSpace(upd.Title); title != "" {
		proj.Title = title
	}
	if upd.DataCustodianID != "" {
		proj.DataCustodianID = upd.DataCustodianID
	}
	if upd.SiteCustodianID != "" {
		proj.SiteCustodianID = upd.SiteCustodianID
	}

	version, err := s.repo.UpdateDetails(ctx, proj, expected)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	proj.Version = version
	return proj, nil
}

// AddMemberRequest defines team membership inputs.
type AddMemberRequest struct {
	ProjectID      string
	UserID         string
	Role           MemberRole
	TimeAllocation float64
	ActorID        string
}

// AddMember adds a user to the team, appended after existing members.
func (s *Service) AddMember(ctx context.Context, req AddMemberRequest) (*Member, error) {
	if req.UserID == "" || !req.Role.Valid() {
		return nil, fmt.Errorf("%w: user and a known role are required", ErrInvalidInput)
	}
	if req.TimeAllocation < 0 || req.TimeAllocation > 1 {
		return nil, fmt.Errorf("%w: time allocation must be between 0 and 1", ErrInvalidInput)
	}

	proj, err := s.Get(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, proj, req.ActorID); err != nil {
		return nil, err
	}

	position := 0
	for _, m := range proj.Members {
		if m.Position >= position {
			position = m.Position + 1
		}
	}
	member := Member{
		ProjectID:      proj.ID,
		UserID:         req.UserID,
		Role:           req.Role,
		TimeAllocation: req.TimeAllocation,
		Position:       position,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: user is already a member", ErrInvalidInput)
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}

	s.logger.Info("project member added", "project_id", proj.ID, "user_id", req.UserID, "role", req.Role)
	return &member, nil
}

// RemoveMember takes a user off the team.
func (s *Service) RemoveMember(ctx context.Context, projectID, userID, actorID string) error {
	proj, err := s.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, proj, actorID); err != nil {
		return err
	}

	var target *Member
	supervisors := 0
	for i := range proj.Members {
		m := &proj.Members[i]
		if m.Role == RoleSupervisingScientist {
			supervisors++
		}
		if m.UserID == userID {
			target = m
		}
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if target.Role == RoleSupervisingScientist && supervisors == 1 {
		return ErrLastSupervisor
	}

	if err := s.repo.RemoveMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("removing member: %w", err)
	}
	s.logger.Info("project member removed", "project_id", projectID, "user_id", userID)
	return nil
}

// ListMembers returns the team in position order.
func (s *Service) ListMembers(ctx context.Context, projectID string) ([]Member, error) {
	members, err := s.repo.ListMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

func (s *Service) authorize(ctx context.Context, proj *Project, actorID string) error {
	if proj.IsMember(actorID) {
		return nil
	}
	if actorID != "" && s.roles != nil {
		ok, err := s.roles.IsMember(ctx, actorID, user.RoleAdmins)
		if err != nil {
			return fmt.Errorf("checking admin role: %w", err)
		}
		if ok {
			return nil
		}
	}
	return ErrNotPermitted
}
