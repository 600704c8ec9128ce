package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/repository"
)

// SlotRole maps each endorsement slot to the role allowed to set it.
var SlotRole = map[Slot]string{
	SlotMethodology:  user.RoleBiometricians,
	SlotHerbarium:    user.RoleHerbariumCurators,
	SlotAnimalEthics: user.RoleAnimalEthics,
	SlotDataManager:  user.RoleDataManagers,
}

// Service handles document content and endorsements. Status changes go
// through the workflow engine.
type Service struct {
	repo     Repository
	team     Team
	roles    RoleChecker
	activity activity.Repository
	logger   *slog.Logger
}

// NewService creates a new document service. activityRepo may be nil.
func NewService(repo Repository, team Team, roles RoleChecker, activityRepo activity.Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, team: team, roles: roles, activity: activityRepo, logger: logger}
}

// Get fetches a document by ID.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return doc, nil
}

// ListByProject returns every document owned by a project.
func (s *Service) ListByProject(ctx context.Context, projectID string) ([]Document, error) {
	return s.repo.ListByProject(ctx, projectID)
}

// UpdateRequest merges narrative fields into a document.
type UpdateRequest struct {
	DocumentID      string
	ActorID         string
	Fields          map[string]string
	ExpectedVersion *int64
}

// UpdateFields merges fields into the document. Empty values delete the key.
// Project plans re-evaluate their conditional endorsement slots on save.
func (s *Service) UpdateFields(ctx context.Context, req UpdateRequest) (*Document, error) {
	if len(req.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	doc, err := s.Get(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	admin, err := s.isAdmin(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}
	if !admin {
		member, err := s.onTeam(ctx, doc.ProjectID, req.ActorID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, ErrNotPermitted
		}
	}
	if !doc.Editable(admin) {
		return nil, fmt.Errorf("%w: status %s", ErrReadOnly, doc.Status)
	}

	expected := doc.Version
	if req.ExpectedVersion != nil {
		expected = *req.ExpectedVersion
	}

	if doc.Fields == nil {
		doc.Fields = map[string]string{}
	}
	for k, v := range req.Fields {
		if v == "" {
			delete(doc.Fields, k)
			continue
		}
		doc.Fields[k] = v
	}
	if doc.Kind == KindProjectPlan {
		doc.Specimens = Specimens{
			Plants:  flag(doc.Fields, FieldInvolvesPlants),
			Animals: flag(doc.Fields, FieldInvolvesAnimals),
		}
		doc.Endorsements.ApplyRequirements(doc.Specimens)
	}

	if err := s.save(ctx, doc, expected); err != nil {
		return nil, err
	}
	s.record(ctx, doc, req.ActorID, activity.TypeDocumentUpdated, fmt.Sprintf("updated %d field(s)", len(req.Fields)))
	return doc, nil
}

// EndorseRequest sets one endorsement slot on a project plan.
type EndorseRequest struct {
	DocumentID      string
	Slot            Slot
	Value           Endorsement
	ActorID         string
	ExpectedVersion *int64
}

// SetEndorsement records an endorser's decision on their slot. not_required is
// only ever set by the plan's own data. Like field edits, endorsements freeze
// once the plan is in approval unless an admin makes the change.
func (s *Service) SetEndorsement(ctx context.Context, req EndorseRequest) (*Document, error) {
	if !req.Slot.Valid() {
		return nil, fmt.Errorf("%w: unknown slot %q", ErrInvalidInput, req.Slot)
	}
	switch req.Value {
	case EndorsementRequired, EndorsementDenied, EndorsementGranted:
	default:
		return nil, fmt.Errorf("%w: endorsement value %q", ErrInvalidInput, req.Value)
	}

	doc, err := s.Get(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc.Kind != KindProjectPlan {
		return nil, ErrNotEndorsable
	}

	admin, err := s.isAdmin(ctx, req.ActorID)
	if err != nil {
		return nil, err
	}
	allowed := admin
	if !allowed && req.ActorID != "" && s.roles != nil {
		allowed, err = s.roles.IsMember(ctx, req.ActorID, SlotRole[req.Slot])
		if err != nil {
			return nil, fmt.Errorf("checking endorser role: %w", err)
		}
	}
	if !allowed {
		return nil, ErrNotEndorser
	}
	if !doc.Editable(admin) {
		return nil, fmt.Errorf("%w: status %s", ErrReadOnly, doc.Status)
	}

	expected := doc.Version
	if req.ExpectedVersion != nil {
		expected = *req.ExpectedVersion
	}
	previous := doc.Endorsements.Get(req.Slot)
	doc.Endorsements.Set(req.Slot, req.Value)

	if err := s.save(ctx, doc, expected); err != nil {
		return nil, err
	}
	s.logger.Info("endorsement set", "document_id", doc.ID, "slot", req.Slot, "from", previous, "to", req.Value, "actor_id", req.ActorID)
	s.record(ctx, doc, req.ActorID, activity.TypeEndorsementSet, fmt.Sprintf("%s %s -> %s", req.Slot, previous, req.Value))
	return doc, nil
}

func (s *Service) save(ctx context.Context, doc *Document, expected int64) error {
	doc.ModifiedAt = time.Now().UTC()
	version, err := s.repo.UpdateContent(ctx, doc, expected)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	doc.Version = version
	return nil
}

func (s *Service) record(ctx context.Context, doc *Document, actorID string, kind activity.ActivityType, summary string) {
	if s.activity == nil {
		return
	}
	err := activity.Record(ctx, s.activity, &activity.ActivityEntry{
		EntityType:   activity.EntityDocument,
		EntityID:     doc.ID,
		ProjectID:    doc.ProjectID,
		ActorID:      actorID,
		ActivityType: kind,
		Summary:      summary,
	})
	if err != nil {
		s.logger.Warn("failed to log document activity", "document_id", doc.ID, "error", err)
	}
}

func (s *Service) isAdmin(ctx context.Context, actorID string) (bool, error) {
	if actorID == "" || s.roles == nil {
		return false, nil
	}
	ok, err := s.roles.IsMember(ctx, actorID, user.RoleAdmins)
	if err != nil {
		return false, fmt.Errorf("checking admin role: %w", err)
	}
	return ok, nil
}

func (s *Service) onTeam(ctx context.Context, projectID, actorID string) (bool, error) {
	if actorID == "" || s.team == nil {
		return false, nil
	}
	members, err := s.team.ListMembers(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("listing project members: %w", err)
	}
	for _, m := range members {
		if m.UserID == actorID {
			return true, nil
		}
	}
	return false, nil
}

func flag(fields map[string]string, key string) bool {
	v, ok := fields[key]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// CopyFields copies the listed keys from src into dst, skipping empty values.
func CopyFields(dst, src map[string]string, keys ...string) {
	if len(keys) == 0 {
		maps.Copy(dst, src)
		return
	}
	for _, k := range keys {
		if v := src[k]; v != "" {
			dst[k] = v
		}
	}
}
