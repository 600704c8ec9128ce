package workflow

import (
	"context"
	"fmt"
	"slices"

	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/notify"
)

// documentTier maps a document's target status to the group that acts next.
func documentTier(target document.Status) (tier, bool) {
	switch target {
	case document.StatusNew, document.StatusApproved:
		return submitters, true
	case document.StatusInReview:
		return reviewers, true
	case document.StatusInApproval:
		return approvers, true
	}
	return 0, false
}

// projectNotifies reports whether entering target notifies the project team.
func projectNotifies(target project.Status) bool {
	switch target {
	case project.StatusUpdating, project.StatusFinalUpdate, project.StatusClosing:
		return true
	}
	return false
}

func (r *run) members(ctx context.Context, proj *project.Project, t tier) ([]string, error) {
	if t == submitters {
		return proj.Submitters(), nil
	}
	ids, err := r.tx.Roles().Members(ctx, tierRole[t])
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", tierRole[t], err)
	}
	return ids, nil
}

func (r *run) resolveDocumentAudience(ctx context.Context, proj *project.Project, target document.Status) ([]string, error) {
	t, ok := documentTier(target)
	if !ok {
		return nil, nil
	}
	ids, err := r.members(ctx, proj, t)
	if err != nil {
		return nil, err
	}
	return excludeActor(ids, r.actorID), nil
}

func (r *run) resolveProjectAudience(proj *project.Project, target project.Status) []string {
	if !projectNotifies(target) {
		return nil
	}
	return excludeActor(proj.Submitters(), r.actorID)
}

// documentAudience is resolveDocumentAudience for use mid-transition, where a
// lookup failure must not block the transition.
func (r *run) documentAudience(ctx context.Context, proj *project.Project, target document.Status) []string {
	ids, err := r.resolveDocumentAudience(ctx, proj, target)
	if err != nil {
		r.engine.logger.Warn("failed to resolve notification audience",
			"project_id", proj.ID,
			"target", target,
			"error", err,
		)
	}
	return ids
}

// excludeActor dedupes ids in order and drops the instigator.
func excludeActor(ids []string, actorID string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == actorID || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (r *run) recordMessage(msg notify.Message) {
	msg.InstigatorID = r.actorID
	r.messages = append(r.messages, msg)
}

func documentMessage(proj *project.Project, doc *document.Document, action string, target document.Status, recipients []string) notify.Message {
	object := notify.Label(string(doc.Kind)) + " of " + proj.Code()
	if doc.Year > 0 {
		object = fmt.Sprintf("%s %d of %s", notify.Label(string(doc.Kind)), doc.Year, proj.Code())
	}
	return notify.Message{
		EntityType:   string(EntityDocument),
		EntityID:     doc.ID,
		ProjectID:    proj.ID,
		Action:       action,
		ActionLabel:  notify.Label(action),
		TargetStatus: string(target),
		StatusLabel:  notify.Label(string(target)),
		Object:       object,
		Recipients:   recipients,
	}
}

func projectMessage(proj *project.Project, action string, target project.Status, recipients []string) notify.Message {
	label := notify.Label(action)
	if action == "" {
		label = "Status Restored"
	}
	return notify.Message{
		EntityType:   string(EntityProject),
		EntityID:     proj.ID,
		ProjectID:    proj.ID,
		Action:       action,
		ActionLabel:  label,
		TargetStatus: string(target),
		StatusLabel:  notify.Label(string(target)),
		Object:       proj.Code() + " " + proj.Title,
		Recipients:   recipients,
	}
}
