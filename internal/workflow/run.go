package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/notify"
	"github.com/rpggio/sciflow/internal/repository"
)

// Change is one status write made during a request.
type Change struct {
	Entity     Entity `json:"entity"`
	ID         string `json:"id"`
	Transition string `json:"transition,omitempty"`
	From       string `json:"from"`
	To         string `json:"to"`
	Forced     bool   `json:"forced,omitempty"`
}

// run carries the per-request state shared by every environment touched by
// one transition and its cascades.
type run struct {
	engine   *Engine
	tx       Tx
	actorID  string
	projects map[string]*project.Project
	roles    map[[2]string]bool
	messages []notify.Message
	changes  []Change
}

func (e *Engine) newRun(tx Tx, actorID string) *run {
	return &run{
		engine:   e,
		tx:       tx,
		actorID:  actorID,
		projects: map[string]*project.Project{},
		roles:    map[[2]string]bool{},
	}
}

// docRun is the environment of a document machine.
type docRun struct {
	*run
	doc  *document.Document
	proj *project.Project
}

func (d *docRun) runner() *run            { return d.run }
func (d *docRun) owner() *project.Project { return d.proj }

// projectRun is the environment of a project machine. trigger is the
// document whose transition cascaded into the project, if any.
type projectRun struct {
	*run
	proj    *project.Project
	trigger *document.Document
}

func (p *projectRun) runner() *run            { return p.run }
func (p *projectRun) owner() *project.Project { return p.proj }

type scoped interface {
	runner() *run
	owner() *project.Project
}

// project loads a project once per run so cascades share one copy.
func (r *run) project(ctx context.Context, id string) (*project.Project, error) {
	if p, ok := r.projects[id]; ok {
		return p, nil
	}
	p, err := r.tx.Projects().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}
	r.projects[id] = p
	return p, nil
}

func (r *run) document(ctx context.Context, id string) (*document.Document, error) {
	doc, err := r.tx.Documents().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return doc, nil
}

func (r *run) hasRole(ctx context.Context, userID, role string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	key := [2]string{userID, role}
	if ok, cached := r.roles[key]; cached {
		return ok, nil
	}
	ok, err := r.tx.Roles().IsMember(ctx, userID, role)
	if err != nil {
		return false, fmt.Errorf("checking role %s: %w", role, err)
	}
	r.roles[key] = ok
	return ok, nil
}

// tier is one of the default permission and audience groups.
type tier int

const (
	submitters tier = iota
	reviewers
	approvers
)

var tierRole = map[tier]string{
	reviewers: user.RoleReviewers,
	approvers: user.RoleApprovers,
}

// permits reports whether actorID belongs to any of tiers for proj.
// Admins pass every check; an anonymous actor passes none.
func (r *run) permits(ctx context.Context, actorID string, proj *project.Project, tiers ...tier) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	admin, err := r.hasRole(ctx, actorID, user.RoleAdmins)
	if err != nil || admin {
		return admin, err
	}
	for _, t := range tiers {
		if t == submitters {
			if proj.IsMember(actorID) {
				return true, nil
			}
			continue
		}
		ok, err := r.hasRole(ctx, actorID, tierRole[t])
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
