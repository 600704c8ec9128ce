// Package workflow runs the project and document lifecycles: their state
// graphs, the cascades linking them, and notification audiences.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/fsm"
	"github.com/rpggio/sciflow/internal/notify"
)

// Entity names a kind of workflow entity.
type Entity string

const (
	EntityProject  Entity = "project"
	EntityDocument Entity = "document"
)

// ParseEntity validates an entity type name.
func ParseEntity(s string) (Entity, error) {
	switch Entity(s) {
	case EntityProject, EntityDocument:
		return Entity(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEntity, s)
}

// Engine is the only writer of project and document status.
type Engine struct {
	store     Store
	notifier  notify.Notifier
	logger    *slog.Logger
	documents map[document.Kind]*fsm.Machine[document.Status, *docRun]
	projects  map[project.Kind]*fsm.Machine[project.Status, *projectRun]
}

// New builds the engine and its state machines. notifier may be nil.
func New(store Store, notifier notify.Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		store:     store,
		notifier:  notifier,
		logger:    logger,
		documents: map[document.Kind]*fsm.Machine[document.Status, *docRun]{},
		projects:  map[project.Kind]*fsm.Machine[project.Status, *projectRun]{},
	}
	for _, k := range document.Kinds {
		e.documents[k] = newDocumentMachine(k)
	}
	for _, k := range project.Kinds {
		e.projects[k] = newProjectMachine(k)
	}
	return e
}

func (e *Engine) documentMachine(kind document.Kind) *fsm.Machine[document.Status, *docRun] {
	return e.documents[kind]
}

func (e *Engine) projectMachine(kind project.Kind) *fsm.Machine[project.Status, *projectRun] {
	if m, ok := e.projects[kind]; ok {
		return m
	}
	return e.projects[project.KindScience]
}

// TransitionRequest asks for one named transition on one entity.
type TransitionRequest struct {
	Entity     Entity
	ID         string
	Transition string
	ActorID    string
	// ExpectedVersion, when set, must match the stored version or the
	// request fails with ErrConflict.
	ExpectedVersion *int64
}

// Result describes the entity after a successful transition.
type Result struct {
	Entity   Entity   `json:"entity"`
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Version  int64    `json:"version"`
	Audience []string `json:"audience"`
	Changes  []Change `json:"changes"`
}

// AttemptTransition validates and applies a transition together with every
// cascade it triggers, in one transaction. Notifications are sent after commit.
func (e *Engine) AttemptTransition(ctx context.Context, req TransitionRequest) (*Result, error) {
	var (
		res *Result
		r   *run
	)
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		r = e.newRun(tx, req.ActorID)
		var err error
		switch req.Entity {
		case EntityDocument:
			res, err = r.transitionDocument(ctx, req)
		case EntityProject:
			res, err = r.transitionProject(ctx, req)
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownEntity, req.Entity)
		}
		return err
	})
	if err != nil {
		e.logRejected(req, err)
		return nil, err
	}

	e.logger.Info("transition applied",
		"entity", req.Entity,
		"id", req.ID,
		"transition", req.Transition,
		"actor_id", req.ActorID,
		"status", res.Status,
		"changes", len(res.Changes),
	)
	e.dispatch(ctx, r.messages)
	return res, nil
}

// TransitionProject runs a project transition and returns the new status.
func (e *Engine) TransitionProject(ctx context.Context, projectID, transition, actorID string) (project.Status, error) {
	res, err := e.AttemptTransition(ctx, TransitionRequest{
		Entity:     EntityProject,
		ID:         projectID,
		Transition: transition,
		ActorID:    actorID,
	})
	if err != nil {
		return "", err
	}
	return project.Status(res.Status), nil
}

func (e *Engine) logRejected(req TransitionRequest, err error) {
	attrs := []any{
		"entity", req.Entity,
		"id", req.ID,
		"transition", req.Transition,
		"actor_id", req.ActorID,
		"error", err,
	}
	var ce *CascadeError
	if errors.As(err, &ce) {
		e.logger.Warn("cascade rolled back", append(attrs, "cause", ce.Err)...)
		return
	}
	e.logger.Debug("transition rejected", attrs...)
}

func (r *run) transitionDocument(ctx context.Context, req TransitionRequest) (*Result, error) {
	doc, err := r.document(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(req.ExpectedVersion, doc.Version); err != nil {
		return nil, err
	}
	proj, err := r.project(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}

	env := &docRun{run: r, doc: doc, proj: proj}
	if _, err := r.engine.documentMachine(doc.Kind).Fire(ctx, req.Transition, req.ActorID, env); err != nil {
		return nil, err
	}

	// Cascades may have rewritten the document; report what is stored.
	stored, err := r.document(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	return r.result(EntityDocument, stored.ID, string(stored.Status), stored.Version), nil
}

func (r *run) transitionProject(ctx context.Context, req TransitionRequest) (*Result, error) {
	proj, err := r.project(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(req.ExpectedVersion, proj.Version); err != nil {
		return nil, err
	}

	env := &projectRun{run: r, proj: proj}
	if _, err := r.engine.projectMachine(proj.Kind).Fire(ctx, req.Transition, req.ActorID, env); err != nil {
		return nil, err
	}
	return r.result(EntityProject, proj.ID, string(proj.Status), proj.Version), nil
}

func (r *run) result(entity Entity, id, status string, version int64) *Result {
	res := &Result{
		Entity:   entity,
		ID:       id,
		Status:   status,
		Version:  version,
		Audience: []string{},
		Changes:  r.changes,
	}
	if len(r.messages) > 0 {
		res.Audience = r.messages[0].Recipients
	}
	return res
}

func checkVersion(expected *int64, actual int64) error {
	if expected != nil && *expected != actual {
		return fmt.Errorf("expected version %d, found %d: %w", *expected, actual, ErrConflict)
	}
	return nil
}

// dispatch hands messages to the notifier. Failures are logged and dropped.
func (e *Engine) dispatch(ctx context.Context, msgs []notify.Message) {
	if e.notifier == nil {
		return
	}
	for _, msg := range msgs {
		if len(msg.Recipients) == 0 {
			continue
		}
		if err := e.notifier.Notify(ctx, msg); err != nil {
			e.logger.Warn("notification failed",
				"entity", msg.EntityType,
				"entity_id", msg.EntityID,
				"action", msg.Action,
				"error", err,
			)
		}
	}
}

// AvailableTransitions lists the transitions actorID may invoke on the
// entity from its current status. Guards are not evaluated.
func (e *Engine) AvailableTransitions(ctx context.Context, entity Entity, id, actorID string) ([]string, error) {
	var names []string
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		r := e.newRun(tx, actorID)
		var err error
		switch entity {
		case EntityDocument:
			doc, derr := r.document(ctx, id)
			if derr != nil {
				return derr
			}
			proj, perr := r.project(ctx, doc.ProjectID)
			if perr != nil {
				return perr
			}
			names, err = e.documentMachine(doc.Kind).Available(ctx, actorID, &docRun{run: r, doc: doc, proj: proj})
		case EntityProject:
			proj, perr := r.project(ctx, id)
			if perr != nil {
				return perr
			}
			names, err = e.projectMachine(proj.Kind).Available(ctx, actorID, &projectRun{run: r, proj: proj})
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// ResolveAudience computes who is notified when the entity enters target,
// excluding actorID.
func (e *Engine) ResolveAudience(ctx context.Context, entity Entity, id, target, actorID string) ([]string, error) {
	var ids []string
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		r := e.newRun(tx, actorID)
		switch entity {
		case EntityDocument:
			doc, err := r.document(ctx, id)
			if err != nil {
				return err
			}
			if !e.documentMachine(doc.Kind).HasState(document.Status(target)) {
				return fmt.Errorf("%w: document status %q", ErrUnknownStatus, target)
			}
			proj, err := r.project(ctx, doc.ProjectID)
			if err != nil {
				return err
			}
			ids, err = r.resolveDocumentAudience(ctx, proj, document.Status(target))
			return err
		case EntityProject:
			proj, err := r.project(ctx, id)
			if err != nil {
				return err
			}
			if !e.projectMachine(proj.Kind).HasState(project.Status(target)) {
				return fmt.Errorf("%w: project status %q", ErrUnknownStatus, target)
			}
			ids = r.resolveProjectAudience(proj, project.Status(target))
			return nil
		}
		return fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	})
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// TransitionInfo describes one declared transition for display.
type TransitionInfo struct {
	Name   string   `json:"name"`
	Source []string `json:"source"`
	Target string   `json:"target"`
	Guards []string `json:"guards,omitempty"`
}

// DocumentGraph lists the declared transitions of a document kind.
func (e *Engine) DocumentGraph(kind document.Kind) []TransitionInfo {
	m, ok := e.documents[kind]
	if !ok {
		return nil
	}
	return describe(m.Transitions())
}

// ProjectGraph lists the declared transitions of a project kind.
func (e *Engine) ProjectGraph(kind project.Kind) []TransitionInfo {
	m, ok := e.projects[kind]
	if !ok {
		return nil
	}
	return describe(m.Transitions())
}

func describe[S ~string, E any](ts []fsm.Transition[S, E]) []TransitionInfo {
	out := make([]TransitionInfo, 0, len(ts))
	for _, t := range ts {
		info := TransitionInfo{Name: t.Name, Target: string(t.Target)}
		for _, s := range t.Source {
			info.Source = append(info.Source, string(s))
		}
		for _, g := range t.Guards {
			info.Guards = append(info.Guards, g.Name)
		}
		out = append(out, info)
	}
	return out
}
