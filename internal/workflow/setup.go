package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
)

// CreateProject sets up a project: it takes the next number for the year,
// makes the creator its supervising scientist, and either opens a concept
// plan or activates the project straight away, depending on kind.
func (e *Engine) CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var id string
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		r := e.newRun(tx, req.ActorID)
		projects := tx.Projects()

		number, err := projects.NextNumber(ctx, req.Year)
		if err != nil {
			return fmt.Errorf("allocating project number: %w", err)
		}
		now := time.Now().UTC()
		proj := &project.Project{
			ID:              uuid.NewString(),
			Kind:            req.Kind,
			Year:            req.Year,
			Number:          number,
			Title:           req.Title,
			Status:          project.StatusNew,
			OwnerID:         req.ActorID,
			DataCustodianID: req.DataCustodianID,
			SiteCustodianID: req.SiteCustodianID,
			Version:         1,
			CreatedAt:       now,
			ModifiedAt:      now,
		}
		if err := projects.Create(ctx, proj); err != nil {
			return fmt.Errorf("creating project: %w", err)
		}
		lead := project.Member{
			ProjectID:      proj.ID,
			UserID:         req.ActorID,
			Role:           project.RoleSupervisingScientist,
			TimeAllocation: 1,
			Position:       0,
		}
		if err := projects.AddMember(ctx, lead); err != nil {
			return fmt.Errorf("adding supervising scientist: %w", err)
		}
		proj.Members = []project.Member{lead}
		r.projects[proj.ID] = proj

		if err := activity.Record(ctx, tx.Activity(), &activity.ActivityEntry{
			EntityType:   activity.EntityProject,
			EntityID:     proj.ID,
			ProjectID:    proj.ID,
			ActorID:      req.ActorID,
			ActivityType: activity.TypeProjectCreated,
			Summary:      fmt.Sprintf("created %s %q", proj.Code(), proj.Title),
		}); err != nil {
			return err
		}

		if err := r.setup(ctx, proj); err != nil {
			return err
		}
		id = proj.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	var proj *project.Project
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		proj, err = tx.Projects().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reloading project: %w", err)
	}
	e.logger.Info("project created", "project_id", proj.ID, "code", proj.Code(), "kind", proj.Kind, "status", proj.Status)
	return proj, nil
}

// setup brings a new project to its post-setup state.
func (r *run) setup(ctx context.Context, proj *project.Project) error {
	if setupStatus(proj.Kind) != project.StatusNew {
		env := &projectRun{run: r, proj: proj}
		if _, err := r.engine.projectMachine(proj.Kind).Cascade(ctx, ProjActivate, env); err != nil {
			return cascadeFailure(ProjActivate, err)
		}
		return nil
	}

	concept := document.New(uuid.NewString(), proj.ID, document.KindConceptPlan)
	if err := r.createDocument(ctx, concept); err != nil {
		return cascadeFailure("setup", err)
	}
	proj.Documents.ConceptPlanID = concept.ID
	if err := r.tx.Projects().SetDocuments(ctx, proj.ID, proj.Documents); err != nil {
		return cascadeFailure("setup", fmt.Errorf("caching concept plan: %w", err))
	}
	return nil
}
