package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/fsm"
	"github.com/rpggio/sciflow/internal/repository"
)

// Concept plan fields carried into the project plan it spawns.
var planFieldsFromConcept = map[string]string{
	"summary": "background",
	"aims":    "aims",
	"outcome": "outcome",
}

// cascading marks every failure of fn, other than a conflict, as a cascade failure.
func cascading[E any](transition string, fn fsm.Effect[E]) fsm.Effect[E] {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, env E) error {
		return cascadeFailure(transition, fn(ctx, env))
	}
}

// beforeDocument persists a document transition by compare-and-swap and
// resolves its audience while the collaborating entities are untouched.
func beforeDocument(ctx context.Context, d *docRun, t fsm.Transition[document.Status, *docRun]) error {
	from := d.doc.Status
	d.recordMessage(documentMessage(d.proj, d.doc, t.Name, t.Target, d.documentAudience(ctx, d.proj, t.Target)))

	version, err := d.tx.Documents().UpdateStatus(ctx, document.StatusChange{
		ID:      d.doc.ID,
		From:    from,
		To:      t.Target,
		Version: d.doc.Version,
	})
	if err != nil {
		return fmt.Errorf("writing document status: %w", err)
	}
	d.doc.Version = version
	return d.logChange(ctx, Change{
		Entity:     EntityDocument,
		ID:         d.doc.ID,
		Transition: t.Name,
		From:       string(from),
		To:         string(t.Target),
	}, d.doc.ProjectID, activity.TypeDocumentTransition)
}

// beforeProject is the project counterpart of beforeDocument.
func beforeProject(ctx context.Context, p *projectRun, t fsm.Transition[project.Status, *projectRun]) error {
	from := p.proj.Status
	p.recordMessage(projectMessage(p.proj, t.Name, t.Target, p.resolveProjectAudience(p.proj, t.Target)))

	if err := p.writeProjectStatus(ctx, p.proj, t.Target); err != nil {
		return err
	}
	return p.logChange(ctx, Change{
		Entity:     EntityProject,
		ID:         p.proj.ID,
		Transition: t.Name,
		From:       string(from),
		To:         string(t.Target),
	}, p.proj.ID, activity.TypeProjectTransition)
}

func (r *run) writeProjectStatus(ctx context.Context, proj *project.Project, to project.Status) error {
	version, err := r.tx.Projects().UpdateStatus(ctx, project.StatusChange{
		ID:      proj.ID,
		From:    proj.Status,
		To:      to,
		Version: proj.Version,
	})
	if err != nil {
		return fmt.Errorf("writing project status: %w", err)
	}
	proj.Version = version
	return nil
}

func (r *run) logChange(ctx context.Context, c Change, projectID string, kind activity.ActivityType) error {
	r.changes = append(r.changes, c)
	summary := fmt.Sprintf("%s: %s -> %s", c.Transition, c.From, c.To)
	if c.Forced {
		summary = fmt.Sprintf("forced %s -> %s", c.From, c.To)
	}
	return activity.Record(ctx, r.tx.Activity(), &activity.ActivityEntry{
		EntityType:   string(c.Entity),
		EntityID:     c.ID,
		ProjectID:    projectID,
		ActorID:      r.actorID,
		ActivityType: kind,
		Transition:   c.Transition,
		FromStatus:   c.From,
		ToStatus:     c.To,
		Summary:      summary,
	})
}

// cascadeProject fires a dependent project transition without a permission check.
func (d *docRun) cascadeProject(ctx context.Context, name string) error {
	env := &projectRun{run: d.run, proj: d.proj, trigger: d.doc}
	_, err := d.engine.projectMachine(d.proj.Kind).Cascade(ctx, name, env)
	return err
}

// forceProject writes a project status outside the declared graph. It is
// reserved for reverse cascades that restore an earlier stage.
func (r *run) forceProject(ctx context.Context, proj *project.Project, to project.Status) error {
	if !r.engine.projectMachine(proj.Kind).HasState(to) {
		return fmt.Errorf("force %s to undeclared status %q", proj.ID, to)
	}
	from := proj.Status
	if from == to {
		return nil
	}
	r.recordMessage(projectMessage(proj, "", to, r.resolveProjectAudience(proj, to)))
	if err := r.writeProjectStatus(ctx, proj, to); err != nil {
		return err
	}
	proj.Status = to
	return r.logChange(ctx, Change{
		Entity: EntityProject,
		ID:     proj.ID,
		From:   string(from),
		To:     string(to),
		Forced: true,
	}, proj.ID, activity.TypeProjectForced)
}

func (r *run) forceDocument(ctx context.Context, doc *document.Document, to document.Status) error {
	from := doc.Status
	if from == to {
		return nil
	}
	version, err := r.tx.Documents().UpdateStatus(ctx, document.StatusChange{
		ID:      doc.ID,
		From:    from,
		To:      to,
		Version: doc.Version,
	})
	if err != nil {
		return fmt.Errorf("writing document status: %w", err)
	}
	doc.Status = to
	doc.Version = version
	return r.logChange(ctx, Change{
		Entity: EntityDocument,
		ID:     doc.ID,
		From:   string(from),
		To:     string(to),
		Forced: true,
	}, doc.ProjectID, activity.TypeDocumentForced)
}

func conceptPlanApproved(ctx context.Context, d *docRun) error {
	return d.cascadeProject(ctx, ProjEndorse)
}

func conceptPlanReset(ctx context.Context, d *docRun) error {
	return d.forceProject(ctx, d.proj, setupStatus(d.proj.Kind))
}

func projectPlanApproved(ctx context.Context, d *docRun) error {
	return d.cascadeProject(ctx, ProjApprove)
}

func projectPlanReset(ctx context.Context, d *docRun) error {
	return d.forceProject(ctx, d.proj, project.StatusPending)
}

func progressReportApproved(ctx context.Context, d *docRun) error {
	switch d.proj.Status {
	case project.StatusUpdating:
		return d.cascadeProject(ctx, ProjCompleteUpdate)
	case project.StatusFinalUpdate:
		return d.cascadeProject(ctx, ProjComplete)
	}
	return nil
}

func progressReportReset(ctx context.Context, d *docRun) error {
	switch d.proj.Status {
	case project.StatusActive:
		return d.cascadeProject(ctx, ProjRequestUpdate)
	case project.StatusCompleted:
		// request_final_update is only declared from closing, so the final
		// update stage is restored directly.
		if err := d.forceProject(ctx, d.proj, project.StatusFinalUpdate); err != nil {
			return err
		}
		return (&projectRun{run: d.run, proj: d.proj, trigger: d.doc}).makeReport(ctx, true)
	}
	return d.forceProject(ctx, d.proj, project.StatusUpdating)
}

func closureApproved(ctx context.Context, d *docRun) error {
	return d.cascadeProject(ctx, ProjAcceptClosure)
}

func closureReset(ctx context.Context, d *docRun) error {
	return d.forceProject(ctx, d.proj, project.StatusActive)
}

func studentReportApproved(ctx context.Context, d *docRun) error {
	if d.proj.Status == project.StatusUpdating {
		return d.cascadeProject(ctx, ProjCompleteUpdate)
	}
	return nil
}

func studentReportReset(ctx context.Context, d *docRun) error {
	return d.forceProject(ctx, d.proj, project.StatusUpdating)
}

// ensureProjectPlan fetches or creates the project plan and puts it back to new.
func ensureProjectPlan(ctx context.Context, p *projectRun) error {
	docs := p.tx.Documents()
	plan, err := docs.FindCurrent(ctx, p.proj.ID, document.KindProjectPlan, 0)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		plan = document.New(uuid.NewString(), p.proj.ID, document.KindProjectPlan)
		if concept, err := p.conceptPlan(ctx); err != nil {
			return err
		} else if concept != nil {
			for from, to := range planFieldsFromConcept {
				if v := concept.Fields[from]; v != "" {
					plan.Fields[to] = v
				}
			}
		}
		if err := p.createDocument(ctx, plan); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("finding project plan: %w", err)
	default:
		if err := p.forceDocument(ctx, plan, document.StatusNew); err != nil {
			return err
		}
	}

	p.proj.Documents.ProjectPlanID = plan.ID
	return p.saveDocumentCache(ctx)
}

func (p *projectRun) conceptPlan(ctx context.Context) (*document.Document, error) {
	if p.trigger != nil && p.trigger.Kind == document.KindConceptPlan {
		return p.trigger, nil
	}
	concept, err := p.tx.Documents().FindCurrent(ctx, p.proj.ID, document.KindConceptPlan, 0)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding concept plan: %w", err)
	}
	return concept, nil
}

func ensureClosure(ctx context.Context, p *projectRun) error {
	closure, err := p.tx.Documents().FindCurrent(ctx, p.proj.ID, document.KindClosure, 0)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		closure = document.New(uuid.NewString(), p.proj.ID, document.KindClosure)
		if err := p.createDocument(ctx, closure); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("finding closure: %w", err)
	}
	p.proj.Documents.ClosureID = closure.ID
	return p.saveDocumentCache(ctx)
}

// forceClosure opens the closure form and cancels the update in flight.
func forceClosure(ctx context.Context, p *projectRun) error {
	if err := ensureClosure(ctx, p); err != nil {
		return err
	}
	return cancelReport(ctx, p)
}

// cancelReport deletes the in-flight progress or student report and points
// the cache back at the previous year's report.
func cancelReport(ctx context.Context, p *projectRun) error {
	kind := reportKind(p.proj.Kind)
	id := p.proj.Documents.ProgressReportID
	if kind == document.KindStudentReport {
		id = p.proj.Documents.StudentReportID
	}
	if id == "" {
		return nil
	}

	docs := p.tx.Documents()
	doc, err := docs.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading report in flight: %w", err)
	}
	if err := docs.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("deleting report in flight: %w", err)
	}
	if err := activity.Record(ctx, p.tx.Activity(), &activity.ActivityEntry{
		EntityType:   activity.EntityDocument,
		EntityID:     doc.ID,
		ProjectID:    p.proj.ID,
		ActorID:      p.actorID,
		ActivityType: activity.TypeDocumentDeleted,
		Summary:      fmt.Sprintf("cancelled %s %d", doc.Kind, doc.Year),
	}); err != nil {
		return err
	}

	previous := ""
	prev, err := docs.FindPrevious(ctx, p.proj.ID, kind, doc.Year)
	switch {
	case err == nil:
		previous = prev.ID
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("finding previous report: %w", err)
	}
	if kind == document.KindStudentReport {
		p.proj.Documents.StudentReportID = previous
	} else {
		p.proj.Documents.ProgressReportID = previous
	}
	return p.saveDocumentCache(ctx)
}

func requestProgressReport(ctx context.Context, p *projectRun) error {
	return p.makeReport(ctx, false)
}

func requestFinalReport(ctx context.Context, p *projectRun) error {
	return p.makeReport(ctx, true)
}

func reportKind(kind project.Kind) document.Kind {
	if kind == project.KindStudent {
		return document.KindStudentReport
	}
	return document.KindProgressReport
}

// makeReport gets or creates the report for the latest annual report year,
// copying narrative fields forward from the prior year's report.
func (p *projectRun) makeReport(ctx context.Context, final bool) error {
	latest, err := p.tx.Reports().Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return errors.New("no annual report to report against")
	}
	if err != nil {
		return fmt.Errorf("loading latest annual report: %w", err)
	}

	docs := p.tx.Documents()
	kind := reportKind(p.proj.Kind)
	doc, err := docs.FindCurrent(ctx, p.proj.ID, kind, latest.Year)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		doc = document.New(uuid.NewString(), p.proj.ID, kind)
		doc.Year = latest.Year
		doc.ReportID = latest.ID
		doc.Final = final
		prev, err := docs.FindPrevious(ctx, p.proj.ID, kind, latest.Year)
		switch {
		case err == nil:
			document.CopyFields(doc.Fields, prev.Fields)
		case !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("finding previous report: %w", err)
		}
		if err := p.createDocument(ctx, doc); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("finding report: %w", err)
	default:
		if final && !doc.Final {
			doc.Final = true
			version, err := docs.UpdateContent(ctx, doc, doc.Version)
			if err != nil {
				return fmt.Errorf("marking report final: %w", err)
			}
			doc.Version = version
		}
		if doc.IsApproved() {
			if err := p.forceDocument(ctx, doc, document.StatusNew); err != nil {
				return err
			}
		}
	}

	if kind == document.KindStudentReport {
		p.proj.Documents.StudentReportID = doc.ID
	} else {
		p.proj.Documents.ProgressReportID = doc.ID
	}
	return p.saveDocumentCache(ctx)
}

func (r *run) createDocument(ctx context.Context, doc *document.Document) error {
	if err := r.tx.Documents().Create(ctx, doc); err != nil {
		return fmt.Errorf("creating %s: %w", doc.Kind, err)
	}
	return activity.Record(ctx, r.tx.Activity(), &activity.ActivityEntry{
		EntityType:   activity.EntityDocument,
		EntityID:     doc.ID,
		ProjectID:    doc.ProjectID,
		ActorID:      r.actorID,
		ActivityType: activity.TypeDocumentCreated,
		Summary:      fmt.Sprintf("created %s", doc.Kind),
	})
}

func (p *projectRun) saveDocumentCache(ctx context.Context) error {
	if err := p.tx.Projects().SetDocuments(ctx, p.proj.ID, p.proj.Documents); err != nil {
		return fmt.Errorf("caching current documents: %w", err)
	}
	return nil
}
