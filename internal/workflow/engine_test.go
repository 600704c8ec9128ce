package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/fsm"
	"github.com/rpggio/sciflow/internal/notify"
	"github.com/rpggio/sciflow/internal/sqlite"
	"github.com/rpggio/sciflow/internal/workflow"
	"github.com/stretchr/testify/require"
)

func TestCreateProject_SetupByKind(t *testing.T) {
	h := newHarness(t)

	sci := h.createProject(project.KindScience)
	require.Equal(t, project.StatusNew, sci.Status)
	require.Equal(t, 1, sci.Number)
	require.NotEmpty(t, sci.Documents.ConceptPlanID)
	require.Equal(t, []string{lead}, sci.Submitters())
	concept := h.document(sci.Documents.ConceptPlanID)
	require.Equal(t, document.KindConceptPlan, concept.Kind)
	require.Equal(t, document.StatusNew, concept.Status)

	for _, kind := range []project.Kind{project.KindCollaboration, project.KindStudent} {
		proj := h.createProject(kind)
		require.Equal(t, project.StatusActive, proj.Status, kind)
		require.Empty(t, proj.Documents.ConceptPlanID, kind)
	}

	cf := h.createProject(project.KindCoreFunction)
	require.Equal(t, project.StatusNew, cf.Status)
	require.Equal(t, 4, cf.Number)
	require.Equal(t, "CF 2026-004", cf.Code())
}

func TestCreateProject_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.CreateProject(h.ctx, project.CreateRequest{Kind: "hobby", Year: 2026, Title: "x", ActorID: lead})
	require.ErrorIs(t, err, project.ErrInvalidInput)

	_, err = h.engine.CreateProject(h.ctx, project.CreateRequest{Kind: project.KindScience, Year: 2026, Title: "  ", ActorID: lead})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestScienceProject_FullLifecycle(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)

	// Concept plan approval endorses the project and opens a project plan
	// seeded from the concept.
	_, err := h.docs.UpdateFields(h.ctx, document.UpdateRequest{
		DocumentID: proj.Documents.ConceptPlanID,
		ActorID:    lead,
		Fields:     map[string]string{"summary": "Fire history", "aims": "Map fire scars"},
	})
	require.NoError(t, err)
	res := h.approveDocument(proj.Documents.ConceptPlanID)
	require.Equal(t, string(document.StatusApproved), res.Status)
	require.Len(t, res.Changes, 2)
	require.Equal(t, workflow.EntityProject, res.Changes[1].Entity)
	require.Equal(t, workflow.ProjEndorse, res.Changes[1].Transition)

	proj = h.project(proj.ID)
	require.Equal(t, project.StatusPending, proj.Status)
	plans, err := h.store.Documents().ListByProject(h.ctx, proj.ID)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	plan := h.document(proj.Documents.ProjectPlanID)
	require.Equal(t, document.KindProjectPlan, plan.Kind)
	require.Equal(t, document.StatusNew, plan.Status)
	require.Equal(t, "Fire history", plan.Fields["background"])
	require.Equal(t, "Map fire scars", plan.Fields["aims"])

	// Re-approving the concept plan is not declared from approved.
	_, err = h.fire(workflow.EntityDocument, proj.Documents.ConceptPlanID, workflow.DocApprove, approver)
	require.ErrorIs(t, err, fsm.ErrInvalidTransition)

	// Project plan approval activates the project.
	h.grantMethodology(plan.ID)
	h.approveDocument(plan.ID)
	require.Equal(t, project.StatusActive, h.project(proj.ID).Status)

	// Annual update.
	rep := h.openAnnualReport(2026)
	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjRequestUpdate, approver)
	proj = h.project(proj.ID)
	require.Equal(t, project.StatusUpdating, proj.Status)
	report := h.document(proj.Documents.ProgressReportID)
	require.Equal(t, 2026, report.Year)
	require.Equal(t, rep.ID, report.ReportID)
	require.False(t, report.Final)
	h.approveDocument(report.ID)
	require.Equal(t, project.StatusActive, h.project(proj.ID).Status)

	// Closure.
	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjRequestClosure, lead)
	proj = h.project(proj.ID)
	require.Equal(t, project.StatusClosureRequested, proj.Status)
	require.NotEmpty(t, proj.Documents.ClosureID)
	h.approveDocument(proj.Documents.ClosureID)
	require.Equal(t, project.StatusClosing, h.project(proj.ID).Status)

	// The final update reuses this year's report, marked final and reopened.
	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjRequestFinalUpdate, approver)
	proj = h.project(proj.ID)
	require.Equal(t, project.StatusFinalUpdate, proj.Status)
	require.Equal(t, report.ID, proj.Documents.ProgressReportID)
	final := h.document(report.ID)
	require.True(t, final.Final)
	require.Equal(t, document.StatusNew, final.Status)

	h.approveDocument(report.ID)
	require.Equal(t, project.StatusCompleted, h.project(proj.ID).Status)

	// Resetting the final report reopens the final update stage.
	h.mustFire(workflow.EntityDocument, report.ID, workflow.DocReset, approver)
	require.Equal(t, project.StatusFinalUpdate, h.project(proj.ID).Status)
	require.Equal(t, document.StatusNew, h.document(report.ID).Status)
}

func TestProjectTransition_InvalidLeavesStatus(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)
	before := h.activityCount()

	_, err := h.fire(workflow.EntityProject, proj.ID, workflow.ProjComplete, approver)
	require.ErrorIs(t, err, fsm.ErrInvalidTransition)

	_, err = h.fire(workflow.EntityProject, proj.ID, "fly_away", admin)
	require.ErrorIs(t, err, fsm.ErrInvalidTransition)

	got := h.project(proj.ID)
	require.Equal(t, project.StatusNew, got.Status)
	require.Equal(t, proj.Version, got.Version)
	require.Equal(t, before, h.activityCount())
	require.Empty(t, h.sent)
}

func TestTransition_PermissionTiers(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)
	conceptID := proj.Documents.ConceptPlanID

	_, err := h.fire(workflow.EntityDocument, conceptID, workflow.DocSeekReview, outsider)
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)
	_, err = h.fire(workflow.EntityDocument, conceptID, workflow.DocSeekReview, "")
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)

	h.mustFire(workflow.EntityDocument, conceptID, workflow.DocSeekReview, lead)

	// Team members cannot review their own work.
	_, err = h.fire(workflow.EntityDocument, conceptID, workflow.DocSeekApproval, lead)
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)

	// Admins pass every tier.
	h.mustFire(workflow.EntityDocument, conceptID, workflow.DocSeekApproval, admin)
	_, err = h.fire(workflow.EntityDocument, conceptID, workflow.DocApprove, reviewer)
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)
	h.mustFire(workflow.EntityDocument, conceptID, workflow.DocApprove, admin)
}

func TestProjectPlan_EndorsementGating(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)
	h.approveDocument(proj.Documents.ConceptPlanID)
	planID := h.project(proj.ID).Documents.ProjectPlanID

	h.mustFire(workflow.EntityDocument, planID, workflow.DocSeekReview, lead)
	_, err := h.fire(workflow.EntityDocument, planID, workflow.DocSeekApproval, reviewer)
	require.ErrorIs(t, err, fsm.ErrGuardNotSatisfied)
	var guardErr *fsm.GuardError
	require.True(t, errors.As(err, &guardErr))
	require.Equal(t, "methodology_granted", guardErr.Guard)
	require.Equal(t, document.StatusInReview, h.document(planID).Status)

	// Guards run before permission: an outsider sees the guard failure.
	_, err = h.fire(workflow.EntityDocument, planID, workflow.DocSeekApproval, outsider)
	require.ErrorIs(t, err, fsm.ErrGuardNotSatisfied)

	h.grantMethodology(planID)
	h.mustFire(workflow.EntityDocument, planID, workflow.DocSeekApproval, reviewer)
	h.mustFire(workflow.EntityDocument, planID, workflow.DocApprove, approver)
	require.Equal(t, project.StatusActive, h.project(proj.ID).Status)
}

func TestProjectPlan_ResetRestoresPending(t *testing.T) {
	h := newHarness(t)
	proj := h.activeScienceProject()

	res := h.mustFire(workflow.EntityDocument, proj.Documents.ProjectPlanID, workflow.DocReset, approver)
	require.Equal(t, string(document.StatusNew), res.Status)
	require.True(t, res.Changes[1].Forced)
	require.Equal(t, project.StatusPending, h.project(proj.ID).Status)
}

func TestConceptPlan_ResetReturnsProjectToNew(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)
	h.approveDocument(proj.Documents.ConceptPlanID)
	planID := h.project(proj.ID).Documents.ProjectPlanID

	h.mustFire(workflow.EntityDocument, proj.Documents.ConceptPlanID, workflow.DocReset, approver)
	require.Equal(t, project.StatusNew, h.project(proj.ID).Status)

	// Re-approval reuses the existing plan instead of creating a second one.
	h.approveDocument(proj.Documents.ConceptPlanID)
	again := h.project(proj.ID)
	require.Equal(t, project.StatusPending, again.Status)
	require.Equal(t, planID, again.Documents.ProjectPlanID)
}

func TestForceClosure_CancelsReportInFlight(t *testing.T) {
	h := newHarness(t)
	proj := h.activeScienceProject()

	h.openAnnualReport(2025)
	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjRequestUpdate, approver)
	lastYear := h.project(proj.ID).Documents.ProgressReportID
	h.approveDocument(lastYear)

	h.openAnnualReport(2026)
	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjRequestUpdate, approver)
	inFlight := h.project(proj.ID).Documents.ProgressReportID
	require.NotEqual(t, lastYear, inFlight)

	_, err := h.fire(workflow.EntityProject, proj.ID, workflow.ProjForceClosure, lead)
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)

	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjForceClosure, reviewer)
	got := h.project(proj.ID)
	require.Equal(t, project.StatusClosureRequested, got.Status)
	require.NotEmpty(t, got.Documents.ClosureID)
	require.Equal(t, lastYear, got.Documents.ProgressReportID)

	_, err = h.store.Documents().Get(h.ctx, inFlight)
	require.Error(t, err)
	require.Equal(t, document.StatusNew, h.document(got.Documents.ClosureID).Status)
}

func TestStudentProject_ForceClosureCompletes(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindStudent)
	h.openAnnualReport(2026)

	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjRequestUpdate, approver)
	reportID := h.project(proj.ID).Documents.StudentReportID
	require.Equal(t, document.KindStudentReport, h.document(reportID).Kind)

	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjForceClosure, reviewer)
	got := h.project(proj.ID)
	require.Equal(t, project.StatusCompleted, got.Status)
	require.Empty(t, got.Documents.StudentReportID)
	_, err := h.store.Documents().Get(h.ctx, reportID)
	require.Error(t, err)
}

func TestCascadeFailure_RollsBackEverything(t *testing.T) {
	h := newHarness(t)
	proj := h.activeScienceProject()
	before := h.activityCount()
	sent := len(h.sent)

	// No annual report is open, so no progress report can be made.
	_, err := h.fire(workflow.EntityProject, proj.ID, workflow.ProjRequestUpdate, approver)
	require.ErrorIs(t, err, workflow.ErrCascadeFailure)
	var ce *workflow.CascadeError
	require.True(t, errors.As(err, &ce))
	require.Equal(t, workflow.ProjRequestUpdate, ce.Transition)
	require.NotContains(t, err.Error(), "annual report")

	got := h.project(proj.ID)
	require.Equal(t, project.StatusActive, got.Status)
	require.Equal(t, proj.Version, got.Version)
	require.Empty(t, got.Documents.ProgressReportID)
	require.Equal(t, before, h.activityCount())
	require.Len(t, h.sent, sent)
}

func TestConcurrentApprove_OneWins(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)
	conceptID := proj.Documents.ConceptPlanID
	h.mustFire(workflow.EntityDocument, conceptID, workflow.DocSeekReview, lead)
	h.mustFire(workflow.EntityDocument, conceptID, workflow.DocSeekApproval, reviewer)
	version := h.document(conceptID).Version

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, actor := range []string{approver, admin} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.engine.AttemptTransition(context.Background(), workflow.TransitionRequest{
				Entity:          workflow.EntityDocument,
				ID:              conceptID,
				Transition:      workflow.DocApprove,
				ActorID:         actor,
				ExpectedVersion: &version,
			})
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, workflow.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, conflicts)

	plans, err := h.store.Documents().ListByProject(h.ctx, proj.ID)
	require.NoError(t, err)
	require.Len(t, plans, 2, "exactly one project plan")
	require.Equal(t, project.StatusPending, h.project(proj.ID).Status)
}

func TestNotifierFailure_DoesNotFailTransition(t *testing.T) {
	h := newHarnessWith(t, notify.NotifierFunc(func(context.Context, notify.Message) error {
		return errors.New("smtp down")
	}))
	proj := h.createProject(project.KindScience)

	res, err := h.fire(workflow.EntityDocument, proj.Documents.ConceptPlanID, workflow.DocSeekReview, lead)
	require.NoError(t, err)
	require.Equal(t, string(document.StatusInReview), res.Status)
	require.Equal(t, document.StatusInReview, h.document(proj.Documents.ConceptPlanID).Status)
}

func TestProjectTransition_CascadeOnlyRejectsDirectCalls(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)

	_, err := h.fire(workflow.EntityProject, proj.ID, workflow.ProjEndorse, approver)
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)
	got := h.project(proj.ID)
	require.Equal(t, project.StatusNew, got.Status)
	require.Equal(t, proj.Version, got.Version)
	require.Empty(t, got.Documents.ProjectPlanID)

	h.approveDocument(proj.Documents.ConceptPlanID)
	require.Equal(t, project.StatusPending, h.project(proj.ID).Status)
	_, err = h.fire(workflow.EntityProject, proj.ID, workflow.ProjApprove, admin)
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)
	require.Equal(t, project.StatusPending, h.project(proj.ID).Status)

	active := h.activeScienceProject()
	h.openAnnualReport(2026)
	h.mustFire(workflow.EntityProject, active.ID, workflow.ProjRequestUpdate, approver)
	_, err = h.fire(workflow.EntityProject, active.ID, workflow.ProjCompleteUpdate, approver)
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)
	updating := h.project(active.ID)
	require.Equal(t, project.StatusUpdating, updating.Status)
	require.Equal(t, document.StatusNew, h.document(updating.Documents.ProgressReportID).Status)

	names, err := h.engine.AvailableTransitions(h.ctx, workflow.EntityProject, active.ID, approver)
	require.NoError(t, err)
	require.NotContains(t, names, workflow.ProjCompleteUpdate)
	require.Contains(t, names, workflow.ProjForceClosure)

	// The report approval still completes the update.
	h.approveDocument(updating.Documents.ProgressReportID)
	require.Equal(t, project.StatusActive, h.project(active.ID).Status)
}

func TestStudentProject_CompleteUpdateIsCascadeOnly(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindStudent)
	h.openAnnualReport(2026)
	h.mustFire(workflow.EntityProject, proj.ID, workflow.ProjRequestUpdate, approver)

	_, err := h.fire(workflow.EntityProject, proj.ID, workflow.ProjCompleteUpdate, approver)
	require.ErrorIs(t, err, fsm.ErrPermissionDenied)
	require.Equal(t, project.StatusUpdating, h.project(proj.ID).Status)
}

func TestAvailableTransitions(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)
	conceptID := proj.Documents.ConceptPlanID

	names, err := h.engine.AvailableTransitions(h.ctx, workflow.EntityDocument, conceptID, lead)
	require.NoError(t, err)
	require.Equal(t, []string{workflow.DocSeekReview}, names)

	names, err = h.engine.AvailableTransitions(h.ctx, workflow.EntityDocument, conceptID, outsider)
	require.NoError(t, err)
	require.Empty(t, names)

	// Endorsement follows the concept plan, so a new project offers nothing.
	names, err = h.engine.AvailableTransitions(h.ctx, workflow.EntityProject, proj.ID, approver)
	require.NoError(t, err)
	require.Empty(t, names)

	_, err = h.engine.AvailableTransitions(h.ctx, workflow.EntityDocument, "missing", lead)
	require.ErrorIs(t, err, workflow.ErrNotFound)
	_, err = h.engine.AvailableTransitions(h.ctx, "widget", proj.ID, lead)
	require.ErrorIs(t, err, workflow.ErrUnknownEntity)
}

func TestAttemptTransition_ExpectedVersion(t *testing.T) {
	h := newHarness(t)
	proj := h.createProject(project.KindScience)
	stale := proj.Version + 5

	_, err := h.engine.AttemptTransition(h.ctx, workflow.TransitionRequest{
		Entity:          workflow.EntityProject,
		ID:              proj.ID,
		Transition:      workflow.ProjEndorse,
		ActorID:         approver,
		ExpectedVersion: &stale,
	})
	require.ErrorIs(t, err, workflow.ErrConflict)
	require.Equal(t, project.StatusNew, h.project(proj.ID).Status)
}

func TestGraphs(t *testing.T) {
	e := workflow.New(nil, nil, nil)

	doc := e.DocumentGraph(document.KindProjectPlan)
	require.Len(t, doc, 8)
	for _, tr := range doc {
		if tr.Name == workflow.DocApprove {
			require.Equal(t, []string{"animal_ethics_cleared"}, tr.Guards)
		}
	}

	collab := e.ProjectGraph(project.KindCollaboration)
	for _, tr := range collab {
		require.NotEqual(t, workflow.ProjRequestUpdate, tr.Name)
	}
	require.Nil(t, e.ProjectGraph("hobby"))
}

func TestAnnualReport_BackdatedYearLeavesApprovedReport(t *testing.T) {
	h := newHarness(t)
	reports := annualreport.NewService(
		sqlite.NewAnnualReportRepository(h.db),
		project.NewService(sqlite.NewProjectRepository(h.db), h.users, nil),
		h.engine, h.users, nil,
	)
	proj := h.activeScienceProject()

	_, err := reports.Create(h.ctx, annualreport.CreateRequest{Year: 2026, ActorID: approver})
	require.NoError(t, err)
	current := h.project(proj.ID).Documents.ProgressReportID
	h.approveDocument(current)
	require.Equal(t, project.StatusActive, h.project(proj.ID).Status)

	_, err = reports.Create(h.ctx, annualreport.CreateRequest{Year: 2024, ActorID: approver})
	require.ErrorIs(t, err, annualreport.ErrYearBackdated)
	require.Equal(t, project.StatusActive, h.project(proj.ID).Status)
	require.Equal(t, document.StatusApproved, h.document(current).Status)

	res, err := reports.Create(h.ctx, annualreport.CreateRequest{Year: 2027, ActorID: approver})
	require.NoError(t, err)
	require.Zero(t, res.Failed())
	got := h.project(proj.ID)
	require.Equal(t, project.StatusUpdating, got.Status)
	require.NotEqual(t, current, got.Documents.ProgressReportID)
	require.Equal(t, 2027, h.document(got.Documents.ProgressReportID).Year)
	require.Equal(t, document.StatusApproved, h.document(current).Status)
}
