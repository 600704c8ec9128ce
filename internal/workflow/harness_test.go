package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/notify"
	"github.com/rpggio/sciflow/internal/sqlite"
	"github.com/rpggio/sciflow/internal/workflow"
	"github.com/stretchr/testify/require"
)

// Actors seeded by newHarness.
const (
	lead      = "lead"
	colleague = "colleague"
	reviewer  = "reviewer"
	reviewer2 = "reviewer2"
	approver  = "approver"
	admin     = "admin"
	outsider  = "outsider"
)

type harness struct {
	t      *testing.T
	ctx    context.Context
	db     *sqlite.DB
	store  *sqlite.Store
	users  *sqlite.UserRepository
	engine *workflow.Engine
	docs   *document.Service
	sent   []notify.Message
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, nil)
}

// newHarnessWith builds an engine over a fresh in-memory database. A nil
// notifier records messages on the harness.
func newHarnessWith(t *testing.T, notifier notify.Notifier) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := &harness{t: t, ctx: ctx, db: db, store: sqlite.NewStore(db), users: sqlite.NewUserRepository(db)}
	if notifier == nil {
		notifier = notify.NotifierFunc(func(_ context.Context, msg notify.Message) error {
			h.sent = append(h.sent, msg)
			return nil
		})
	}
	h.engine = workflow.New(h.store, notifier, nil)
	h.docs = document.NewService(sqlite.NewDocumentRepository(db), sqlite.NewProjectRepository(db), h.users, h.store.Activity(), nil)

	roles := map[string]string{
		reviewer:  user.RoleReviewers,
		reviewer2: user.RoleReviewers,
		approver:  user.RoleApprovers,
		admin:     user.RoleAdmins,
	}
	for _, id := range []string{lead, colleague, reviewer, reviewer2, approver, admin, outsider} {
		require.NoError(t, h.users.Create(ctx, &user.User{ID: id, Username: id}))
		if role, ok := roles[id]; ok {
			require.NoError(t, h.users.GrantRole(ctx, id, role))
		}
	}
	return h
}

func (h *harness) createProject(kind project.Kind) *project.Project {
	h.t.Helper()
	proj, err := h.engine.CreateProject(h.ctx, project.CreateRequest{
		Kind:    kind,
		Year:    2026,
		Title:   "Fire regimes of the northern jarrah forest",
		ActorID: lead,
	})
	require.NoError(h.t, err)
	return proj
}

func (h *harness) addMember(projectID, userID string, position int) {
	h.t.Helper()
	require.NoError(h.t, sqlite.NewProjectRepository(h.db).AddMember(h.ctx, project.Member{
		ProjectID: projectID,
		UserID:    userID,
		Role:      project.RoleResearchScientist,
		Position:  position,
	}))
}

func (h *harness) project(id string) *project.Project {
	h.t.Helper()
	proj, err := h.store.Projects().Get(h.ctx, id)
	require.NoError(h.t, err)
	return proj
}

func (h *harness) document(id string) *document.Document {
	h.t.Helper()
	doc, err := h.store.Documents().Get(h.ctx, id)
	require.NoError(h.t, err)
	return doc
}

func (h *harness) fire(entity workflow.Entity, id, transition, actorID string) (*workflow.Result, error) {
	return h.engine.AttemptTransition(h.ctx, workflow.TransitionRequest{
		Entity:     entity,
		ID:         id,
		Transition: transition,
		ActorID:    actorID,
	})
}

func (h *harness) mustFire(entity workflow.Entity, id, transition, actorID string) *workflow.Result {
	h.t.Helper()
	res, err := h.fire(entity, id, transition, actorID)
	require.NoError(h.t, err, "%s %s", entity, transition)
	return res
}

// approveDocument walks a document from new to approved.
func (h *harness) approveDocument(id string) *workflow.Result {
	h.t.Helper()
	h.mustFire(workflow.EntityDocument, id, workflow.DocSeekReview, lead)
	h.mustFire(workflow.EntityDocument, id, workflow.DocSeekApproval, reviewer)
	return h.mustFire(workflow.EntityDocument, id, workflow.DocApprove, approver)
}

func (h *harness) grantMethodology(docID string) {
	h.t.Helper()
	_, err := h.docs.SetEndorsement(h.ctx, document.EndorseRequest{
		DocumentID: docID,
		Slot:       document.SlotMethodology,
		Value:      document.EndorsementGranted,
		ActorID:    admin,
	})
	require.NoError(h.t, err)
}

// activeScienceProject creates a science project and approves its concept
// and project plans.
func (h *harness) activeScienceProject() *project.Project {
	h.t.Helper()
	proj := h.createProject(project.KindScience)
	h.approveDocument(proj.Documents.ConceptPlanID)
	planID := h.project(proj.ID).Documents.ProjectPlanID
	h.grantMethodology(planID)
	h.approveDocument(planID)
	proj = h.project(proj.ID)
	require.Equal(h.t, project.StatusActive, proj.Status)
	return proj
}

func (h *harness) openAnnualReport(year int) *annualreport.Report {
	h.t.Helper()
	rep := &annualreport.Report{ID: uuid.NewString(), Year: year, CreatedBy: admin, CreatedAt: time.Now().UTC()}
	require.NoError(h.t, h.store.Reports().Create(h.ctx, rep))
	return rep
}

func (h *harness) activityCount() int {
	h.t.Helper()
	var n int
	require.NoError(h.t, h.db.QueryRow("SELECT COUNT(*) FROM activity_log").Scan(&n))
	return n
}
