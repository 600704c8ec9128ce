package workflow

import (
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/fsm"
)

// Document transition names.
const (
	DocSeekReview                 = "seek_review"
	DocRecall                     = "recall"
	DocRequestRevisionFromAuthors = "request_revision_from_authors"
	DocSeekApproval               = "seek_approval"
	DocRequestReviewerRevision    = "request_reviewer_revision"
	DocRequestAuthorRevision      = "request_author_revision"
	DocApprove                    = "approve"
	DocReset                      = "reset"
)

type docGuard = fsm.Guard[*docRun]

// documentBehaviour is the kind-specific part of the shared document graph.
type documentBehaviour struct {
	canSeekReview   []docGuard
	canRecall       []docGuard
	canSeekApproval []docGuard
	canApprove      []docGuard
	canReset        []docGuard
	onApprove       fsm.Effect[*docRun]
	onReset         fsm.Effect[*docRun]
}

var (
	methodologyGranted = docGuard{
		Name:  "methodology_granted",
		Check: func(d *docRun) bool { return d.doc.Endorsements.Methodology == document.EndorsementGranted },
	}
	herbariumCleared = docGuard{
		Name:  "herbarium_cleared",
		Check: func(d *docRun) bool { return d.doc.Endorsements.Herbarium.Cleared() },
	}
	animalEthicsCleared = docGuard{
		Name:  "animal_ethics_cleared",
		Check: func(d *docRun) bool { return d.doc.Endorsements.AnimalEthics.Cleared() },
	}
)

// behaviours selects guards and cascades per document kind.
var behaviours = map[document.Kind]documentBehaviour{
	document.KindConceptPlan: {
		onApprove: conceptPlanApproved,
		onReset:   conceptPlanReset,
	},
	document.KindProjectPlan: {
		// Seek-approval and approve deliberately check different slots.
		canSeekApproval: []docGuard{methodologyGranted, herbariumCleared, animalEthicsCleared},
		canApprove:      []docGuard{animalEthicsCleared},
		onApprove:       projectPlanApproved,
		onReset:         projectPlanReset,
	},
	document.KindProgressReport: {
		onApprove: progressReportApproved,
		onReset:   progressReportReset,
	},
	document.KindClosure: {
		onApprove: closureApproved,
		onReset:   closureReset,
	},
	document.KindStudentReport: {
		onApprove: studentReportApproved,
		onReset:   studentReportReset,
	},
}

func documentGraph(b documentBehaviour) []fsm.Transition[document.Status, *docRun] {
	type T = fsm.Transition[document.Status, *docRun]
	return []T{
		{
			Name:       DocSeekReview,
			Source:     []document.Status{document.StatusNew},
			Target:     document.StatusInReview,
			Guards:     b.canSeekReview,
			Permission: allow[*docRun](submitters),
		},
		{
			Name:       DocRecall,
			Source:     []document.Status{document.StatusInReview},
			Target:     document.StatusNew,
			Guards:     b.canRecall,
			Permission: allow[*docRun](submitters),
		},
		{
			Name:       DocRequestRevisionFromAuthors,
			Source:     []document.Status{document.StatusInReview},
			Target:     document.StatusNew,
			Guards:     b.canSeekApproval,
			Permission: allow[*docRun](reviewers),
		},
		{
			Name:       DocSeekApproval,
			Source:     []document.Status{document.StatusInReview},
			Target:     document.StatusInApproval,
			Guards:     b.canSeekApproval,
			Permission: allow[*docRun](reviewers),
		},
		{
			Name:       DocRequestReviewerRevision,
			Source:     []document.Status{document.StatusInApproval},
			Target:     document.StatusInReview,
			Guards:     b.canApprove,
			Permission: allow[*docRun](approvers),
		},
		{
			Name:       DocRequestAuthorRevision,
			Source:     []document.Status{document.StatusInApproval},
			Target:     document.StatusNew,
			Guards:     b.canApprove,
			Permission: allow[*docRun](approvers),
		},
		{
			Name:       DocApprove,
			Source:     []document.Status{document.StatusInApproval},
			Target:     document.StatusApproved,
			Guards:     b.canApprove,
			Permission: allow[*docRun](approvers),
			Effect:     cascading(DocApprove, b.onApprove),
		},
		{
			Name:       DocReset,
			Source:     []document.Status{document.StatusApproved},
			Target:     document.StatusNew,
			Guards:     b.canReset,
			Permission: allow[*docRun](approvers),
			Effect:     cascading(DocReset, b.onReset),
		},
	}
}

func newDocumentMachine(kind document.Kind) *fsm.Machine[document.Status, *docRun] {
	return fsm.New(
		string(kind),
		document.Statuses,
		fsm.Accessors[document.Status, *docRun]{
			Get: func(d *docRun) document.Status { return d.doc.Status },
			Set: func(d *docRun, s document.Status) { d.doc.Status = s },
		},
		documentGraph(behaviours[kind]),
		fsm.WithBeforeEffect[document.Status, *docRun](beforeDocument),
	)
}
