package document

import (
	"slices"
	"time"
)

// Kind is the document subtype.
type Kind string

const (
	KindConceptPlan    Kind = "concept_plan"
	KindProjectPlan    Kind = "project_plan"
	KindProgressReport Kind = "progress_report"
	KindClosure        Kind = "project_closure"
	KindStudentReport  Kind = "student_report"
)

// Kinds lists every document subtype.
var Kinds = []Kind{KindConceptPlan, KindProjectPlan, KindProgressReport, KindClosure, KindStudentReport}

// Valid reports whether k is a declared subtype.
func (k Kind) Valid() bool { return slices.Contains(Kinds, k) }

// Yearly reports whether a project holds one document of this kind per reporting year.
func (k Kind) Yearly() bool {
	return k == KindProgressReport || k == KindStudentReport
}

// Status is a document lifecycle state shared by every subtype.
type Status string

const (
	StatusNew        Status = "new"
	StatusInReview   Status = "inreview"
	StatusInApproval Status = "inapproval"
	StatusApproved   Status = "approved"
)

// Statuses lists every document status.
var Statuses = []Status{StatusNew, StatusInReview, StatusInApproval, StatusApproved}

// Field keys with workflow meaning.
const (
	FieldInvolvesPlants  = "involves_plants"
	FieldInvolvesAnimals = "involves_animals"
)

// Specimens records whether a plan collects biological specimens.
type Specimens struct {
	Plants  bool `json:"plants"`
	Animals bool `json:"animals"`
}

// Document is one formal document owned by a project.
type Document struct {
	ID           string            `json:"id"`
	ProjectID    string            `json:"project_id"`
	Kind         Kind              `json:"kind"`
	Status       Status            `json:"status"`
	Year         int               `json:"year,omitempty"`
	ReportID     string            `json:"report_id,omitempty"`
	Final        bool              `json:"final,omitempty"`
	Fields       map[string]string `json:"fields"`
	Specimens    Specimens         `json:"specimens"`
	Endorsements Endorsements      `json:"endorsements"`
	Version      int64             `json:"version"`
	CreatedAt    time.Time         `json:"created_at"`
	ModifiedAt   time.Time         `json:"modified_at"`
}

// New builds a document of the given kind in status new with default endorsements.
func New(id, projectID string, kind Kind) *Document {
	now := time.Now().UTC()
	doc := &Document{
		ID:         id,
		ProjectID:  projectID,
		Kind:       kind,
		Status:     StatusNew,
		Fields:     map[string]string{},
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if kind == KindProjectPlan {
		doc.Endorsements = DefaultEndorsements()
	}
	return doc
}

// IsDraft reports whether the document is still with its authors.
func (d *Document) IsDraft() bool { return d.Status == StatusNew || d.Status == StatusInReview }

// IsApproved reports whether the document is approved.
func (d *Document) IsApproved() bool { return d.Status == StatusApproved }

// IsNearlyApproved reports whether the document is awaiting or past approval.
func (d *Document) IsNearlyApproved() bool {
	return d.Status == StatusInApproval || d.Status == StatusApproved
}

// Editable reports whether content may change; admins override the read-only gate.
func (d *Document) Editable(admin bool) bool { return admin || !d.IsNearlyApproved() }

// StatusChange is a compare-and-swap write of a document's status.
type StatusChange struct {
	ID      string
	From    Status
	To      Status
	Version int64
}
