package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeProjectCreated      ActivityType = "project_created"
	TypeProjectUpdated      ActivityType = "project_updated"
	TypeProjectTransition   ActivityType = "project_transition"
	TypeProjectForced       ActivityType = "project_forced"
	TypeMemberAdded         ActivityType = "member_added"
	TypeMemberRemoved       ActivityType = "member_removed"
	TypeDocumentCreated     ActivityType = "document_created"
	TypeDocumentUpdated     ActivityType = "document_updated"
	TypeDocumentTransition  ActivityType = "document_transition"
	TypeDocumentForced      ActivityType = "document_forced"
	TypeDocumentDeleted     ActivityType = "document_deleted"
	TypeEndorsementSet      ActivityType = "endorsement_set"
	TypeAnnualReportCreated ActivityType = "annual_report_created"
)

// Entity types recorded in the log.
const (
	EntityProject      = "project"
	EntityDocument     = "document"
	EntityAnnualReport = "annual_report"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	EntityType   string       `json:"entity_type"`
	EntityID     string       `json:"entity_id"`
	ProjectID    string       `json:"project_id,omitempty"`
	ActorID      string       `json:"actor_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Transition   string       `json:"transition,omitempty"`
	FromStatus   string       `json:"from_status,omitempty"`
	ToStatus     string       `json:"to_status,omitempty"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}

// ListActivityOptions provides filtering options for listing activity.
type ListActivityOptions struct {
	ProjectID    string
	EntityType   string
	EntityID     string
	ActorID      string
	ActivityType *ActivityType
	Limit        int
	Offset       int
}
