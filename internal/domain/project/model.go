package project

import (
	"fmt"
	"slices"
	"time"
)

// Kind tags the project variant. The workflow graph differs per kind.
type Kind string

const (
	KindScience       Kind = "science"
	KindCoreFunction  Kind = "core_function"
	KindCollaboration Kind = "collaboration"
	KindStudent       Kind = "student"
)

// Kinds lists every project kind.
var Kinds = []Kind{KindScience, KindCoreFunction, KindCollaboration, KindStudent}

// Valid reports whether k is a declared kind.
func (k Kind) Valid() bool { return slices.Contains(Kinds, k) }

// Code is the short prefix used in human readable project numbers.
func (k Kind) Code() string {
	switch k {
	case KindScience:
		return "SP"
	case KindCoreFunction:
		return "CF"
	case KindCollaboration:
		return "EXT"
	case KindStudent:
		return "STP"
	}
	return "P"
}

// ReportsAnnually reports whether annual reporting requests updates from this kind.
func (k Kind) ReportsAnnually() bool { return k != KindCollaboration }

// Status is a project lifecycle state.
type Status string

const (
	StatusNew              Status = "new"
	StatusPending          Status = "pending"
	StatusActive           Status = "active"
	StatusUpdating         Status = "updating"
	StatusClosureRequested Status = "closure_requested"
	StatusClosing          Status = "closing"
	StatusFinalUpdate      Status = "final_update"
	StatusCompleted        Status = "completed"
	StatusTerminated       Status = "terminated"
	StatusSuspended        Status = "suspended"
)

// Statuses lists every project status in lifecycle order.
var Statuses = []Status{
	StatusNew,
	StatusPending,
	StatusActive,
	StatusUpdating,
	StatusClosureRequested,
	StatusClosing,
	StatusFinalUpdate,
	StatusCompleted,
	StatusTerminated,
	StatusSuspended,
}

// MemberRole is the role a user plays on a project team.
type MemberRole string

const (
	RoleSupervisingScientist MemberRole = "supervising_scientist"
	RoleResearchScientist    MemberRole = "research_scientist"
	RoleTechnicalOfficer     MemberRole = "technical_officer"
	RoleExternalCollaborator MemberRole = "external_collaborator"
	RoleAcademicSupervisor   MemberRole = "academic_supervisor"
	RoleSupervisedStudent    MemberRole = "supervised_student"
	RoleConsultedPeer        MemberRole = "consulted_peer"
	RoleGroup                MemberRole = "group"
)

// MemberRoles lists every team role.
var MemberRoles = []MemberRole{
	RoleSupervisingScientist,
	RoleResearchScientist,
	RoleTechnicalOfficer,
	RoleExternalCollaborator,
	RoleAcademicSupervisor,
	RoleSupervisedStudent,
	RoleConsultedPeer,
	RoleGroup,
}

// Valid reports whether r is a declared team role.
func (r MemberRole) Valid() bool { return slices.Contains(MemberRoles, r) }

// Member is one (user, role, time allocation) entry of a project team.
type Member struct {
	ProjectID      string     `json:"project_id"`
	UserID         string     `json:"user_id"`
	Role           MemberRole `json:"role"`
	TimeAllocation float64    `json:"time_allocation"`
	Position       int        `json:"position"`
}

// Documents caches the current document of each subtype.
type Documents struct {
	ConceptPlanID    string `json:"concept_plan_id,omitempty"`
	ProjectPlanID    string `json:"project_plan_id,omitempty"`
	ProgressReportID string `json:"progress_report_id,omitempty"`
	ClosureID        string `json:"closure_id,omitempty"`
	StudentReportID  string `json:"student_report_id,omitempty"`
}

// Project is one research endeavour and the owner of its documents.
type Project struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	Year            int       `json:"year"`
	Number          int       `json:"number"`
	Title           string    `json:"title"`
	Status          Status    `json:"status"`
	OwnerID         string    `json:"owner_id"`
	DataCustodianID string    `json:"data_custodian_id,omitempty"`
	SiteCustodianID string    `json:"site_custodian_id,omitempty"`
	Documents       Documents `json:"documents"`
	Members         []Member  `json:"members,omitempty"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	ModifiedAt      time.Time `json:"modified_at"`
}

// Code returns the project's human readable number, e.g. SP 2026-004.
func (p *Project) Code() string {
	return fmt.Sprintf("%s %d-%03d", p.Kind.Code(), p.Year, p.Number)
}

// Submitters returns the team member user IDs in position order.
func (p *Project) Submitters() []string {
	members := slices.Clone(p.Members)
	slices.SortStableFunc(members, func(a, b Member) int { return a.Position - b.Position })
	ids := make([]string, 0, len(members))
	for _, m := range members {
		if !slices.Contains(ids, m.UserID) {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// IsMember reports whether the user is on the project team.
func (p *Project) IsMember(userID string) bool {
	if userID == "" {
		return false
	}
	return slices.ContainsFunc(p.Members, func(m Member) bool { return m.UserID == userID })
}

// Summary is a lightweight representation for listing
type Summary struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Kind       Kind      `json:"kind"`
	Year       int       `json:"year"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Status     Status    `json:"status"`
	OwnerID    string    `json:"owner_id"`
	Version    int64     `json:"version"`
	ModifiedAt time.Time `json:"modified_at"`
}

// StatusChange is a compare-and-swap write of a project's status.
type StatusChange struct {
	ID      string
	From    Status
	To      Status
	Version int64
}

// ListOptions filters project listings.
type ListOptions struct {
	Statuses []Status
	Kinds    []Kind
	Year     int
	Limit    int
	Offset   int
}
