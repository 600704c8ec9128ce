package mcp

import (
	"time"

	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/workflow"
)

// Workflow params.

type AttemptTransitionParams struct {
	Entity          string `json:"entity"`
	ID              string `json:"id"`
	Transition      string `json:"transition"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type AvailableTransitionsParams struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

type AvailableTransitionsResponse struct {
	Entity      string   `json:"entity"`
	ID          string   `json:"id"`
	Transitions []string `json:"transitions"`
}

type ResolveAudienceParams struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ResolveAudienceResponse struct {
	Status   string   `json:"status"`
	Audience []string `json:"audience"`
}

type DescribeWorkflowParams struct {
	Entity string `json:"entity"`
	Kind   string `json:"kind"`
}

type DescribeWorkflowResponse struct {
	Entity      string                    `json:"entity"`
	Kind        string                    `json:"kind"`
	Transitions []workflow.TransitionInfo `json:"transitions"`
}

// Project params.

type CreateProjectParams struct {
	Kind            string `json:"kind"`
	Year            int    `json:"year"`
	Title           string `json:"title"`
	DataCustodianID string `json:"data_custodian_id,omitempty"`
	SiteCustodianID string `json:"site_custodian_id,omitempty"`
}

type GetProjectParams struct {
	ID string `json:"id"`
}

type ListProjectsParams struct {
	Statuses []string `json:"statuses,omitempty"`
	Kinds    []string `json:"kinds,omitempty"`
	Year     int      `json:"year,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

type UpdateProjectParams struct {
	ID              string `json:"id"`
	Title           string `json:"title,omitempty"`
	DataCustodianID string `json:"data_custodian_id,omitempty"`
	SiteCustodianID string `json:"site_custodian_id,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

type AddMemberParams struct {
	ProjectID      string  `json:"project_id"`
	UserID         string  `json:"user_id"`
	Role           string  `json:"role"`
	TimeAllocation float64 `json:"time_allocation,omitempty"`
}

type RemoveMemberParams struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
}

// ProjectResponse is a project with its code and current documents.
type ProjectResponse struct {
	project.Project
	Code          string              `json:"code"`
	DocumentsList []document.Document `json:"document_list"`
}

// Document params.

type GetDocumentParams struct {
	ID string `json:"id"`
}

type UpdateDocumentParams struct {
	ID              string            `json:"id"`
	Fields          map[string]string `json:"fields"`
	ExpectedVersion *int64            `json:"expected_version,omitempty"`
}

type SetEndorsementParams struct {
	ID              string `json:"id"`
	Slot            string `json:"slot"`
	Value           string `json:"value"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// Annual report params.

type CreateAnnualReportParams struct {
	Year int `json:"year"`
}

// Activity params.

type GetRecentActivityParams struct {
	ProjectID  string `json:"project_id,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	Type       string `json:"type,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

type ActivityEntryResponse struct {
	Timestamp  time.Time             `json:"timestamp"`
	Type       activity.ActivityType `json:"type"`
	EntityType string                `json:"entity_type"`
	EntityID   string                `json:"entity_id"`
	ProjectID  string                `json:"project_id,omitempty"`
	ActorID    string                `json:"actor_id,omitempty"`
	Transition string                `json:"transition,omitempty"`
	From       string                `json:"from,omitempty"`
	To         string                `json:"to,omitempty"`
	Summary    string                `json:"summary"`
	Details    string                `json:"details,omitempty"`
}

// StatusResponse acknowledges an operation without a payload.
type StatusResponse struct {
	Status string `json:"status"`
}
