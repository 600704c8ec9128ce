package mcp

import (
	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/workflow"
)

// Tool names.
const (
	ToolAttemptTransition    = "attempt_transition"
	ToolAvailableTransitions = "available_transitions"
	ToolResolveAudience      = "resolve_audience"
	ToolDescribeWorkflow     = "describe_workflow"
	ToolCreateProject        = "create_project"
	ToolGetProject           = "get_project"
	ToolListProjects         = "list_projects"
	ToolUpdateProject        = "update_project"
	ToolAddMember            = "add_member"
	ToolRemoveMember         = "remove_member"
	ToolGetDocument          = "get_document"
	ToolUpdateDocument       = "update_document"
	ToolSetEndorsement       = "set_endorsement"
	ToolCreateAnnualReport   = "create_annual_report"
	ToolListAnnualReports    = "list_annual_reports"
	ToolGetRecentActivity    = "get_recent_activity"
)

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func enumProp(description string, values []string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

func names[S ~string](values []S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

var entityNames = []string{string(workflow.EntityProject), string(workflow.EntityDocument)}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Workflow
		{
			Name:        ToolAttemptTransition,
			Description: "Invoke a named transition on a project or document. Cascades run in the same transaction; either everything changes or nothing does.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entity":           enumProp("Entity type", entityNames),
					"id":               stringProp("Entity ID"),
					"transition":       stringProp("Transition name, e.g. seek_review, approve, reset"),
					"expected_version": intProp("Version the caller last read; a mismatch fails with CONFLICT"),
				},
				"required": []string{"entity", "id", "transition"},
			},
		},
		{
			Name:        ToolAvailableTransitions,
			Description: "List the transitions the caller may invoke on an entity from its current status",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entity": enumProp("Entity type", entityNames),
					"id":     stringProp("Entity ID"),
				},
				"required": []string{"entity", "id"},
			},
		},
		{
			Name:        ToolResolveAudience,
			Description: "Compute who would be notified when an entity enters a status, excluding the caller",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entity": enumProp("Entity type", entityNames),
					"id":     stringProp("Entity ID"),
					"status": stringProp("Target status"),
				},
				"required": []string{"entity", "id", "status"},
			},
		},
		{
			Name:        ToolDescribeWorkflow,
			Description: "List the declared transitions of a project or document kind",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"entity": enumProp("Entity type", entityNames),
					"kind":   stringProp("Project kind or document kind"),
				},
				"required": []string{"entity", "kind"},
			},
		},

		// Projects
		{
			Name:        ToolCreateProject,
			Description: "Create a project. Science and core function projects start with a concept plan; collaboration and student projects start active.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"kind":              enumProp("Project kind", names(project.Kinds)),
					"year":              intProp("Project year"),
					"title":             stringProp("Project title"),
					"data_custodian_id": stringProp("Data custodian user ID (defaults to the caller)"),
					"site_custodian_id": stringProp("Site custodian user ID (defaults to the caller)"),
				},
				"required": []string{"kind", "year", "title"},
			},
		},
		{
			Name:        ToolGetProject,
			Description: "Get a project with its team and current documents",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": stringProp("Project ID"),
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        ToolListProjects,
			Description: "List projects, newest first, optionally filtered by status, kind and year",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"statuses": map[string]any{
						"type":        "array",
						"description": "Filter by project statuses",
						"items":       map[string]any{"type": "string", "enum": names(project.Statuses)},
					},
					"kinds": map[string]any{
						"type":        "array",
						"description": "Filter by project kinds",
						"items":       map[string]any{"type": "string", "enum": names(project.Kinds)},
					},
					"year":   intProp("Filter by project year"),
					"limit":  intProp("Maximum number of results"),
					"offset": intProp("Offset for pagination"),
				},
			},
		},
		{
			Name:        ToolUpdateProject,
			Description: "Edit a project's title and custodians. Status is only changed through attempt_transition.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":                stringProp("Project ID"),
					"title":             stringProp("New title"),
					"data_custodian_id": stringProp("Data custodian user ID"),
					"site_custodian_id": stringProp("Site custodian user ID"),
					"expected_version":  intProp("Version the caller last read"),
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        ToolAddMember,
			Description: "Add a user to a project team",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": stringProp("Project ID"),
					"user_id":    stringProp("User ID"),
					"role":       enumProp("Team role", names(project.MemberRoles)),
					"time_allocation": map[string]any{
						"type":        "number",
						"description": "Time allocation in FTE, 0 to 1",
					},
				},
				"required": []string{"project_id", "user_id", "role"},
			},
		},
		{
			Name:        ToolRemoveMember,
			Description: "Remove a user from a project team",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": stringProp("Project ID"),
					"user_id":    stringProp("User ID"),
				},
				"required": []string{"project_id", "user_id"},
			},
		},

		// Documents
		{
			Name:        ToolGetDocument,
			Description: "Get a document with its fields, status and endorsements",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": stringProp("Document ID"),
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        ToolUpdateDocument,
			Description: "Merge narrative fields into a document. Empty values remove a field. Documents in approval are read-only.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": stringProp("Document ID"),
					"fields": map[string]any{
						"type":                 "object",
						"description":          "Field values keyed by field name",
						"additionalProperties": map[string]any{"type": "string"},
					},
					"expected_version": intProp("Version the caller last read"),
				},
				"required": []string{"id", "fields"},
			},
		},
		{
			Name:        ToolSetEndorsement,
			Description: "Record an endorser's decision on a project plan endorsement slot",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   stringProp("Project plan document ID"),
					"slot": enumProp("Endorsement slot", names(document.Slots)),
					"value": enumProp("Endorsement value", []string{
						string(document.EndorsementRequired),
						string(document.EndorsementDenied),
						string(document.EndorsementGranted),
					}),
					"expected_version": intProp("Version the caller last read"),
				},
				"required": []string{"id", "slot", "value"},
			},
		},

		// Annual reports
		{
			Name:        ToolCreateAnnualReport,
			Description: "Open the annual report for a year and request updates from every eligible project",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"year": intProp("Report year"),
				},
				"required": []string{"year"},
			},
		},
		{
			Name:        ToolListAnnualReports,
			Description: "List annual reports, newest year first",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},

		// Activity
		{
			Name:        ToolGetRecentActivity,
			Description: "Get recent activity entries, newest first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id":  stringProp("Project ID to filter by"),
					"entity_type": enumProp("Entity type to filter by", []string{activity.EntityProject, activity.EntityDocument, activity.EntityAnnualReport}),
					"entity_id":   stringProp("Entity ID to filter by"),
					"actor_id":    stringProp("User ID of the actor to filter by"),
					"type":        stringProp("Activity type to filter by"),
					"limit":       intProp("Maximum number of activity entries"),
					"offset":      intProp("Offset for pagination"),
				},
			},
		},
	}
}
