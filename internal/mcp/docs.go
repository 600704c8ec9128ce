package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `sciflow runs the approval workflow of a research program: projects move through
planning, execution and closure, driven by the approval of their documents.

Core concepts:
- Project: kinds science, core_function, collaboration, student. Identified by code, e.g. "SP 2026-001".
- Document: concept_plan, project_plan, progress_report, project_closure, student_report.
  Every document moves new -> inreview -> inapproval -> approved.
- Cascade: approving a document advances its project and opens the next document, atomically.
- Endorsement: a project plan needs methodology (and, when plants or animals are involved,
  herbarium and animal ethics) sign-off before it can be approved.

Rules of engagement:
1) Orient: get_project returns the team and current documents; get_recent_activity shows what changed.
2) Ask before acting: available_transitions lists what you may do now.
3) Act: attempt_transition with the version you last read as expected_version.
   - CONFLICT means someone else changed the entity: re-read and retry.
   - GUARD_NOT_SATISFIED names the missing precondition (e.g. methodology_granted).
   - CASCADE_FAILURE means nothing changed.
4) Edit narrative with update_document while a document is new or inreview.

Docs:
- sciflow://docs/index
- sciflow://docs/lifecycles
- sciflow://docs/errors
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "sciflow://docs/index",
		Name:        "docs_index",
		Title:       "sciflow docs index",
		Description: "Entry point for agent-facing docs.",
		Content: `# sciflow: Agent Docs Index

- sciflow://docs/lifecycles: project and document states, and what approving each document does.
- sciflow://docs/errors: error codes and how to recover.

Use describe_workflow to list the exact transitions of any project or document kind.
`,
	},
	{
		URI:         "sciflow://docs/lifecycles",
		Name:        "docs_lifecycles",
		Title:       "Project and document lifecycles",
		Description: "States, transitions and cascades.",
		Content: `# Lifecycles

## Documents

| Transition | From | To | Who |
|---|---|---|---|
| seek_review | new | inreview | team |
| recall | inreview | new | team |
| request_revision_from_authors | inreview | new | reviewers |
| seek_approval | inreview | inapproval | reviewers |
| request_reviewer_revision | inapproval | inreview | approvers |
| request_author_revision | inapproval | new | approvers |
| approve | inapproval | approved | approvers |
| reset | approved | new | approvers |

Admins may invoke every transition.

A project plan can only enter approval once methodology is granted, and only be
approved once every required endorsement is granted.

## Projects

Science: new -> pending (concept plan approved) -> active (project plan approved)
-> updating (annual report) -> active (progress report approved)
-> closure_requested -> closing (closure approved) -> final_update -> completed.

Collaboration and student projects start active. Admins may terminate, suspend,
reactivate and force closure.
`,
	},
	{
		URI:         "sciflow://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "Stable error codes returned by tools.",
		Content: `# Error codes

- INVALID_TRANSITION: not allowed from the current status. Call available_transitions.
- GUARD_NOT_SATISFIED: details.guard names the precondition.
- PERMISSION_DENIED: the caller's roles do not allow this.
- CONFLICT: the entity changed since you read it. Re-read and retry.
- CASCADE_FAILURE: a dependent step failed; nothing was changed.
- NOT_FOUND, READ_ONLY, INVALID_INPUT, ALREADY_EXISTS, BUSY.
`,
	},
}

const docMIMEType = "text/markdown"

func findDoc(uri string) (docResource, bool) {
	for _, doc := range docResources {
		if doc.URI == uri {
			return doc, true
		}
	}
	return docResource{}, false
}

func listDocs() ResourcesListResult {
	out := ResourcesListResult{Resources: make([]ResourceDefinition, 0, len(docResources))}
	for _, doc := range docResources {
		out.Resources = append(out.Resources, ResourceDefinition{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    docMIMEType,
			Size:        int64(len(doc.Content)),
		})
	}
	return out
}

func readDoc(uri string) (ResourceReadResult, error) {
	doc, ok := findDoc(uri)
	if !ok {
		return ResourceReadResult{}, &APIError{
			Code:    CodeNotFound,
			Message: fmt.Sprintf("no resource %q", uri),
		}
	}
	return ResourceReadResult{Contents: []ResourceContent{{
		URI:      doc.URI,
		MIMEType: docMIMEType,
		Text:     doc.Content,
	}}}, nil
}

func registerDocResources(server *sdkmcp.Server) {
	for _, def := range listDocs().Resources {
		doc, _ := findDoc(def.URI)
		server.AddResource(&sdkmcp.Resource{
			URI:         def.URI,
			Name:        def.Name,
			Title:       def.Title,
			Description: def.Description,
			MIMEType:    def.MIMEType,
			Size:        def.Size,
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: docMIMEType,
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
