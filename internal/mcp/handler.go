package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/sciflow/internal/domain/activity"
	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/workflow"
)

// EngineService defines workflow operations needed by MCP.
type EngineService interface {
	AttemptTransition(ctx context.Context, req workflow.TransitionRequest) (*workflow.Result, error)
	AvailableTransitions(ctx context.Context, entity workflow.Entity, id, actorID string) ([]string, error)
	ResolveAudience(ctx context.Context, entity workflow.Entity, id, target, actorID string) ([]string, error)
	CreateProject(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	DocumentGraph(kind document.Kind) []workflow.TransitionInfo
	ProjectGraph(kind project.Kind) []workflow.TransitionInfo
}

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error)
	UpdateDetails(ctx context.Context, id, actorID string, upd project.DetailsUpdate) (*project.Project, error)
	AddMember(ctx context.Context, req project.AddMemberRequest) (*project.Member, error)
	RemoveMember(ctx context.Context, projectID, userID, actorID string) error
}

// DocumentService defines document operations needed by MCP.
type DocumentService interface {
	Get(ctx context.Context, id string) (*document.Document, error)
	ListByProject(ctx context.Context, projectID string) ([]document.Document, error)
	UpdateFields(ctx context.Context, req document.UpdateRequest) (*document.Document, error)
	SetEndorsement(ctx context.Context, req document.EndorseRequest) (*document.Document, error)
}

// ReportService defines annual report operations needed by MCP.
type ReportService interface {
	Create(ctx context.Context, req annualreport.CreateRequest) (*annualreport.Result, error)
	List(ctx context.Context) ([]annualreport.Report, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Engine    EngineService
	Projects  ProjectService
	Documents DocumentService
	Reports   ReportService
	Activity  ActivityService
}

// Handler dispatches MCP commands.
type Handler struct {
	svc    Services
	logger *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, logger: logger}
}

// Handle serves one JSON-RPC method for actorID. Protocol methods are
// answered directly; tool names may also be called as methods.
func (h *Handler) Handle(ctx context.Context, actorID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}, Resources: &ResourcesCapability{}},
			ServerInfo:      ImplementationInfo{Name: serverName, Version: serverVersion},
			Instructions:    serverInstructions,
		}, nil
	case "ping", "notifications/initialized":
		return struct{}{}, nil
	case "tools/list":
		return ToolsListResult{Tools: buildToolCatalog()}, nil
	case "resources/list":
		return listDocs(), nil
	case "resources/read":
		var req ResourceReadParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return readDoc(req.URI)
	case "tools/call":
		var req ToolCallParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		result, err := h.CallTool(ctx, actorID, req.Name, req.Arguments)
		if errors.Is(err, ErrUnknownMethod) {
			return nil, mapError(err)
		}
		text, isError := h.encodeToolResult(req.Name, result, err)
		return ToolCallResult{
			Content: []ContentItem{{Type: "text", Text: text}},
			IsError: isError,
		}, nil
	default:
		result, err := h.CallTool(ctx, actorID, method, params)
		if err != nil {
			return nil, mapError(err)
		}
		return result, nil
	}
}

// encodeToolResult renders a tool outcome as the JSON text of a tool result.
// Errors are reported in-band with their API code.
func (h *Handler) encodeToolResult(tool string, result any, err error) (string, bool) {
	payload, isError := result, false
	if err != nil {
		isError = true
		apiErr := MapError(err)
		if apiErr == nil {
			h.logger.Error("tool failed", "tool", tool, "error", err)
			apiErr = &APIError{Code: "INTERNAL", Message: "internal error"}
		}
		payload = apiErr
	}
	data, merr := json.Marshal(payload)
	if merr != nil {
		h.logger.Error("encoding tool result", "tool", tool, "error", merr)
		return `{"code":"INTERNAL","message":"internal error"}`, true
	}
	return string(data), isError
}

// CallTool runs one tool for actorID.
func (h *Handler) CallTool(ctx context.Context, actorID, name string, args json.RawMessage) (any, error) {
	switch name {
	case ToolAttemptTransition:
		var req AttemptTransitionParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		entity, err := workflow.ParseEntity(req.Entity)
		if err != nil {
			return nil, err
		}
		if req.ID == "" || req.Transition == "" {
			return nil, invalidInput("id and transition are required")
		}
		return h.svc.Engine.AttemptTransition(ctx, workflow.TransitionRequest{
			Entity:          entity,
			ID:              req.ID,
			Transition:      req.Transition,
			ActorID:         actorID,
			ExpectedVersion: req.ExpectedVersion,
		})
	case ToolAvailableTransitions:
		var req AvailableTransitionsParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		entity, err := workflow.ParseEntity(req.Entity)
		if err != nil {
			return nil, err
		}
		available, err := h.svc.Engine.AvailableTransitions(ctx, entity, req.ID, actorID)
		if err != nil {
			return nil, err
		}
		return AvailableTransitionsResponse{Entity: req.Entity, ID: req.ID, Transitions: available}, nil
	case ToolResolveAudience:
		var req ResolveAudienceParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		entity, err := workflow.ParseEntity(req.Entity)
		if err != nil {
			return nil, err
		}
		audience, err := h.svc.Engine.ResolveAudience(ctx, entity, req.ID, req.Status, actorID)
		if err != nil {
			return nil, err
		}
		return ResolveAudienceResponse{Status: req.Status, Audience: audience}, nil
	case ToolDescribeWorkflow:
		var req DescribeWorkflowParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.describeWorkflow(req)
	case ToolCreateProject:
		var req CreateProjectParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		proj, err := h.svc.Engine.CreateProject(ctx, project.CreateRequest{
			Kind:            project.Kind(req.Kind),
			Year:            req.Year,
			Title:           req.Title,
			ActorID:         actorID,
			DataCustodianID: req.DataCustodianID,
			SiteCustodianID: req.SiteCustodianID,
		})
		if err != nil {
			return nil, err
		}
		return h.projectResponse(ctx, proj)
	case ToolGetProject:
		var req GetProjectParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		proj, err := h.svc.Projects.Get(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return h.projectResponse(ctx, proj)
	case ToolListProjects:
		var req ListProjectsParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		opts := project.ListOptions{Year: req.Year, Limit: req.Limit, Offset: req.Offset}
		for _, s := range req.Statuses {
			opts.Statuses = append(opts.Statuses, project.Status(s))
		}
		for _, k := range req.Kinds {
			opts.Kinds = append(opts.Kinds, project.Kind(k))
		}
		return h.svc.Projects.List(ctx, opts)
	case ToolUpdateProject:
		var req UpdateProjectParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.svc.Projects.UpdateDetails(ctx, req.ID, actorID, project.DetailsUpdate{
			Title:           req.Title,
			DataCustodianID: req.DataCustodianID,
			SiteCustodianID: req.SiteCustodianID,
			ExpectedVersion: req.ExpectedVersion,
		})
	case ToolAddMember:
		var req AddMemberParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.svc.Projects.AddMember(ctx, project.AddMemberRequest{
			ProjectID:      req.ProjectID,
			UserID:         req.UserID,
			Role:           project.MemberRole(req.Role),
			TimeAllocation: req.TimeAllocation,
			ActorID:        actorID,
		})
	case ToolRemoveMember:
		var req RemoveMemberParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		if err := h.svc.Projects.RemoveMember(ctx, req.ProjectID, req.UserID, actorID); err != nil {
			return nil, err
		}
		return StatusResponse{Status: "removed"}, nil
	case ToolGetDocument:
		var req GetDocumentParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.svc.Documents.Get(ctx, req.ID)
	case ToolUpdateDocument:
		var req UpdateDocumentParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.svc.Documents.UpdateFields(ctx, document.UpdateRequest{
			DocumentID:      req.ID,
			ActorID:         actorID,
			Fields:          req.Fields,
			ExpectedVersion: req.ExpectedVersion,
		})
	case ToolSetEndorsement:
		var req SetEndorsementParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.svc.Documents.SetEndorsement(ctx, document.EndorseRequest{
			DocumentID:      req.ID,
			Slot:            document.Slot(req.Slot),
			Value:           document.Endorsement(req.Value),
			ActorID:         actorID,
			ExpectedVersion: req.ExpectedVersion,
		})
	case ToolCreateAnnualReport:
		var req CreateAnnualReportParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		return h.svc.Reports.Create(ctx, annualreport.CreateRequest{Year: req.Year, ActorID: actorID})
	case ToolListAnnualReports:
		return h.svc.Reports.List(ctx)
	case ToolGetRecentActivity:
		var req GetRecentActivityParams
		if err := decodeParams(args, &req); err != nil {
			return nil, err
		}
		opts := activity.ListActivityOptions{
			ProjectID:  req.ProjectID,
			EntityType: req.EntityType,
			EntityID:   req.EntityID,
			ActorID:    req.ActorID,
			Limit:      req.Limit,
			Offset:     req.Offset,
		}
		if req.Type != "" {
			t := activity.ActivityType(req.Type)
			opts.ActivityType = &t
		}
		entries, err := h.svc.Activity.GetRecentActivity(ctx, opts)
		if err != nil {
			return nil, err
		}
		resp := make([]ActivityEntryResponse, 0, len(entries))
		for _, entry := range entries {
			resp = append(resp, ActivityEntryResponse{
				Timestamp:  entry.CreatedAt,
				Type:       entry.ActivityType,
				EntityType: entry.EntityType,
				EntityID:   entry.EntityID,
				ProjectID:  entry.ProjectID,
				ActorID:    entry.ActorID,
				Transition: entry.Transition,
				From:       entry.FromStatus,
				To:         entry.ToStatus,
				Summary:    entry.Summary,
				Details:    entry.Details,
			})
		}
		return resp, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, name)
	}
}

func (h *Handler) describeWorkflow(req DescribeWorkflowParams) (DescribeWorkflowResponse, error) {
	resp := DescribeWorkflowResponse{Entity: req.Entity, Kind: req.Kind}
	entity, err := workflow.ParseEntity(req.Entity)
	if err != nil {
		return resp, err
	}
	switch entity {
	case workflow.EntityDocument:
		kind := document.Kind(req.Kind)
		if !kind.Valid() {
			return resp, invalidInput("unknown document kind %q", req.Kind)
		}
		resp.Transitions = h.svc.Engine.DocumentGraph(kind)
	case workflow.EntityProject:
		kind := project.Kind(req.Kind)
		if !kind.Valid() {
			return resp, invalidInput("unknown project kind %q", req.Kind)
		}
		resp.Transitions = h.svc.Engine.ProjectGraph(kind)
	}
	return resp, nil
}

func (h *Handler) projectResponse(ctx context.Context, proj *project.Project) (ProjectResponse, error) {
	docs, err := h.svc.Documents.ListByProject(ctx, proj.ID)
	if err != nil {
		return ProjectResponse{}, err
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return ProjectResponse{Project: *proj, Code: proj.Code(), DocumentsList: docs}, nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return invalidInput("malformed params: %v", err)
	}
	return nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
