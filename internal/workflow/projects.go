package workflow

import (
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/fsm"
)

// Project transition names.
const (
	ProjEndorse            = "endorse"
	ProjApprove            = "approve"
	ProjActivate           = "activate"
	ProjRequestUpdate      = "request_update"
	ProjCompleteUpdate     = "complete_update"
	ProjRequestClosure     = "request_closure"
	ProjForceClosure       = "force_closure"
	ProjAcceptClosure      = "accept_closure"
	ProjRequestFinalUpdate = "request_final_update"
	ProjComplete           = "complete"
	ProjTerminate          = "terminate"
	ProjSuspend            = "suspend"
	ProjReactivate         = "reactivate"
)

type projectTransition = fsm.Transition[project.Status, *projectRun]

func statuses(s ...project.Status) []project.Status { return s }

// lifecycleTail holds the transitions every project kind shares.
func lifecycleTail(terminable ...project.Status) []projectTransition {
	return []projectTransition{
		{
			Name:       ProjTerminate,
			Source:     terminable,
			Target:     project.StatusTerminated,
			Permission: allow[*projectRun](approvers),
		},
		{
			Name:       ProjSuspend,
			Source:     statuses(project.StatusActive, project.StatusUpdating),
			Target:     project.StatusSuspended,
			Permission: allow[*projectRun](approvers),
		},
		{
			Name:       ProjReactivate,
			Source:     statuses(project.StatusCompleted, project.StatusTerminated, project.StatusSuspended),
			Target:     project.StatusActive,
			Permission: allow[*projectRun](approvers),
		},
	}
}

// scienceGraph is the full lifecycle used by science and core function projects.
func scienceGraph() []projectTransition {
	graph := []projectTransition{
		{
			Name:       ProjEndorse,
			Source:     statuses(project.StatusNew),
			Target:     project.StatusPending,
			Permission: cascadeOnly[*projectRun](),
			Effect:     cascading(ProjEndorse, ensureProjectPlan),
		},
		{
			Name:       ProjApprove,
			Source:     statuses(project.StatusPending),
			Target:     project.StatusActive,
			Permission: cascadeOnly[*projectRun](),
		},
		{
			Name:       ProjRequestUpdate,
			Source:     statuses(project.StatusActive),
			Target:     project.StatusUpdating,
			Permission: allow[*projectRun](approvers),
			Effect:     cascading(ProjRequestUpdate, requestProgressReport),
		},
		{
			Name:       ProjCompleteUpdate,
			Source:     statuses(project.StatusUpdating),
			Target:     project.StatusActive,
			Permission: cascadeOnly[*projectRun](),
		},
		{
			Name:       ProjRequestClosure,
			Source:     statuses(project.StatusActive),
			Target:     project.StatusClosureRequested,
			Permission: allow[*projectRun](submitters, reviewers, approvers),
			Effect:     cascading(ProjRequestClosure, ensureClosure),
		},
		{
			Name:       ProjForceClosure,
			Source:     statuses(project.StatusUpdating),
			Target:     project.StatusClosureRequested,
			Permission: allow[*projectRun](reviewers, approvers),
			Effect:     cascading(ProjForceClosure, forceClosure),
		},
		{
			Name:       ProjAcceptClosure,
			Source:     statuses(project.StatusClosureRequested),
			Target:     project.StatusClosing,
			Permission: cascadeOnly[*projectRun](),
		},
		{
			Name:       ProjRequestFinalUpdate,
			Source:     statuses(project.StatusClosing),
			Target:     project.StatusFinalUpdate,
			Permission: allow[*projectRun](approvers),
			Effect:     cascading(ProjRequestFinalUpdate, requestFinalReport),
		},
		{
			Name:       ProjComplete,
			Source:     statuses(project.StatusFinalUpdate),
			Target:     project.StatusCompleted,
			Permission: cascadeOnly[*projectRun](),
		},
	}
	return append(graph, lifecycleTail(
		project.StatusPending,
		project.StatusActive,
		project.StatusUpdating,
		project.StatusClosureRequested,
		project.StatusClosing,
		project.StatusFinalUpdate,
	)...)
}

func activation() projectTransition {
	return projectTransition{
		Name:       ProjActivate,
		Source:     statuses(project.StatusNew),
		Target:     project.StatusActive,
		Permission: allow[*projectRun](approvers),
	}
}

// collaborationGraph has no approval, update or closure stages.
func collaborationGraph() []projectTransition {
	graph := []projectTransition{
		activation(),
		{
			Name:       ProjComplete,
			Source:     statuses(project.StatusActive),
			Target:     project.StatusCompleted,
			Permission: allow[*projectRun](submitters, approvers),
		},
	}
	return append(graph, lifecycleTail(project.StatusActive, project.StatusUpdating)...)
}

// studentGraph reports annually but has no closure form: force_closure ends
// the project directly.
func studentGraph() []projectTransition {
	graph := []projectTransition{
		activation(),
		{
			Name:       ProjRequestUpdate,
			Source:     statuses(project.StatusActive),
			Target:     project.StatusUpdating,
			Permission: allow[*projectRun](approvers),
			Effect:     cascading(ProjRequestUpdate, requestProgressReport),
		},
		{
			Name:       ProjCompleteUpdate,
			Source:     statuses(project.StatusUpdating),
			Target:     project.StatusActive,
			Permission: cascadeOnly[*projectRun](),
		},
		{
			Name:       ProjForceClosure,
			Source:     statuses(project.StatusUpdating),
			Target:     project.StatusCompleted,
			Permission: allow[*projectRun](reviewers, approvers),
			Effect:     cascading(ProjForceClosure, cancelReport),
		},
		{
			Name:       ProjComplete,
			Source:     statuses(project.StatusActive),
			Target:     project.StatusCompleted,
			Permission: allow[*projectRun](submitters, approvers),
		},
	}
	return append(graph, lifecycleTail(project.StatusActive, project.StatusUpdating)...)
}

// setupStatus is where a freshly created project of kind settles.
func setupStatus(kind project.Kind) project.Status {
	switch kind {
	case project.KindCollaboration, project.KindStudent:
		return project.StatusActive
	}
	return project.StatusNew
}

func newProjectMachine(kind project.Kind) *fsm.Machine[project.Status, *projectRun] {
	var graph []projectTransition
	switch kind {
	case project.KindCollaboration:
		graph = collaborationGraph()
	case project.KindStudent:
		graph = studentGraph()
	default:
		graph = scienceGraph()
	}
	return fsm.New(
		string(kind),
		project.Statuses,
		fsm.Accessors[project.Status, *projectRun]{
			Get: func(p *projectRun) project.Status { return p.proj.Status },
			Set: func(p *projectRun, s project.Status) { p.proj.Status = s },
		},
		graph,
		fsm.WithBeforeEffect[project.Status, *projectRun](beforeProject),
	)
}
