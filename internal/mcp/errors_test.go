package mcp_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/fsm"
	"github.com/rpggio/sciflow/internal/mcp"
	"github.com/rpggio/sciflow/internal/workflow"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"invalid transition", fmt.Errorf("approve: %w", fsm.ErrInvalidTransition), mcp.CodeInvalidTransition},
		{"permission", &fsm.PermissionError{Transition: "approve", ActorID: "x"}, mcp.CodePermissionDenied},
		{"not permitted", project.ErrNotPermitted, mcp.CodePermissionDenied},
		{"conflict", fmt.Errorf("writing: %w", workflow.ErrConflict), mcp.CodeConflict},
		{"not found", document.ErrDocumentNotFound, mcp.CodeNotFound},
		{"read only", document.ErrReadOnly, mcp.CodeReadOnly},
		{"invalid input", project.ErrInvalidInput, mcp.CodeInvalidInput},
		{"unknown entity", workflow.ErrUnknownEntity, mcp.CodeInvalidInput},
		{"backdated report", fmt.Errorf("%w: 2024", annualreport.ErrYearBackdated), mcp.CodeInvalidInput},
		{"unknown method", mcp.ErrUnknownMethod, mcp.CodeMethodNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := mcp.MapError(tc.err)
			require.NotNil(t, apiErr)
			require.Equal(t, tc.code, apiErr.Code)
		})
	}

	require.Nil(t, mcp.MapError(nil))
	require.Nil(t, mcp.MapError(errors.New("disk on fire")))
}

func TestMapError_GuardDetails(t *testing.T) {
	apiErr := mcp.MapError(&fsm.GuardError{Transition: "seek_approval", Guard: "methodology_granted"})
	require.Equal(t, mcp.CodeGuardNotSatisfied, apiErr.Code)
	require.Equal(t, mcp.GuardDetails{Transition: "seek_approval", Guard: "methodology_granted"}, apiErr.Details)
}

func TestMapError_CascadeHidesCause(t *testing.T) {
	err := &workflow.CascadeError{
		Transition: "approve",
		Err:        &fsm.GuardError{Transition: "request_update", Guard: "secret"},
	}
	apiErr := mcp.MapError(err)
	require.Equal(t, mcp.CodeCascadeFailure, apiErr.Code)
	require.NotContains(t, apiErr.Message, "secret")
	require.Nil(t, apiErr.Details)
}

func TestMapError_ConflictHint(t *testing.T) {
	apiErr := mcp.MapError(workflow.ErrConflict)
	require.Equal(t, "Re-read the entity and retry", apiErr.RecoveryHint)
	require.Equal(t, -32000, apiErr.RPCCode())
	require.Equal(t, -32602, mcp.MapError(project.ErrInvalidInput).RPCCode())
}
