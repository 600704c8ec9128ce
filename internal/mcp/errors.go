package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/internal/fsm"
	"github.com/rpggio/sciflow/internal/repository"
	"github.com/rpggio/sciflow/internal/workflow"
)

// API error codes.
const (
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeGuardNotSatisfied = "GUARD_NOT_SATISFIED"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeConflict          = "CONFLICT"
	CodeCascadeFailure    = "CASCADE_FAILURE"
	CodeNotFound          = "NOT_FOUND"
	CodeReadOnly          = "READ_ONLY"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeAlreadyExists     = "ALREADY_EXISTS"
	CodeBusy              = "BUSY"
	CodeMethodNotFound    = "METHOD_NOT_FOUND"
)

// ErrUnknownMethod is returned for methods and tools the server does not offer.
var ErrUnknownMethod = errors.New("unknown method")

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// RPCCode is the JSON-RPC error code used when the error is not reported
// inside a tool result.
func (e *APIError) RPCCode() int {
	switch e.Code {
	case CodeMethodNotFound:
		return -32601
	case CodeInvalidInput:
		return -32602
	}
	return -32000
}

// GuardDetails names the guard that blocked a transition.
type GuardDetails struct {
	Transition string `json:"transition"`
	Guard      string `json:"guard"`
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	// A cascade failure wraps the cause of the failing step, so it is
	// matched before the step's own error kinds.
	if errors.Is(err, workflow.ErrCascadeFailure) {
		return &APIError{Code: CodeCascadeFailure, Message: err.Error(), RecoveryHint: "Nothing was changed; check related documents and retry"}
	}
	var guard *fsm.GuardError
	if errors.As(err, &guard) {
		return &APIError{
			Code:         CodeGuardNotSatisfied,
			Message:      err.Error(),
			Details:      GuardDetails{Transition: guard.Transition, Guard: guard.Guard},
			RecoveryHint: "Satisfy the named precondition before retrying",
		}
	}

	switch {
	case errors.Is(err, ErrUnknownMethod):
		return &APIError{Code: CodeMethodNotFound, Message: err.Error()}
	case errors.Is(err, fsm.ErrInvalidTransition):
		return &APIError{Code: CodeInvalidTransition, Message: err.Error(), RecoveryHint: "Call available_transitions for the current options"}
	case errors.Is(err, fsm.ErrPermissionDenied),
		errors.Is(err, project.ErrNotPermitted),
		errors.Is(err, document.ErrNotPermitted),
		errors.Is(err, document.ErrNotEndorser),
		errors.Is(err, annualreport.ErrNotPermitted):
		return &APIError{Code: CodePermissionDenied, Message: err.Error()}
	case errors.Is(err, workflow.ErrConflict):
		return &APIError{Code: CodeConflict, Message: "entity was modified concurrently", RecoveryHint: "Re-read the entity and retry"}
	case errors.Is(err, workflow.ErrNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, project.ErrMemberNotFound),
		errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, annualreport.ErrReportNotFound),
		errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: CodeNotFound, Message: err.Error(), RecoveryHint: "Check ID spelling"}
	case errors.Is(err, document.ErrReadOnly):
		return &APIError{Code: CodeReadOnly, Message: err.Error()}
	case errors.Is(err, annualreport.ErrReportExists):
		return &APIError{Code: CodeAlreadyExists, Message: err.Error()}
	case errors.Is(err, annualreport.ErrBusy):
		return &APIError{Code: CodeBusy, Message: err.Error(), RecoveryHint: "Wait for the running fan-out to finish"}
	case errors.Is(err, workflow.ErrUnknownEntity),
		errors.Is(err, workflow.ErrUnknownStatus),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, project.ErrLastSupervisor),
		errors.Is(err, document.ErrInvalidInput),
		errors.Is(err, document.ErrNotEndorsable),
		errors.Is(err, user.ErrInvalidInput),
		errors.Is(err, user.ErrUnknownRole),
		errors.Is(err, annualreport.ErrInvalidInput),
		errors.Is(err, annualreport.ErrYearBackdated),
		errors.Is(err, repository.ErrForeignKeyViolation),
		errors.Is(err, repository.ErrDuplicate):
		return &APIError{Code: CodeInvalidInput, Message: err.Error()}
	default:
		return nil
	}
}

func invalidInput(format string, args ...any) *APIError {
	return &APIError{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}
