package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidInput indicates invalid project input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrMemberNotFound indicates the user is not on the project team.
	ErrMemberNotFound = errors.New("project member not found")
	// ErrLastSupervisor indicates the change would leave no supervising scientist.
	ErrLastSupervisor = errors.New("project needs at least one supervising scientist")
	// ErrNotPermitted indicates the actor may not manage the project.
	ErrNotPermitted = errors.New("not permitted to manage project")
)
