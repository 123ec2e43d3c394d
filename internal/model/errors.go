package model

import "errors"

var (
	// ErrNameRequired is returned when a workspace creation request is missing the name.
	ErrNameRequired = errors.New("workspace name is required")

	// ErrOwnerRequired is returned when a workspace creation request is missing the owner.
	ErrOwnerRequired = errors.New("workspace owner is required")

	// ErrWorkspaceNotFound is returned when a workspace is not found.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrNotMember is returned when a user is not a member of a workspace.
	ErrNotMember = errors.New("user is not a workspace member")

	// ErrPermissionDenied is returned when a user's role does not allow an operation.
	ErrPermissionDenied = errors.New("permission denied")
)
