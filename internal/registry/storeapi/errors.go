// Package storeapi holds the typed error kinds shared by the store,
// session, and group components, mirroring the teacher's
// internal/registry/store error types (NotFoundError/ValidationError/
// ConflictError).
package storeapi

import "fmt"

// NotFoundError indicates the resource was not found. Per spec.md §7,
// not-found conditions are normally represented as a nullable result
// rather than an error; this type is used where a missing resource is an
// error for the caller (adding a project to, or removing one from, a group
// that does not exist).
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError indicates a client-side validation failure (spec.md §7):
// invalid scope, group scope without groups, emptying a group-scoped
// memory's groups, empty content, or a limit below 1.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

// ConflictError indicates a uniqueness conflict (e.g. a group name already
// in use).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }
