// Package repository implements the MySQL persistence layer: the
// booking store interfaces plus the auth and merchant-configuration
// repositories.  Sentinel errors defined here let handlers
// distinguish failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// conflicting state, such as creating a branch or table whose label
// already exists for the owner. Handlers should translate this into
// an HTTP 409 response.
var ErrConflict = errors.New("conflict")
