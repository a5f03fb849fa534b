// Package repository holds the raw SQL data access layer. Sentinel
// errors defined here let handlers map failures to HTTP statuses
// without inspecting driver errors.
package repository

import "errors"

// ErrForbidden is returned when the caller operates on a resource
// owned by someone else. Handlers translate it to HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when state prevents the operation, such as
// an order status transition that skips the workflow. HTTP 409.
var ErrConflict = errors.New("conflict")
