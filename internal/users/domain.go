// Package users manages user-role assignments. Roles stay shared catalog
// objects; this package only maintains the association rows.
package users

import "errors"

// Assignment errors.
var (
	// ErrAlreadyAssigned indicates the user already holds an active
	// assignment for this role.
	ErrAlreadyAssigned = errors.New("role already assigned to user")
	// ErrAssignmentNotFound indicates no active assignment matches.
	ErrAssignmentNotFound = errors.New("role assignment not found")
)
