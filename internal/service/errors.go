package service

import "errors"

// Centralized service layer errors.
// All errors returned by service methods are defined here for consistency
// and to make error handling in handlers predictable.

// ===== Roster Errors =====
var (
	ErrRosterNotFound  = errors.New("roster not found")
	ErrInvalidCapacity = errors.New("capacity must be a positive integer")
	ErrRosterClosed    = errors.New("roster is closed")
	ErrNotOwner        = errors.New("only the roster owner can do this")
)

// ===== Action Errors =====
var (
	ErrAlreadyJoined     = errors.New("already participating")
	ErrAlreadyWaitlisted = errors.New("already on the waitlist")
	ErrNotParticipating  = errors.New("not on this roster")
	ErrUnknownAction     = errors.New("unknown roster action")
)

// ===== Validation Errors =====
var (
	ErrValidation = errors.New("validation failed")
)
