// Package model defines domain entities and data structures for the Muster API.
//
// # Domain Entities
//
//   - Roster: a named event with a fixed number of slots, an owner,
//     an ordered participant list and a FIFO waitlist
//   - Member: a user identity as seen by a roster
//   - RosterView: the read model sent to clients, with a derived Status
//   - Action and ActionResult: one join, leave or close and its outcome
//
// # Invariants
//
// Roster.CheckInvariants reports the first broken rule: participants never
// exceed capacity, nobody appears twice, and a waitlist only exists while
// the roster is full.
//
// # Validation Constants
//
//	const (
//	    MaxRosterNameLength = 100
//	    MaxRosterDateLength = 50
//	    MaxRosterTimeLength = 50
//	)
//
// # Error Types
//
// RFC 9457 Problem Details errors are defined in errors.go:
//
//	type ProblemDetails struct {
//	    Type    string    `json:"type"`
//	    Title   string    `json:"title"`
//	    Status  int       `json:"status"`
//	    Detail  string    `json:"detail"`
//	}
package model
