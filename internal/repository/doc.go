// Package repository implements the roster store for the Muster API.
//
// Rosters live in process memory for the lifetime of the server. The store
// is the only place roster state is mutated and it owns the locking: every
// roster has its own mutex, so operations on different rosters never wait on
// each other.
//
// # Mutation Pattern
//
// WithRoster is the single mutation entry point. The callback receives a
// private copy of the roster; the copy is committed only when the callback
// returns nil and the roster invariants still hold:
//
//	err := repo.WithRoster(ctx, id, func(r *model.Roster) error {
//	    if r.Closed {
//	        return ErrRosterClosed
//	    }
//	    r.Participants = append(r.Participants, member)
//	    return nil
//	})
//
// # Reads
//
// Get and List return deep copies taken under the roster lock, so callers
// only ever see complete transitions.
package repository
