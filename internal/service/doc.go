// Package service implements the roster business logic for the Muster API.
//
// RosterService applies join, leave and close actions through the roster
// store, then publishes the new view and any promotion outside the roster
// lock. RosterHub fans those views out to event-stream subscribers, and
// PromotionDispatcher delivers promotion e-mails from a bounded queue.
//
// # Repository Interfaces
//
// The service defines the store interface it needs (RosterStore), so tests
// can substitute their own.
//
// # Error Handling
//
// Services return domain-specific errors defined as package-level variables:
//
//	var (
//	    ErrRosterNotFound = errors.New("roster not found")
//	    ErrRosterClosed   = errors.New("roster is closed")
//	)
//
// # Example Usage
//
//	svc := NewRosterService(RosterServiceConfig{
//	    Store:    repository.NewRosterRepository(),
//	    Sink:     hub,
//	    Notifier: MultiNotifier{NewHubNotifier(hub), dispatcher},
//	})
//	result, err := svc.Join(ctx, rosterID, member)
package service
