// Package jobs implements background job processing for the Muster API.
//
// Jobs run on their own goroutine, independently of HTTP request handling,
// and expose Start, Stop, RunOnce and IsRunning:
//
//	sweeper := jobs.NewRosterSweeper(rosterService, model.RetentionPolicy{
//	    ClosedRetention: 24 * time.Hour,
//	}, 10*time.Minute)
//	sweeper.Start()
//	defer sweeper.Stop()
//
// # Error Handling
//
// Jobs log errors but don't crash the application. A failed run is simply
// retried on the next tick.
package jobs
