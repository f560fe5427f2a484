// Package handler provides the HTTP gateway for Muster rosters.
//
// RosterHandler turns requests into roster actions and renders the
// results; StreamHandler serves roster snapshots and user notifications as
// server-sent events. Errors from the service are mapped to RFC 9457
// Problem Details by MapServiceError, with the detail written in the
// language negotiated by middleware.Language.
//
// Successful responses are wrapped in a data envelope:
//
//	{"data": {"action": "join", "result": "waitlisted", "message": "...", "roster": {...}}}
//
// GET /v1/rosters/{rosterId} with Accept: text/html returns the roster card
// as an HTML page instead of JSON.
package handler
