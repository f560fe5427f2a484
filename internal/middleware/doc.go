// Package middleware provides HTTP middleware for the Muster API.
//
// Middleware is composed with Chain, outermost first:
//
//	handler := middleware.Chain(mux,
//	    middleware.RequestID,
//	    middleware.Logger,
//	    middleware.Recovery,
//	    middleware.CORS(origins),
//	    middleware.Language,
//	    middleware.RateLimit(limiter),
//	    middleware.Idempotency(store),
//	    middleware.Compress,
//	)
//
// Auth and OptionalAuth are applied per route. After authentication,
// handlers read the caller with GetMember or GetUserID, and the negotiated
// language with GetLanguage.
//
// Idempotency only applies to POST and DELETE requests carrying an
// Idempotency-Key header. Server errors are never replayed.
package middleware
