package main

import (
	"net/http"

	"github.com/forgo/muster/internal/handler"
	"github.com/forgo/muster/internal/middleware"
	"github.com/forgo/muster/internal/service"
)

// routerDeps holds everything the HTTP surface needs
type routerDeps struct {
	Tokens         middleware.TokenValidator
	Rosters        *service.RosterService
	Hub            *service.RosterHub
	RateLimiter    *middleware.RateLimiter
	Idempotency    *middleware.IdempotencyStore
	AllowedOrigins []string
}

// newRouter registers every route and wraps the mux in the global
// middleware chain.
func newRouter(deps routerDeps) http.Handler {
	rosterHandler := handler.NewRosterHandler(deps.Rosters)
	streamHandler := handler.NewStreamHandler(deps.Hub, deps.Rosters)

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", handler.Health)

	authMiddleware := middleware.Auth(deps.Tokens)

	// Roster endpoints
	mux.HandleFunc("GET /v1/rosters", rosterHandler.List)
	mux.HandleFunc("GET /v1/rosters/{rosterId}", rosterHandler.Get)
	mux.Handle("POST /v1/rosters", authMiddleware(http.HandlerFunc(rosterHandler.Create)))
	mux.Handle("DELETE /v1/rosters/{rosterId}", authMiddleware(http.HandlerFunc(rosterHandler.Delete)))
	mux.Handle("POST /v1/rosters/{rosterId}/join", authMiddleware(http.HandlerFunc(rosterHandler.Join)))
	mux.Handle("POST /v1/rosters/{rosterId}/leave", authMiddleware(http.HandlerFunc(rosterHandler.Leave)))
	mux.Handle("POST /v1/rosters/{rosterId}/close", authMiddleware(http.HandlerFunc(rosterHandler.Close)))

	// SSE endpoints
	mux.HandleFunc("GET /v1/rosters/{rosterId}/stream", streamHandler.Roster)
	mux.Handle("GET /v1/me/stream", authMiddleware(http.HandlerFunc(streamHandler.Me)))

	// Apply global middleware
	return middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(deps.AllowedOrigins),
		middleware.Language,
		middleware.RateLimit(deps.RateLimiter),
		middleware.Idempotency(deps.Idempotency),
		middleware.Compress,
	)
}
