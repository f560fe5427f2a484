package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/forgo/muster/internal/middleware"
	"github.com/forgo/muster/internal/model"
	"github.com/forgo/muster/internal/service"
)

// RosterGetter loads the snapshot sent when a stream opens
type RosterGetter interface {
	GetRoster(ctx context.Context, rosterID string) (*model.RosterView, error)
}

// StreamHandler handles SSE event streaming
type StreamHandler struct {
	hub     *service.RosterHub
	rosters RosterGetter
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(hub *service.RosterHub, rosters RosterGetter) *StreamHandler {
	return &StreamHandler{hub: hub, rosters: rosters}
}

// Roster handles GET /v1/rosters/{rosterId}/stream.
// The current snapshot is sent first, then every change to the roster.
func (h *StreamHandler) Roster(w http.ResponseWriter, r *http.Request) {
	rosterID := r.PathValue("rosterId")
	if rosterID == "" {
		WriteError(w, model.NewBadRequestError("roster ID required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, model.NewInternalError("streaming not supported"))
		return
	}

	// Subscribe before loading the snapshot so no change slips in between
	subscriberID := uuid.NewString()
	sub := h.hub.Subscribe(rosterID, subscriberID)
	defer h.hub.Unsubscribe(rosterID, subscriberID)

	view, err := h.rosters.GetRoster(r.Context(), rosterID)
	if err != nil {
		WriteError(w, MapServiceError(err, middleware.GetLanguage(r.Context())))
		return
	}

	startStream(w, subscriberID)
	initial := &service.Event{Type: service.EventRosterUpdated, RosterID: rosterID, Data: view}
	if view.Closed {
		initial.Type = service.EventRosterClosed
	}
	fmt.Fprint(w, initial.Format())
	flusher.Flush()

	stream(w, flusher, r, sub, view.Version)
}

// Me handles GET /v1/me/stream - notifications for the authenticated user
func (h *StreamHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, model.NewInternalError("streaming not supported"))
		return
	}

	subscriberID := uuid.NewString()
	sub := h.hub.SubscribeUser(userID, subscriberID)
	defer h.hub.UnsubscribeUser(userID, subscriberID)

	startStream(w, subscriberID)
	flusher.Flush()

	stream(w, flusher, r, sub, 0)
}

func startStream(w http.ResponseWriter, subscriberID string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	fmt.Fprintf(w, "event: connected\ndata: {\"subscriber_id\":\"%s\"}\n\n", subscriberID)
}

// stream copies hub events to the client. Snapshots not newer than the
// last one written are skipped.
func stream(w http.ResponseWriter, flusher http.Flusher, r *http.Request, sub *service.Subscriber, sent uint64) {
	for {
		select {
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			if view, isView := event.Data.(*model.RosterView); isView && view.Version != 0 {
				if view.Version <= sent {
					continue
				}
				sent = view.Version
			}
			fmt.Fprint(w, event.Format())
			flusher.Flush()
			if event.Type == service.EventRosterRemoved {
				return
			}

		case <-sub.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}
