package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/forgo/muster/internal/i18n"
	"github.com/forgo/muster/internal/middleware"
	"github.com/forgo/muster/internal/model"
)

// RosterService is the roster core as seen by the gateway
type RosterService interface {
	CreateRoster(ctx context.Context, owner model.Member, req *model.CreateRosterRequest) (*model.RosterView, error)
	GetRoster(ctx context.Context, rosterID string) (*model.RosterView, error)
	ListRosters(ctx context.Context) ([]*model.RosterView, error)
	Apply(ctx context.Context, action model.Action) (*model.ActionResult, error)
	DeleteRoster(ctx context.Context, rosterID string, requester model.Member) error
}

// ActionResponse is the body of an accepted join, leave or close
type ActionResponse struct {
	Action   model.ActionKind    `json:"action"`
	Result   model.ActionOutcome `json:"result"`
	Message  string              `json:"message"`
	Promoted *model.Member       `json:"promoted,omitempty"`
	Roster   *model.RosterView   `json:"roster"`
}

// RosterHandler handles roster HTTP requests
type RosterHandler struct {
	svc  RosterService
	page *RosterPage
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(svc RosterService) *RosterHandler {
	return &RosterHandler{svc: svc, page: NewRosterPage()}
}

// Create handles POST /v1/rosters - open a new roster owned by the caller
func (h *RosterHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner, ok := middleware.GetMember(ctx)
	if !ok {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	var req model.CreateRosterRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	view, err := h.svc.CreateRoster(ctx, owner, &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/rosters/"+view.ID)
	WriteData(w, http.StatusCreated, view)
}

// List handles GET /v1/rosters
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListRosters(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	WriteData(w, http.StatusOK, views)
}

// Get handles GET /v1/rosters/{rosterId}. Browsers asking for text/html get
// the rendered roster card.
func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	rosterID := r.PathValue("rosterId")
	if rosterID == "" {
		WriteError(w, model.NewBadRequestError("roster ID required"))
		return
	}

	view, err := h.svc.GetRoster(r.Context(), rosterID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if wantsHTML(r) {
		doc, err := h.page.Render(view, middleware.GetLanguage(r.Context()))
		if err != nil {
			WriteError(w, model.NewInternalError("failed to render roster"))
			return
		}
		WriteHTML(w, http.StatusOK, doc)
		return
	}

	WriteData(w, http.StatusOK, view)
}

// Join handles POST /v1/rosters/{rosterId}/join
func (h *RosterHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, model.ActionJoin)
}

// Leave handles POST /v1/rosters/{rosterId}/leave
func (h *RosterHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, model.ActionLeave)
}

// Close handles POST /v1/rosters/{rosterId}/close
func (h *RosterHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, model.ActionClose)
}

// Delete handles DELETE /v1/rosters/{rosterId} - owner removes the roster
func (h *RosterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	member, ok := middleware.GetMember(ctx)
	if !ok {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	rosterID := r.PathValue("rosterId")
	if rosterID == "" {
		WriteError(w, model.NewBadRequestError("roster ID required"))
		return
	}

	if err := h.svc.DeleteRoster(ctx, rosterID, member); err != nil {
		h.handleError(w, r, err)
		return
	}

	WriteNoContent(w)
}

func (h *RosterHandler) apply(w http.ResponseWriter, r *http.Request, kind model.ActionKind) {
	ctx := r.Context()
	member, ok := middleware.GetMember(ctx)
	if !ok {
		WriteError(w, model.NewUnauthorizedError("authentication required"))
		return
	}

	rosterID := r.PathValue("rosterId")
	if rosterID == "" {
		WriteError(w, model.NewBadRequestError("roster ID required"))
		return
	}

	result, err := h.svc.Apply(ctx, model.Action{Kind: kind, RosterID: rosterID, Member: member})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	printer := i18n.Printer(middleware.GetLanguage(ctx))
	WriteData(w, http.StatusOK, ActionResponse{
		Action:   result.Action,
		Result:   result.Outcome,
		Message:  printer.Sprintf(i18n.OutcomeKey(result.Outcome), result.Roster.Name),
		Promoted: result.Promoted,
		Roster:   result.Roster,
	})
}

func (h *RosterHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, MapServiceError(err, middleware.GetLanguage(r.Context())))
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}
