package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/forgo/muster/internal/model"
	"github.com/forgo/muster/internal/repository"
)

var tracer = otel.Tracer("muster/service")

// RosterStore is the roster storage the service depends on
type RosterStore interface {
	Create(ctx context.Context, roster *model.Roster) error
	WithRoster(ctx context.Context, id string, fn func(*model.Roster) error) error
	Get(ctx context.Context, id string) (*model.Roster, error)
	List(ctx context.Context) ([]*model.Roster, error)
	Remove(ctx context.Context, id string) error
}

// SnapshotSink receives roster views after every accepted change
type SnapshotSink interface {
	PublishSnapshot(view *model.RosterView)
	PublishRemoved(rosterID string)
}

// PromotionNotifier is told when a waitlisted member was promoted
type PromotionNotifier interface {
	NotifyPromoted(ctx context.Context, promotion model.Promotion) error
}

// ValidationError carries field errors for a rejected request
type ValidationError struct {
	Fields []model.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(msgs, "; ")
}

// Unwrap lets errors.Is match ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// RosterService handles roster lifecycle and membership actions
type RosterService struct {
	store    RosterStore
	sink     SnapshotSink
	notifier PromotionNotifier
	now      func() time.Time
}

// RosterServiceConfig holds configuration for the roster service
type RosterServiceConfig struct {
	Store    RosterStore
	Sink     SnapshotSink      // optional
	Notifier PromotionNotifier // optional
	Now      func() time.Time  // optional, defaults to time.Now
}

// NewRosterService creates a new roster service
func NewRosterService(cfg RosterServiceConfig) *RosterService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RosterService{
		store:    cfg.Store,
		sink:     cfg.Sink,
		notifier: cfg.Notifier,
		now:      now,
	}
}

// CreateRoster opens a new roster owned by owner
func (s *RosterService) CreateRoster(ctx context.Context, owner model.Member, req *model.CreateRosterRequest) (view *model.RosterView, err error) {
	ctx, span := tracer.Start(ctx, "RosterService.CreateRoster")
	defer func() { endSpan(span, err) }()

	if errs := req.Validate(); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	if req.Capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	roster := &model.Roster{
		Name:     strings.TrimSpace(req.Name),
		Date:     strings.TrimSpace(req.Date),
		Time:     strings.TrimSpace(req.Time),
		Capacity: req.Capacity,
		Owner:    owner,
	}
	if err := s.store.Create(ctx, roster); err != nil {
		return nil, translateStoreError(err)
	}
	span.SetAttributes(attribute.String("roster.id", roster.ID), attribute.Int("roster.capacity", roster.Capacity))

	view = model.NewRosterView(roster)
	s.publish(view)
	return view, nil
}

// GetRoster returns the current view of a roster
func (s *RosterService) GetRoster(ctx context.Context, rosterID string) (view *model.RosterView, err error) {
	ctx, span := tracer.Start(ctx, "RosterService.GetRoster", trace.WithAttributes(attribute.String("roster.id", rosterID)))
	defer func() { endSpan(span, err) }()

	roster, err := s.store.Get(ctx, rosterID)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return model.NewRosterView(roster), nil
}

// ListRosters returns views of every roster, oldest first
func (s *RosterService) ListRosters(ctx context.Context) (views []*model.RosterView, err error) {
	ctx, span := tracer.Start(ctx, "RosterService.ListRosters")
	defer func() { endSpan(span, err) }()

	rosters, err := s.store.List(ctx)
	if err != nil {
		return nil, translateStoreError(err)
	}
	views = make([]*model.RosterView, 0, len(rosters))
	for _, r := range rosters {
		views = append(views, model.NewRosterView(r))
	}
	span.SetAttributes(attribute.Int("roster.count", len(views)))
	return views, nil
}

// Join adds member to the roster, or to its waitlist when full
func (s *RosterService) Join(ctx context.Context, rosterID string, member model.Member) (*model.ActionResult, error) {
	return s.Apply(ctx, model.Action{Kind: model.ActionJoin, RosterID: rosterID, Member: member})
}

// Leave removes member from the roster or its waitlist
func (s *RosterService) Leave(ctx context.Context, rosterID string, member model.Member) (*model.ActionResult, error) {
	return s.Apply(ctx, model.Action{Kind: model.ActionLeave, RosterID: rosterID, Member: member})
}

// Close finalizes the roster; only the owner may do this
func (s *RosterService) Close(ctx context.Context, rosterID string, member model.Member) (*model.ActionResult, error) {
	return s.Apply(ctx, model.Action{Kind: model.ActionClose, RosterID: rosterID, Member: member})
}

// Apply runs one action under the roster lock. The snapshot and any
// promotion are dispatched after the lock is released.
func (s *RosterService) Apply(ctx context.Context, action model.Action) (result *model.ActionResult, err error) {
	ctx, span := tracer.Start(ctx, "RosterService.Apply", trace.WithAttributes(
		attribute.String("roster.id", action.RosterID),
		attribute.String("roster.action", string(action.Kind)),
	))
	defer func() { endSpan(span, err) }()

	var (
		t     transition
		after *model.Roster
	)
	err = s.store.WithRoster(ctx, action.RosterID, func(r *model.Roster) error {
		var applyErr error
		t, applyErr = applyAction(r, action, s.now())
		if applyErr != nil {
			return applyErr
		}
		after = r.Clone()
		return nil
	})
	if err != nil {
		return nil, translateStoreError(err)
	}

	view := model.NewRosterView(after)
	result = &model.ActionResult{
		Action:  action.Kind,
		Outcome: t.outcome,
		Roster:  view,
	}
	if t.promoted != nil {
		promoted := *t.promoted
		result.Promoted = &promoted
	}
	span.SetAttributes(attribute.String("roster.outcome", string(t.outcome)))

	s.publish(view)
	if result.Promoted != nil {
		s.notifyPromoted(ctx, model.Promotion{
			RosterID:   after.ID,
			RosterName: after.Name,
			Member:     *result.Promoted,
		})
	}
	return result, nil
}

// DeleteRoster removes a roster; only the owner may do this.
// Deleting an unknown roster reports ErrRosterNotFound.
func (s *RosterService) DeleteRoster(ctx context.Context, rosterID string, requester model.Member) (err error) {
	ctx, span := tracer.Start(ctx, "RosterService.DeleteRoster", trace.WithAttributes(attribute.String("roster.id", rosterID)))
	defer func() { endSpan(span, err) }()

	roster, err := s.store.Get(ctx, rosterID)
	if err != nil {
		return translateStoreError(err)
	}
	if roster.Owner.UserID != requester.UserID {
		return ErrNotOwner
	}
	if err := s.store.Remove(ctx, rosterID); err != nil {
		return translateStoreError(err)
	}
	if s.sink != nil {
		s.sink.PublishRemoved(rosterID)
	}
	return nil
}

// PurgeRosters removes every roster the policy considers expired and
// returns how many were removed.
func (s *RosterService) PurgeRosters(ctx context.Context, policy model.RetentionPolicy) (removed int, err error) {
	ctx, span := tracer.Start(ctx, "RosterService.PurgeRosters")
	defer func() { endSpan(span, err) }()

	rosters, err := s.store.List(ctx)
	if err != nil {
		return 0, translateStoreError(err)
	}

	now := s.now()
	for _, r := range rosters {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !policy.Expired(r, now) {
			continue
		}
		if err := s.store.Remove(ctx, r.ID); err != nil {
			return removed, fmt.Errorf("removing roster %s: %w", r.ID, err)
		}
		if s.sink != nil {
			s.sink.PublishRemoved(r.ID)
		}
		removed++
	}
	span.SetAttributes(attribute.Int("roster.removed", removed))
	return removed, nil
}

func (s *RosterService) publish(view *model.RosterView) {
	if s.sink != nil {
		s.sink.PublishSnapshot(view)
	}
}

func (s *RosterService) notifyPromoted(ctx context.Context, p model.Promotion) {
	if s.notifier == nil {
		return
	}
	// Delivery is best effort and never fails the action that freed the slot.
	_ = s.notifier.NotifyPromoted(ctx, p)
}

// translateStoreError maps repository errors to service errors
func translateStoreError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrRosterNotFound
	case errors.Is(err, repository.ErrInvalidCapacity):
		return ErrInvalidCapacity
	default:
		return err
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
