package service

import (
	"time"

	"github.com/forgo/muster/internal/model"
)

// transition is what applyAction reports back for an accepted action
type transition struct {
	outcome  model.ActionOutcome
	promoted *model.Member
}

// applyAction runs one action against r in place. It is the only code that
// changes roster membership. A rejected action returns an error and leaves r
// untouched.
func applyAction(r *model.Roster, action model.Action, now time.Time) (transition, error) {
	if r.Closed {
		return transition{}, ErrRosterClosed
	}

	switch action.Kind {
	case model.ActionJoin:
		return join(r, action.Member)
	case model.ActionLeave:
		return leave(r, action.Member)
	case model.ActionClose:
		return closeRoster(r, action.Member, now)
	default:
		return transition{}, ErrUnknownAction
	}
}

func join(r *model.Roster, m model.Member) (transition, error) {
	if r.IsParticipant(m.UserID) {
		return transition{}, ErrAlreadyJoined
	}

	if r.HasRoom() {
		// Only reachable with a waitlist entry if the roster was created
		// short of capacity; keep the lists disjoint either way.
		r.Waitlist, _ = model.RemoveMember(r.Waitlist, m.UserID)
		r.Participants = append(r.Participants, m)
		return transition{outcome: model.OutcomeJoined}, nil
	}

	if r.IsWaitlisted(m.UserID) {
		return transition{}, ErrAlreadyWaitlisted
	}
	r.Waitlist = append(r.Waitlist, m)
	return transition{outcome: model.OutcomeWaitlisted}, nil
}

func leave(r *model.Roster, m model.Member) (transition, error) {
	if participants, ok := model.RemoveMember(r.Participants, m.UserID); ok {
		r.Participants = participants
		t := transition{outcome: model.OutcomeLeft}
		if len(r.Waitlist) > 0 && r.HasRoom() {
			head := r.Waitlist[0]
			r.Waitlist = append([]model.Member(nil), r.Waitlist[1:]...)
			r.Participants = append(r.Participants, head)
			t.promoted = &head
		}
		return t, nil
	}

	if waitlist, ok := model.RemoveMember(r.Waitlist, m.UserID); ok {
		r.Waitlist = waitlist
		return transition{outcome: model.OutcomeLeftWaitlist}, nil
	}

	return transition{}, ErrNotParticipating
}

func closeRoster(r *model.Roster, requester model.Member, now time.Time) (transition, error) {
	if requester.UserID != r.Owner.UserID {
		return transition{}, ErrNotOwner
	}
	r.Closed = true
	closedOn := now.UTC()
	r.ClosedOn = &closedOn
	return transition{outcome: model.OutcomeClosed}, nil
}
