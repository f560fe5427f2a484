package model

import (
	"strings"
	"time"
)

// Roster is the sign-up state of one scheduled activity: a fixed-capacity
// participant list plus a FIFO waitlist.
type Roster struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Date         string     `json:"date,omitempty"`
	Time         string     `json:"time,omitempty"`
	Capacity     int        `json:"capacity"`
	Owner        Member     `json:"owner"`
	Participants []Member   `json:"participants"`
	Waitlist     []Member   `json:"waitlist"`
	Closed       bool       `json:"closed"`
	ClosedOn     *time.Time `json:"closed_on,omitempty"`
	CreatedOn    time.Time  `json:"created_on"`
	// Version increases by one with every committed change
	Version uint64 `json:"version"`
}

// Member identifies a user on a roster. UserID is opaque; DisplayName is
// only a rendering hint.
type Member struct {
	UserID      string `json:"id"`
	DisplayName string `json:"display_hint,omitempty"`
	Email       string `json:"-"`
}

// Label returns the display name, falling back to the user ID
func (m Member) Label() string {
	if strings.TrimSpace(m.DisplayName) != "" {
		return m.DisplayName
	}
	return m.UserID
}

// RosterStatus is the derived display status of a roster
type RosterStatus string

const (
	RosterStatusOpen     RosterStatus = "open"
	RosterStatusNearFull RosterStatus = "near_full"
	RosterStatusFull     RosterStatus = "full"
	RosterStatusClosed   RosterStatus = "closed"
)

// NearFullPercent is the fill level (in percent of capacity) from which an
// open roster is shown as near full.
const NearFullPercent = 70

// Constraints
const (
	MaxRosterNameLength = 100
	MaxRosterDateLength = 50
	MaxRosterTimeLength = 50
)

// Clone returns a deep copy of the roster
func (r *Roster) Clone() *Roster {
	if r == nil {
		return nil
	}
	c := *r
	c.Participants = append([]Member(nil), r.Participants...)
	c.Waitlist = append([]Member(nil), r.Waitlist...)
	if r.ClosedOn != nil {
		closedOn := *r.ClosedOn
		c.ClosedOn = &closedOn
	}
	return &c
}

// IsParticipant reports whether userID holds a slot
func (r *Roster) IsParticipant(userID string) bool {
	return indexOf(r.Participants, userID) >= 0
}

// IsWaitlisted reports whether userID is on the waitlist
func (r *Roster) IsWaitlisted(userID string) bool {
	return indexOf(r.Waitlist, userID) >= 0
}

// HasRoom reports whether a participant slot is free
func (r *Roster) HasRoom() bool {
	return len(r.Participants) < r.Capacity
}

// Status derives the display status from the roster state
func (r *Roster) Status() RosterStatus {
	switch {
	case r.Closed:
		return RosterStatusClosed
	case len(r.Participants) >= r.Capacity:
		return RosterStatusFull
	case 100*len(r.Participants) >= NearFullPercent*r.Capacity:
		return RosterStatusNearFull
	default:
		return RosterStatusOpen
	}
}

// CheckInvariants returns a description of the first broken roster
// invariant, or "" when the roster is consistent.
func (r *Roster) CheckInvariants() string {
	if r.Capacity <= 0 {
		return "capacity must be positive"
	}
	if len(r.Participants) > r.Capacity {
		return "participants exceed capacity"
	}
	seen := make(map[string]struct{}, len(r.Participants)+len(r.Waitlist))
	for _, m := range r.Participants {
		if _, dup := seen[m.UserID]; dup {
			return "duplicate participant " + m.UserID
		}
		seen[m.UserID] = struct{}{}
	}
	for _, m := range r.Waitlist {
		if _, dup := seen[m.UserID]; dup {
			return "duplicate waitlist entry " + m.UserID
		}
		seen[m.UserID] = struct{}{}
	}
	if r.HasRoom() && len(r.Waitlist) > 0 {
		return "waitlist not promoted into free slot"
	}
	return ""
}

// RemoveMember removes userID from list, returning the new list and whether
// the user was present. Order of the remaining members is preserved.
func RemoveMember(list []Member, userID string) ([]Member, bool) {
	i := indexOf(list, userID)
	if i < 0 {
		return list, false
	}
	return append(list[:i:i], list[i+1:]...), true
}

func indexOf(list []Member, userID string) int {
	for i, m := range list {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

// RosterView is the read-only snapshot handed to renderers and subscribers
type RosterView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Date         string       `json:"date,omitempty"`
	Time         string       `json:"time,omitempty"`
	Capacity     int          `json:"capacity"`
	Owner        Member       `json:"owner"`
	Participants []Member     `json:"participants"`
	Waitlist     []Member     `json:"waitlist"`
	Status       RosterStatus `json:"status"`
	Closed       bool         `json:"closed"`
	ClosedOn     *time.Time   `json:"closed_on,omitempty"`
	CreatedOn    time.Time    `json:"created_on"`
	Version      uint64       `json:"version"`
}

// NewRosterView snapshots a roster. The view shares no memory with r.
func NewRosterView(r *Roster) *RosterView {
	c := r.Clone()
	if c.Participants == nil {
		c.Participants = []Member{}
	}
	if c.Waitlist == nil {
		c.Waitlist = []Member{}
	}
	return &RosterView{
		ID:           c.ID,
		Name:         c.Name,
		Date:         c.Date,
		Time:         c.Time,
		Capacity:     c.Capacity,
		Owner:        c.Owner,
		Participants: c.Participants,
		Waitlist:     c.Waitlist,
		Status:       c.Status(),
		Closed:       c.Closed,
		ClosedOn:     c.ClosedOn,
		CreatedOn:    c.CreatedOn,
		Version:      c.Version,
	}
}

// ActionKind names a roster action
type ActionKind string

const (
	ActionJoin  ActionKind = "join"
	ActionLeave ActionKind = "leave"
	ActionClose ActionKind = "close"
)

// Action is one user request against one roster
type Action struct {
	Kind     ActionKind
	RosterID string
	Member   Member
}

// ActionOutcome is the accepted result of an action
type ActionOutcome string

const (
	OutcomeJoined       ActionOutcome = "joined"
	OutcomeWaitlisted   ActionOutcome = "waitlisted"
	OutcomeLeft         ActionOutcome = "left"
	OutcomeLeftWaitlist ActionOutcome = "left_waitlist"
	OutcomeClosed       ActionOutcome = "closed"
)

// ActionResult describes an accepted transition. Promoted is set when a
// waitlisted member took the freed slot.
type ActionResult struct {
	Action   ActionKind    `json:"action"`
	Outcome  ActionOutcome `json:"result"`
	Promoted *Member       `json:"promoted,omitempty"`
	Roster   *RosterView   `json:"roster"`
}

// Promotion is emitted after a Leave moved the waitlist head into a slot
type Promotion struct {
	RosterID   string `json:"roster_id"`
	RosterName string `json:"roster_name"`
	Member     Member `json:"member"`
}

// RetentionPolicy controls which rosters the sweeper removes.
// Zero durations disable the corresponding rule.
type RetentionPolicy struct {
	ClosedRetention time.Duration
	MaxAge          time.Duration
}

// Expired reports whether r should be removed at now
func (p RetentionPolicy) Expired(r *Roster, now time.Time) bool {
	if p.ClosedRetention > 0 && r.Closed && r.ClosedOn != nil && now.Sub(*r.ClosedOn) >= p.ClosedRetention {
		return true
	}
	if p.MaxAge > 0 && now.Sub(r.CreatedOn) >= p.MaxAge {
		return true
	}
	return false
}

// CreateRosterRequest represents a request to open a new roster
type CreateRosterRequest struct {
	Name     string `json:"name"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Capacity int    `json:"capacity"`
}

// Validate validates a CreateRosterRequest. Date and time are optional free
// text; the card omits whichever is empty. Capacity is checked by the
// service so that it surfaces as its own error.
func (r *CreateRosterRequest) Validate() []FieldError {
	var errors []FieldError

	if strings.TrimSpace(r.Name) == "" {
		errors = append(errors, FieldError{Field: "name", Message: "name is required"})
	} else if len(r.Name) > MaxRosterNameLength {
		errors = append(errors, FieldError{Field: "name", Message: "name too long"})
	}

	if len(r.Date) > MaxRosterDateLength {
		errors = append(errors, FieldError{Field: "date", Message: "date too long"})
	}

	if len(r.Time) > MaxRosterTimeLength {
		errors = append(errors, FieldError{Field: "time", Message: "time too long"})
	}

	return errors
}
