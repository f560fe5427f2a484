package i18n

import (
	"errors"

	"github.com/forgo/muster/internal/model"
)

// Message keys
const (
	KeyJoined       = "roster.joined"
	KeyWaitlisted   = "roster.waitlisted"
	KeyLeft         = "roster.left"
	KeyLeftWaitlist = "roster.left_waitlist"
	KeyClosed       = "roster.closed"
	KeyPromoted     = "roster.promoted"

	KeyAlreadyJoined     = "roster.error.already_joined"
	KeyAlreadyWaitlisted = "roster.error.already_waitlisted"
	KeyNotParticipating  = "roster.error.not_participating"
	KeyNotOwner          = "roster.error.not_owner"
	KeyRosterClosed      = "roster.error.closed"
	KeyRosterNotFound    = "roster.error.not_found"
	KeyInvalidCapacity   = "roster.error.invalid_capacity"

	KeyCardTitle        = "card.title"
	KeyCardTitleClosed  = "card.title_closed"
	KeyCardDate         = "card.date"
	KeyCardTime         = "card.time"
	KeyCardSlots        = "card.slots"
	KeyCardOwner        = "card.owner"
	KeyCardParticipants = "card.participants"
	KeyCardWaitlist     = "card.waitlist"
	KeyCardNone         = "card.none"
	KeyCardStatus       = "card.status"

	KeyStatusOpen     = "status.open"
	KeyStatusNearFull = "status.near_full"
	KeyStatusFull     = "status.full"
	KeyStatusClosed   = "status.closed"

	KeyPromotedSubject = "email.promoted.subject"
	KeyPromotedBody    = "email.promoted.body"
)

var outcomeKeys = map[model.ActionOutcome]string{
	model.OutcomeJoined:       KeyJoined,
	model.OutcomeWaitlisted:   KeyWaitlisted,
	model.OutcomeLeft:         KeyLeft,
	model.OutcomeLeftWaitlist: KeyLeftWaitlist,
	model.OutcomeClosed:       KeyClosed,
}

var statusKeys = map[model.RosterStatus]string{
	model.RosterStatusOpen:     KeyStatusOpen,
	model.RosterStatusNearFull: KeyStatusNearFull,
	model.RosterStatusFull:     KeyStatusFull,
	model.RosterStatusClosed:   KeyStatusClosed,
}

// OutcomeKey returns the message key for an accepted action outcome.
func OutcomeKey(outcome model.ActionOutcome) string {
	return outcomeKeys[outcome]
}

// StatusKey returns the message key for a roster status label.
func StatusKey(status model.RosterStatus) string {
	return statusKeys[status]
}

// ErrorKeys pairs a sentinel error with its message key.
type ErrorKeys []struct {
	Err error
	Key string
}

// Lookup returns the key of the first entry matching err.
func (k ErrorKeys) Lookup(err error) (string, bool) {
	for _, entry := range k {
		if errors.Is(err, entry.Err) {
			return entry.Key, true
		}
	}
	return "", false
}
