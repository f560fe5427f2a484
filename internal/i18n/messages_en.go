package i18n

var messagesEN = map[string]string{
	KeyJoined:       "You joined %s.",
	KeyWaitlisted:   "%s is full. You are on the waitlist.",
	KeyLeft:         "You left %s.",
	KeyLeftWaitlist: "You left the waitlist for %s.",
	KeyClosed:       "%s is now closed.",
	KeyPromoted:     "A slot opened up in %s and you are now participating.",

	KeyAlreadyJoined:     "You are already participating!",
	KeyAlreadyWaitlisted: "You are already on the waitlist.",
	KeyNotParticipating:  "You are not on this roster.",
	KeyNotOwner:          "Only the organizer can close this roster.",
	KeyRosterClosed:      "This roster is closed.",
	KeyRosterNotFound:    "Roster not found.",
	KeyInvalidCapacity:   "Capacity must be a positive number.",

	KeyCardTitle:        "Event: %s",
	KeyCardTitleClosed:  "Event %s finished",
	KeyCardDate:         "Date",
	KeyCardTime:         "Time",
	KeyCardSlots:        "Slots",
	KeyCardOwner:        "Organizer",
	KeyCardParticipants: "Participants",
	KeyCardWaitlist:     "Waitlist",
	KeyCardNone:         "None",
	KeyCardStatus:       "Status",

	KeyStatusOpen:     "Open",
	KeyStatusNearFull: "Almost full",
	KeyStatusFull:     "Full",
	KeyStatusClosed:   "Closed",

	KeyPromotedSubject: "You're in: %s",
	KeyPromotedBody:    "Hi %s, a slot opened up in **%s** and you moved off the waitlist. See you there!",
}
