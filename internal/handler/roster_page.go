package handler

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
	"golang.org/x/text/language"

	"github.com/forgo/muster/internal/i18n"
	"github.com/forgo/muster/internal/model"
)

// RosterPage renders a roster as the card posted in chat: title, schedule,
// slot count, organizer and both member lists.
type RosterPage struct {
	md goldmark.Markdown
}

// NewRosterPage creates a roster card renderer
func NewRosterPage() *RosterPage {
	return &RosterPage{md: goldmark.New()}
}

// Markdown returns the card text in the given language
func (p *RosterPage) Markdown(view *model.RosterView, tag language.Tag) string {
	pr := i18n.Printer(tag)
	var b strings.Builder

	titleKey := i18n.KeyCardTitle
	if view.Closed {
		titleKey = i18n.KeyCardTitleClosed
	}
	fmt.Fprintf(&b, "# %s\n\n", pr.Sprintf(titleKey, i18n.EscapeMarkdown(view.Name)))

	if view.Date != "" {
		fmt.Fprintf(&b, "**%s:** %s  \n", pr.Sprintf(i18n.KeyCardDate), i18n.EscapeMarkdown(view.Date))
	}
	if view.Time != "" {
		fmt.Fprintf(&b, "**%s:** %s  \n", pr.Sprintf(i18n.KeyCardTime), i18n.EscapeMarkdown(view.Time))
	}
	fmt.Fprintf(&b, "**%s:** %d/%d  \n", pr.Sprintf(i18n.KeyCardSlots), len(view.Participants), view.Capacity)
	fmt.Fprintf(&b, "**%s:** %s  \n", pr.Sprintf(i18n.KeyCardOwner), i18n.EscapeMarkdown(view.Owner.Label()))
	fmt.Fprintf(&b, "**%s:** %s\n\n", pr.Sprintf(i18n.KeyCardStatus), pr.Sprintf(i18n.StatusKey(view.Status)))

	writeMemberList(&b, pr.Sprintf(i18n.KeyCardParticipants), pr.Sprintf(i18n.KeyCardNone), view.Participants)
	writeMemberList(&b, pr.Sprintf(i18n.KeyCardWaitlist), pr.Sprintf(i18n.KeyCardNone), view.Waitlist)

	return b.String()
}

// Render returns a complete HTML document for the card
func (p *RosterPage) Render(view *model.RosterView, tag language.Tag) (string, error) {
	var body bytes.Buffer
	if err := p.md.Convert([]byte(p.Markdown(view, tag)), &body); err != nil {
		return "", fmt.Errorf("failed to convert roster card: %w", err)
	}

	var doc strings.Builder
	fmt.Fprintf(&doc, "<!DOCTYPE html>\n<html lang=\"%s\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(i18n.Match(tag).String()), html.EscapeString(view.Name))
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.String(), nil
}

func writeMemberList(b *strings.Builder, heading, none string, members []model.Member) {
	fmt.Fprintf(b, "## %s\n\n", heading)
	if len(members) == 0 {
		fmt.Fprintf(b, "%s\n\n", none)
		return
	}
	for i, m := range members {
		fmt.Fprintf(b, "%d. %s\n", i+1, i18n.EscapeMarkdown(m.Label()))
	}
	b.WriteString("\n")
}
