package i18n

import (
	"strings"
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `~`, `\~`, `!`, `\!`,
	`[`, `\[`, `]`, `\]`, `#`, `\#`, `<`, `\<`, `>`, `\>`, `|`, `\|`,
)

// EscapeMarkdown makes user text safe to place inside a Markdown message:
// whitespace runs (newlines included) collapse to one space, inline markup
// is escaped, and a leading list marker is neutralized so the text cannot
// open a list or heading of its own.
func EscapeMarkdown(s string) string {
	s = markdownEscaper.Replace(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return s
	}

	switch s[0] {
	case '-', '+', '=':
		return `\` + s
	}

	// Ordered list marker: up to nine digits followed by '.' or ')'
	digits := 0
	for digits < len(s) && digits < 9 && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits < len(s) && (s[digits] == '.' || s[digits] == ')') {
		return s[:digits] + `\` + s[digits:]
	}
	return s
}
