// Package i18n holds the user-facing roster messages in en-US and pt-BR and
// resolves the language of an HTTP request from the lang query parameter,
// the muster_lang cookie or Accept-Language, in that order.
//
// EscapeMarkdown prepares user text (roster names, display names) for the
// Markdown messages rendered to HTML.
package i18n
