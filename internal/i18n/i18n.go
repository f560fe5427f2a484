package i18n

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "muster_lang"
)

var (
	// EnglishUS is the default language
	EnglishUS = language.AmericanEnglish
	// PortugueseBR is Brazilian Portuguese
	PortugueseBR = language.BrazilianPortuguese

	supported = []language.Tag{EnglishUS, PortugueseBR}
	matcher   = language.NewMatcher(supported)
	messages  = buildCatalog()
)

// Supported returns the supported language tags, default first.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Default returns the default language tag.
func Default() language.Tag {
	return EnglishUS
}

// Printer returns a message printer bound to the roster catalog.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(Match(tag), message.Catalog(messages))
}

// Match maps any tag to the closest supported one.
func Match(tag language.Tag) language.Tag {
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return Default()
	}
	return supported[index]
}

// ParseTag parses value and matches it to a supported tag.
func ParseTag(value string) (language.Tag, bool) {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return Default(), false
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return Default(), false
	}
	return supported[index], true
}

// ResolveTag determines the best language tag for the request.
// The bool indicates whether the lang query param should be persisted as a cookie.
func ResolveTag(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return Default(), false
	}

	if langValue := strings.TrimSpace(r.URL.Query().Get(LangParam)); langValue != "" {
		if tag, ok := ParseTag(langValue); ok {
			return tag, true
		}
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := ParseTag(cookie.Value); ok {
			return tag, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, index, confidence := matcher.Match(tags...)
			if confidence != language.No {
				return supported[index], false
			}
		}
	}

	return Default(), false
}

// SetLanguageCookie persists the selected language on the response.
func SetLanguageCookie(w http.ResponseWriter, tag language.Tag) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(EnglishUS))
	for key, text := range messagesEN {
		_ = b.SetString(EnglishUS, key, text)
	}
	for key, text := range messagesPTBR {
		_ = b.SetString(PortugueseBR, key, text)
	}
	return b
}
