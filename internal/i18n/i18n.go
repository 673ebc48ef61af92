// Package i18n resolves the UI language of a request and prints the
// English or Japanese form of UI strings.
package i18n

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language.
	LangParam = "lang"
	// LangCookieName stores the user's language preference.
	LangCookieName = "rollbook_lang"
)

var (
	supported = []language.Tag{language.English, language.Japanese}
	matcher   = language.NewMatcher(supported)
)

// Supported returns the selectable language tags, default first.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Parse matches s against the supported languages.
func Parse(s string) (language.Tag, bool) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return language.English, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.English, false
	}
	return supported[idx], true
}

// Resolve picks the language for r from, in order, the lang query param,
// the language cookie, Accept-Language, then fallback. The bool reports
// whether the query param chose it, in which case it should be persisted.
func Resolve(r *http.Request, fallback language.Tag) (language.Tag, bool) {
	if v := r.URL.Query().Get(LangParam); v != "" {
		if tag, ok := Parse(v); ok {
			return tag, true
		}
	}
	if c, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := Parse(c.Value); ok {
			return tag, false
		}
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				return supported[idx], false
			}
		}
	}
	return fallback, false
}

// SetCookie persists tag as the language preference.
func SetCookie(w http.ResponseWriter, tag language.Tag) {
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Printer returns a message printer for tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
