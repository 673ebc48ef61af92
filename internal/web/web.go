// Package web serves the New Entry and View Records pages.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"golang.org/x/text/language"

	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/i18n"
	"github.com/starford/rollbook/internal/session"
)

// DefaultCookieName names the session cookie when none is configured.
const DefaultCookieName = "rollbook_session"

// Options configures the web router.
type Options struct {
	Sessions *session.Manager
	Forms    *form.Controller
	Logger   *slog.Logger
	// Language is used when the request expresses no preference.
	Language language.Tag
	// CookieName names the session cookie.
	CookieName string
	// CSRFKey enables CSRF protection of form posts when 32 bytes long.
	CSRFKey []byte
	// SecureCookies marks cookies Secure; set when served over TLS.
	SecureCookies bool
}

// Handler holds the page handlers.
type Handler struct {
	sessions   *session.Manager
	forms      *form.Controller
	logger     *slog.Logger
	lang       language.Tag
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewRouter builds the chi router for the HTML pages.
func NewRouter(opts Options) chi.Router {
	h := &Handler{
		sessions:   opts.Sessions,
		forms:      opts.Forms,
		logger:     opts.Logger,
		lang:       opts.Language,
		cookieName: opts.CookieName,
		secure:     opts.SecureCookies,
		now:        time.Now,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.cookieName == "" {
		h.cookieName = DefaultCookieName
	}
	if h.lang == language.Und {
		h.lang = language.English
	}

	r := chi.NewRouter()
	if len(opts.CSRFKey) > 0 {
		r.Use(markPlaintext)
		r.Use(csrf.Protect(opts.CSRFKey,
			csrf.Secure(opts.SecureCookies),
			csrf.Path("/"),
			csrf.CookieName("rollbook_csrf"),
			csrf.FieldName("csrf_token"),
		))
	}
	r.Use(h.resolveLanguage)
	r.Use(h.loadSession)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/entries/new", http.StatusSeeOther)
	})
	r.Get("/entries/new", h.NewEntry)
	r.Post("/entries", h.CreateEntry)
	r.Get("/records", h.ListRecords)
	r.Get("/records/export.csv", h.ExportRecords)
	r.Post("/records/persist", h.PersistRecords)

	return r
}

// markPlaintext tells gorilla/csrf which requests arrived without TLS so
// that its Referer checks apply only to HTTPS.
func markPlaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) resolveLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag, persist := i18n.Resolve(r, h.lang)
		if persist {
			i18n.SetCookie(w, tag)
		}
		next.ServeHTTP(w, r.WithContext(withLang(r.Context(), tag)))
	})
}

// loadSession attaches the caller's session, opening one on first visit.
// A store that cannot be read yields an error page and no session.
func (h *Handler) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(h.cookieName); err == nil {
			id = c.Value
		}
		sess, err := h.sessions.Acquire(r.Context(), id)
		if err != nil {
			h.logger.Error("web: open session failed", slog.String("error", err.Error()))
			h.renderError(w, r, http.StatusServiceUnavailable, "Could not reach the record store", err)
			return
		}
		if sess.ID() != id {
			http.SetCookie(w, &http.Cookie{
				Name:     h.cookieName,
				Value:    sess.ID(),
				Path:     "/",
				HttpOnly: true,
				Secure:   h.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), sess)))
	})
}

type errorPage struct {
	page
	Message  string
	Detail   string
	RetryURL string
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	data := errorPage{
		page:     newPage(r, ""),
		Message:  msg,
		RetryURL: r.URL.RequestURI(),
	}
	if err != nil {
		data.Detail = err.Error()
	}
	if r.Method != http.MethodGet {
		data.RetryURL = "/records"
	}
	render(w, r, status, pageError, data)
}
