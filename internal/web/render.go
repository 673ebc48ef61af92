package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Pages are parsed once with a placeholder translator; render swaps in the
// request's printer on a clone.
var pages = map[string]*template.Template{
	pageNewEntry: mustParsePage("new_entry.html"),
	pageRecords:  mustParsePage("records.html"),
	pageError:    mustParsePage("error.html"),
}

const (
	pageNewEntry = "new_entry"
	pageRecords  = "records"
	pageError    = "error"
)

func mustParsePage(name string) *template.Template {
	return template.Must(template.New(name).
		Funcs(template.FuncMap{"t": func(key string, _ ...any) string { return key }}).
		ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
}

// page carries the fields every layout render needs.
type page struct {
	Lang      string
	Active    string
	CSRFField template.HTML
	Unsaved   bool
}

func newPage(r *http.Request, active string) page {
	p := page{
		Lang:      langFrom(r.Context()).String(),
		Active:    active,
		CSRFField: csrf.TemplateField(r),
	}
	if sess := sessionFrom(r.Context()); sess != nil {
		p.Unsaved = sess.Unsaved()
	}
	return p
}

func render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	base, ok := pages[name]
	if !ok {
		slog.Error("render: unknown page", slog.String("page", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	tpl, err := base.Clone()
	if err != nil {
		slog.Error("render: clone failed", slog.String("page", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	p := printerFrom(r.Context())
	tpl.Funcs(template.FuncMap{"t": translator(p)})

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("render: execute failed", slog.String("page", name), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func translator(p *message.Printer) func(string, ...any) string {
	return func(key string, args ...any) string {
		return p.Sprintf(key, args...)
	}
}
