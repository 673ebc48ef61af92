package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/starford/rollbook/internal/apperr"
	"github.com/starford/rollbook/internal/checksum"
	"github.com/starford/rollbook/internal/export"
	"github.com/starford/rollbook/internal/filter"
	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/models"
)

type newEntryPage struct {
	page
	Input           form.Input
	Errors          map[string]string
	// MissingRequired is set when at least one error is a blank field.
	MissingRequired bool
	Success         bool
	PersistFailed   bool
	MinDate         string
}

type nameOption struct {
	Name     string
	Selected bool
}

type recordsPage struct {
	page
	Empty       bool
	Saved       bool
	FilterError string
	Names       []nameOption
	From        string
	To          string
	MinRoll     int
	MaxRoll     int
	Rows        []models.Record
	Total       int
	ExportURL   string
}

// NewEntry handles GET /entries/new.
func (h *Handler) NewEntry(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, pageNewEntry, newEntryPage{
		page:    newPage(r, "new"),
		Input:   form.Input{Date: h.now().Format(models.DateLayout)},
		MinDate: models.MinDate.Format(models.DateLayout),
	})
}

// CreateEntry handles POST /entries.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := form.Input{
		CharacterName: r.PostFormValue(form.FieldCharacterName),
		Date:          r.PostFormValue(form.FieldDate),
		RollValue:     r.PostFormValue(form.FieldRollValue),
		Notes:         r.PostFormValue(form.FieldNotes),
	}
	sess := sessionFrom(r.Context())

	_, err := h.forms.Submit(r.Context(), sess, in)

	data := newEntryPage{
		MinDate: models.MinDate.Format(models.DateLayout),
	}
	status := http.StatusOK
	var verr *apperr.ValidationError
	switch {
	case err == nil:
		data.Success = true
		// Keep the date for quick consecutive entries.
		data.Input = form.Input{Date: in.Normalize().Date}
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		data.Input = in
		data.Errors = verr.Fields
		data.MissingRequired = form.MissingRequired(verr.Fields)
	case errors.Is(err, apperr.ErrPersistPartial):
		status = http.StatusBadGateway
		data.PersistFailed = true
		data.Input = form.Input{Date: in.Normalize().Date}
	default:
		h.logger.Error("web: create entry failed", slog.String("error", err.Error()))
		h.renderError(w, r, http.StatusInternalServerError, "Could not reach the record store", err)
		return
	}
	data.page = newPage(r, "new")
	render(w, r, status, pageNewEntry, data)
}

// ListRecords handles GET /records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records := sessionFrom(r.Context()).Records()
	data := recordsPage{
		page:      newPage(r, "records"),
		Empty:     len(records) == 0,
		Saved:     r.URL.Query().Get("saved") == "1",
		Total:     len(records),
		ExportURL: "/records/export.csv",
	}
	if data.Empty {
		render(w, r, http.StatusOK, pageRecords, data)
		return
	}

	status := http.StatusOK
	def := filter.Defaults(records)
	crit, err := filter.Parse(r.URL.Query(), def)
	if err != nil {
		status = http.StatusBadRequest
		data.FilterError = err.Error()
		crit = def
	}

	for _, n := range filter.Names(records) {
		data.Names = append(data.Names, nameOption{Name: n, Selected: crit.Selected(n)})
	}
	data.From = crit.From.Format(models.DateLayout)
	data.To = crit.To.Format(models.DateLayout)
	data.MinRoll = crit.MinRoll
	data.MaxRoll = crit.MaxRoll
	data.Rows = filter.Apply(records, crit)
	data.ExportURL = exportURL(crit.Values())

	render(w, r, status, pageRecords, data)
}

// ExportRecords handles GET /records/export.csv.
func (h *Handler) ExportRecords(w http.ResponseWriter, r *http.Request) {
	records := sessionFrom(r.Context()).Records()
	crit, err := filter.Parse(r.URL.Query(), filter.Defaults(records))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, err := export.ToCSV(filter.Apply(records, crit))
	if err != nil {
		h.logger.Error("web: export failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	etag := checksum.ETag(body)
	w.Header().Set("ETag", etag)
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// PersistRecords handles POST /records/persist, retrying a failed save.
func (h *Handler) PersistRecords(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := sess.Persist(r.Context()); err != nil {
		h.renderError(w, r, http.StatusBadGateway, "The record is kept in this session but was not saved", err)
		return
	}
	http.Redirect(w, r, "/records?saved=1", http.StatusSeeOther)
}

func exportURL(v url.Values) string {
	return "/records/export.csv?" + v.Encode()
}
