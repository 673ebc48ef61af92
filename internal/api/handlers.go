package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/rollbook/internal/apperr"
	"github.com/starford/rollbook/internal/checksum"
	"github.com/starford/rollbook/internal/export"
	"github.com/starford/rollbook/internal/filter"
	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/models"
	"github.com/starford/rollbook/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	pin   *session.Pinned
	forms *form.Controller
}

// NewHandler creates a new Handler.
func NewHandler(pin *session.Pinned, forms *form.Controller) *Handler {
	return &Handler{pin: pin, forms: forms}
}

// session returns the shared session or writes a 503.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := h.pin.Get(r.Context())
	if err != nil {
		slog.Error("open session failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, errorBody("record store unavailable"))
		return nil, false
	}
	return sess, true
}

// ListRecords handles GET /api/records.
//
//	@Summary		List records matching the filter
//	@Tags			records
//	@Produce		json
//	@Param			name	query		string	false	"Character name, repeatable"
//	@Param			from	query		string	false	"First date, YYYY-MM-DD"
//	@Param			to		query		string	false	"Last date, YYYY-MM-DD"
//	@Param			min		query		int		false	"Lowest roll"
//	@Param			max		query		int		false	"Highest roll"
//	@Success		200		{object}	RecordListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	records := sess.Records()
	crit, err := filter.Parse(r.URL.Query(), filter.Defaults(records))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	matched := filter.Apply(records, crit)
	if matched == nil {
		matched = []models.Record{}
	}
	names := filter.Names(records)
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, RecordListResponse{
		Records: matched,
		Total:   len(records),
		Names:   names,
	})
}

// CreateRecord handles POST /api/records.
//
//	@Summary		Add a record and save the session
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateRecordRequest	true	"Record to add"
//	@Success		201		{object}	CreateRecordResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records [post]
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	rec, err := h.forms.Submit(r.Context(), sess, req.input())
	var verr *apperr.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, CreateRecordResponse{Record: rec, Total: sess.Len()})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:  "validation failed",
			Fields: verr.Fields,
		})
	case errors.Is(err, apperr.ErrPersistPartial):
		writeJSON(w, http.StatusBadGateway, errorBody("record kept in session but not saved"))
	default:
		slog.Error("create record failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ExportRecords handles GET /api/records/export.
//
//	@Summary		Export matching records as CSV
//	@Tags			records
//	@Produce		text/csv
//	@Success		200	{string}	string	"CSV with header row"
//	@Success		304	"Unchanged since the If-None-Match tag"
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/export [get]
func (h *Handler) ExportRecords(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	records := sess.Records()
	crit, err := filter.Parse(r.URL.Query(), filter.Defaults(records))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	body, err := export.ToCSV(filter.Apply(records, crit))
	if err != nil {
		slog.Error("export records failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	etag := checksum.ETag(body)
	w.Header().Set("ETag", etag)
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// PersistRecords handles POST /api/records/persist.
//
//	@Summary		Retry saving the session to the store
//	@Tags			records
//	@Success		204	"Saved"
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/records/persist [post]
func (h *Handler) PersistRecords(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Persist(r.Context()); err != nil {
		slog.Warn("persist records failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("save failed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
