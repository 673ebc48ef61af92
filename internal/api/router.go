package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/rollbook/internal/form"
	"github.com/starford/rollbook/internal/session"
)

// NewRouter creates a chi router with the records API mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(pin *session.Pinned, forms *form.Controller, authEnabled bool, token string) chi.Router {
	h := NewHandler(pin, forms)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/records", h.ListRecords)
	r.Post("/records", h.CreateRecord)
	r.Get("/records/export", h.ExportRecords)
	r.Post("/records/persist", h.PersistRecords)

	return r
}
