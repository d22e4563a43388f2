package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all circuit routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/circuits", func(r chi.Router) {
		r.Post("/simulate", h.HandleSimulate)
		r.Post("/measure", h.HandleMeasure)
		r.Post("/validate", h.HandleValidate)
		r.Post("/export", h.HandleExport)
		r.Get("/stream", h.HandleStream)

		r.Post("/", h.HandleSave)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Delete("/{id}", h.HandleDelete)
	})
}
