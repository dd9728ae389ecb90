package accounts

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/balance", h.GetBalance)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)
}
