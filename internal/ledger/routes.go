package ledger

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/transfer", h.CreateTransfer)
	r.Get("/statistics", h.Statistics)
	r.Get("/account/{id}", h.ByAccount)
	r.Get("/category/{id}", h.ByCategory)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Remove)
}
