package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/molda-invest/api/internal/platform/httpx"
	"github.com/molda-invest/api/internal/shared"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	p, err := h.service.Me(r.Context(), ownerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.Me)
}
