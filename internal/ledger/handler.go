package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/molda-invest/api/internal/categories"
	"github.com/molda-invest/api/internal/platform/httpx"
	"github.com/molda-invest/api/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	stats    *StatsService
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, stats *StatsService) *Handler {
	return &Handler{logger: logger, service: service, stats: stats, validate: validator.New()}
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t
	}
	return nil
}

func (h *Handler) parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	q := r.URL.Query()

	filter := ListFilter{
		Type:     categories.TransactionType(q.Get("type")),
		Search:   q.Get("search"),
		DateFrom: parseDate(q.Get("start_date")),
		DateTo:   parseDate(q.Get("end_date")),
	}
	if v := q.Get("account_id"); v != "" {
		filter.AccountID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("category_id"); v != "" {
		filter.CategoryID, _ = strconv.ParseInt(v, 10, 64)
	}

	if q.Get("page") != "" || q.Get("per_page") != "" {
		page, _ := strconv.Atoi(q.Get("page"))
		perPage, _ := strconv.Atoi(q.Get("per_page"))
		out, meta, err := h.service.FindPage(r.Context(), ownerID, filter, page, perPage)
		if err != nil {
			h.logger.Error("list transactions", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"data": out, "pagination": meta})
		return
	}

	out, err := h.service.FindAll(r.Context(), ownerID, filter)
	if err != nil {
		h.logger.Error("list transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	id, ok := h.parseID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction id")
		return
	}
	t, err := h.service.FindOne(r.Context(), ownerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	var req CreateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.Create(r.Context(), ownerID, req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.stats.Invalidate(r.Context(), ownerID)
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	var req CreateTransferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.CreateTransfer(r.Context(), ownerID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.stats.Invalidate(r.Context(), ownerID)
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	id, ok := h.parseID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction id")
		return
	}
	var req UpdateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.Update(r.Context(), ownerID, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	id, ok := h.parseID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction id")
		return
	}
	result, err := h.service.Remove(r.Context(), ownerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.stats.Invalidate(r.Context(), ownerID)
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) ByAccount(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	id, ok := h.parseID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	out, err := h.service.FindByAccount(r.Context(), ownerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) ByCategory(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	id, ok := h.parseID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid category id")
		return
	}
	out, err := h.service.FindByCategory(r.Context(), ownerID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := shared.OwnerFromContext(r.Context())
	q := r.URL.Query()
	out, err := h.stats.Statistics(r.Context(), ownerID, parseDate(q.Get("start_date")), parseDate(q.Get("end_date")))
	if err != nil {
		h.logger.Error("transaction statistics", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
