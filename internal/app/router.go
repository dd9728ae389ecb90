package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/molda-invest/api/internal/accounts"
	"github.com/molda-invest/api/internal/auth"
	"github.com/molda-invest/api/internal/categories"
	"github.com/molda-invest/api/internal/ledger"
	"github.com/molda-invest/api/internal/observability"
	"github.com/molda-invest/api/internal/users"
	"github.com/molda-invest/api/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AuthService       *auth.Service
	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	AccountsHandler   *accounts.Handler
	CategoriesHandler *categories.Handler
	LedgerHandler     *ledger.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router for the API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(AuthRateLimiter())
			params.AuthHandler.MountRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(params.AuthService.RequireUser)
			r.Route("/users", params.UsersHandler.MountRoutes)
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
			r.Route("/categories", params.CategoriesHandler.MountRoutes)
			r.Route("/transactions", params.LedgerHandler.MountRoutes)
		})
	})

	return r
}
