package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/invora-hq/invora/internal/accounts"
	"github.com/invora-hq/invora/internal/activity"
	"github.com/invora-hq/invora/internal/auth"
	"github.com/invora-hq/invora/internal/billing"
	"github.com/invora-hq/invora/internal/clients"
	"github.com/invora-hq/invora/internal/dashboard"
	"github.com/invora-hq/invora/internal/invoices"
	"github.com/invora-hq/invora/internal/notifications"
	"github.com/invora-hq/invora/internal/observability"
	"github.com/invora-hq/invora/internal/products"
	"github.com/invora-hq/invora/internal/team"
	"github.com/invora-hq/invora/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware

	AccountsHandler      *accounts.Handler
	TeamHandler          *team.Handler
	ClientsHandler       *clients.Handler
	ProductsHandler      *products.Handler
	InvoicesHandler      *invoices.Handler
	BillingHandler       *billing.Handler
	NotificationsHandler *notifications.Handler
	ActivityHandler      *activity.Handler
	DashboardHandler     *dashboard.Handler

	JobHandler *jobs.Handler
	Metrics    *observability.Metrics
}

// NewRouter constructs the chi.Router with Invora defaults.
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

	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireUser)

			params.AuthHandler.MountProtectedRoutes(r)
			if params.AccountsHandler != nil {
				params.AccountsHandler.MountRoutes(r)
			}
			if params.TeamHandler != nil {
				params.TeamHandler.MountRoutes(r)
			}
			if params.ClientsHandler != nil {
				params.ClientsHandler.MountRoutes(r)
			}
			if params.ProductsHandler != nil {
				params.ProductsHandler.MountRoutes(r)
			}
			if params.InvoicesHandler != nil {
				params.InvoicesHandler.MountRoutes(r)
			}
			if params.BillingHandler != nil {
				params.BillingHandler.MountRoutes(r)
			}
			if params.NotificationsHandler != nil {
				params.NotificationsHandler.MountRoutes(r)
			}
			if params.ActivityHandler != nil {
				params.ActivityHandler.MountRoutes(r)
			}
			if params.DashboardHandler != nil {
				params.DashboardHandler.MountRoutes(r)
			}
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
