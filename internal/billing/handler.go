package billing

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// Handler exposes the billing endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/billing/plans", h.listPlans)
	r.Get("/billing/subscription", h.current)
	r.Post("/billing/subscription", h.subscribe)
	r.Delete("/billing/subscription", h.cancel)
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ViewBilling) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		h.logger.Error("list plans", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if plans == nil {
		plans = []Plan{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ViewBilling) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	sub, err := h.service.Current(r.Context(), identity.AccountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManageBilling) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req SubscribeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sub, err := h.service.Subscribe(r.Context(), identity, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManageBilling) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	if err := h.service.CancelCurrent(r.Context(), identity); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
