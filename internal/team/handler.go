package team

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// Handler exposes the team management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers team routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/team", h.list)
	r.Post("/team", h.invite)
	r.Put("/team/{id}", h.update)
	r.Delete("/team/{id}", h.deactivate)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManageTeam) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	members, err := h.service.List(r.Context(), identity.AccountID)
	if err != nil {
		h.logger.Error("list team", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]memberPayload, 0, len(members))
	for _, m := range members {
		out = append(out, payload(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": out})
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManageTeam) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req InviteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	member, err := h.service.Invite(r.Context(), identity, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payload(member))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManageTeam) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	member, err := h.service.Update(r.Context(), identity, userID, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload(member))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManageTeam) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	member, err := h.service.Deactivate(r.Context(), identity, userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payload(member))
}
