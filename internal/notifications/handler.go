package notifications

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// Handler exposes the notification inbox endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inbox routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Get("/notifications/unread_count", h.unreadCount)
	r.Post("/notifications/{id}/mark_read", h.markRead)
	r.Post("/notifications/mark_all_read", h.markAllRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	page := shared.NewPageRequest(httpx.QueryInt(r, "page", 1), httpx.QueryInt(r, "per_page", 20))

	items, meta, err := h.service.List(r.Context(), identity.AccountID, identity.UserID, unreadOnly, page)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "meta": meta})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	count, err := h.service.UnreadCount(r.Context(), identity.AccountID, identity.UserID)
	if err != nil {
		h.logger.Error("unread count", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid notification id")
		return
	}
	if err := h.service.MarkRead(r.Context(), identity.AccountID, identity.UserID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.MarkAllRead(r.Context(), identity.AccountID, identity.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
