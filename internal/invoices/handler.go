package invoices

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// Handler exposes the invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers invoice and payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		// Reads are open to any active member; only writes need the
		// manage permission.
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Group(func(r chi.Router) {
			r.Use(requireManageInvoices)
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
			r.Post("/{id}/duplicate", h.duplicate)
			r.Post("/{id}/payments", h.addPayment)
			r.Delete("/{id}/payments/{paymentID}", h.deletePayment)
		})
	})
}

func requireManageInvoices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := shared.IdentityFromContext(r.Context())
		if !identity.Can(authz.ManageInvoices) {
			httpx.RespondError(w, httpx.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func queryDate(r *http.Request, key string) time.Time {
	t, err := time.Parse("2006-01-02", r.URL.Query().Get(key))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	clientID, _ := strconv.ParseInt(r.URL.Query().Get("client_id"), 10, 64)
	filters := ListFilters{
		Query:    r.URL.Query().Get("q"),
		Status:   Status(r.URL.Query().Get("status")),
		ClientID: clientID,
		From:     queryDate(r, "from"),
		To:       queryDate(r, "to"),
		Page:     httpx.QueryInt(r, "page", 1),
		PerPage:  httpx.QueryInt(r, "per_page", 20),
	}
	if filters.Status != "" && !filters.Status.Valid() {
		httpx.RespondError(w, httpx.NewValidationError(httpx.FieldError{Field: "status", Message: "is not a valid status"}))
		return
	}
	invoices, pagination, err := h.service.List(r.Context(), identity.AccountID, filters)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if invoices == nil {
		invoices = []Invoice{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": invoices, "pagination": pagination})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	invoice, err := h.service.Get(r.Context(), identity.AccountID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.Create(r.Context(), identity, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
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
	invoice, err := h.service.Update(r.Context(), identity, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) duplicate(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	invoice, err := h.service.Duplicate(r.Context(), identity, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManagePayments) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var req PaymentInput
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.AddPayment(r.Context(), identity, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManagePayments) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	invoice, err := h.service.DeletePayment(r.Context(), identity, id, paymentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}
