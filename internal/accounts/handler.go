package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// Handler exposes the settings endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers settings routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings", h.show)
	r.Put("/settings/profile", h.updateProfile)
	r.Put("/settings/account", h.updateAccount)
}

type settingsPayload struct {
	Profile   *Profile       `json:"profile"`
	Account   map[string]any `json:"account"`
	Invoicing map[string]any `json:"invoicing"`
	Branding  map[string]any `json:"branding"`
}

func accountSections(a *Account) (company, invoicing, branding map[string]any) {
	company = map[string]any{
		"company_name":     a.CompanyName,
		"company_address":  a.CompanyAddress,
		"company_phone":    a.CompanyPhone,
		"company_website":  a.CompanyWebsite,
		"company_tax_id":   a.CompanyTaxID,
		"company_logo_url": a.CompanyLogoURL,
	}
	invoicing = map[string]any{
		"default_currency":           a.DefaultCurrency,
		"invoice_prefix":             a.InvoicePrefix,
		"default_tax_rate":           a.DefaultTaxRate,
		"tax_name":                   a.TaxName,
		"tax_inclusive":              a.TaxInclusive,
		"default_payment_terms_days": a.DefaultPaymentTermsDays,
	}
	branding = map[string]any{
		"invoice_template":     a.InvoiceTemplate,
		"invoice_accent_color": a.InvoiceAccentColor,
		"invoice_footer":       a.InvoiceFooter,
	}
	return company, invoicing, branding
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ViewSettings) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	account, err := h.service.Get(r.Context(), identity.AccountID)
	if err != nil {
		h.logger.Error("load account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.GetProfile(r.Context(), identity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	company, invoicing, branding := accountSections(account)
	httpx.JSON(w, http.StatusOK, settingsPayload{
		Profile:   profile,
		Account:   company,
		Invoicing: invoicing,
		Branding:  branding,
	})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	var req UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	profile, err := h.service.UpdateProfile(r.Context(), identity, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"profile": profile})
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if !identity.Can(authz.ManageSettings) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	var req UpdateAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), identity, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	company, invoicing, branding := accountSections(account)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"account":   company,
		"invoicing": invoicing,
		"branding":  branding,
	})
}
