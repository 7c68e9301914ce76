// Package accounts manages the tenant account and its settings.
package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currencies is the closed set of supported account currencies.
var Currencies = []string{"USD", "EUR", "GBP", "SAR", "EGP"}

// ValidCurrency reports whether code is a supported currency.
func ValidCurrency(code string) bool {
	for _, c := range Currencies {
		if c == code {
			return true
		}
	}
	return false
}

// Account is the tenant boundary. Every business record hangs off one
// account and inherits its currency and tax defaults.
type Account struct {
	ID                      int64           `json:"id"`
	Name                    string          `json:"name"`
	DefaultCurrency         string          `json:"default_currency"`
	InvoicePrefix           string          `json:"invoice_prefix"`
	DefaultTaxRate          decimal.Decimal `json:"default_tax_rate"`
	TaxName                 string          `json:"tax_name"`
	TaxInclusive            bool            `json:"tax_inclusive"`
	DefaultPaymentTermsDays int             `json:"default_payment_terms_days"`

	CompanyName    string `json:"company_name"`
	CompanyAddress string `json:"company_address"`
	CompanyPhone   string `json:"company_phone"`
	CompanyWebsite string `json:"company_website"`
	CompanyTaxID   string `json:"company_tax_id"`
	CompanyLogoURL string `json:"company_logo_url"`

	InvoiceTemplate    string `json:"invoice_template"`
	InvoiceAccentColor string `json:"invoice_accent_color"`
	InvoiceFooter      string `json:"invoice_footer"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the per-user profile slice of the settings page.
type Profile struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	JobTitle  string `json:"job_title"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
	Locale    string `json:"locale"`
	Timezone  string `json:"timezone"`
}

// UpdateProfileRequest updates the caller's own profile.
type UpdateProfileRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,max=200"`
	JobTitle  *string `json:"job_title,omitempty" validate:"omitempty,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,max=500"`
	Locale    *string `json:"locale,omitempty" validate:"omitempty,max=20"`
	Timezone  *string `json:"timezone,omitempty" validate:"omitempty,max=50"`
}

// UpdateAccountRequest updates company and invoicing settings.
type UpdateAccountRequest struct {
	CompanyName    *string `json:"company_name,omitempty" validate:"omitempty,max=200"`
	CompanyAddress *string `json:"company_address,omitempty" validate:"omitempty,max=500"`
	CompanyPhone   *string `json:"company_phone,omitempty" validate:"omitempty,max=50"`
	CompanyWebsite *string `json:"company_website,omitempty" validate:"omitempty,max=200"`
	CompanyTaxID   *string `json:"company_tax_id,omitempty" validate:"omitempty,max=100"`
	CompanyLogoURL *string `json:"company_logo_url,omitempty" validate:"omitempty,max=500"`

	DefaultCurrency         *string          `json:"default_currency,omitempty" validate:"omitempty,oneof=USD EUR GBP SAR EGP"`
	InvoicePrefix           *string          `json:"invoice_prefix,omitempty" validate:"omitempty,min=1,max=10"`
	DefaultTaxRate          *decimal.Decimal `json:"default_tax_rate,omitempty"`
	TaxName                 *string          `json:"tax_name,omitempty" validate:"omitempty,max=50"`
	TaxInclusive            *bool            `json:"tax_inclusive,omitempty"`
	DefaultPaymentTermsDays *int             `json:"default_payment_terms_days,omitempty" validate:"omitempty,gt=0,lte=365"`

	InvoiceTemplate    *string `json:"invoice_template,omitempty" validate:"omitempty,oneof=classic modern minimal"`
	InvoiceAccentColor *string `json:"invoice_accent_color,omitempty" validate:"omitempty,hexcolor"`
	InvoiceFooter      *string `json:"invoice_footer,omitempty" validate:"omitempty,max=1000"`
}
