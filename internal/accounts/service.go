package accounts

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invora-hq/invora/internal/activity"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// RepositoryPort defines data access methods for account settings.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Account, error)
	Update(ctx context.Context, id int64, updates map[string]any) (*Account, error)
	GetProfile(ctx context.Context, accountID, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, accountID, userID int64, updates map[string]any) (*Profile, error)
}

// Service handles account settings business logic.
type Service struct {
	repo     RepositoryPort
	recorder *activity.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *activity.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// Get returns the account.
func (s *Service) Get(ctx context.Context, accountID int64) (*Account, error) {
	return s.repo.Get(ctx, accountID)
}

// DefaultCurrency resolves the account's billing currency.
func (s *Service) DefaultCurrency(ctx context.Context, accountID int64) (string, error) {
	account, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	return account.DefaultCurrency, nil
}

// GetProfile returns the caller's profile.
func (s *Service) GetProfile(ctx context.Context, identity shared.Identity) (*Profile, error) {
	return s.repo.GetProfile(ctx, identity.AccountID, identity.UserID)
}

var (
	maxTaxRate = decimal.NewFromInt(50)
)

// UpdateAccount applies company/invoicing settings changes.
func (s *Service) UpdateAccount(ctx context.Context, identity shared.Identity, req UpdateAccountRequest) (*Account, error) {
	updates := make(map[string]any)
	setString := func(col string, v *string) {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	setString("company_name", req.CompanyName)
	setString("company_address", req.CompanyAddress)
	setString("company_phone", req.CompanyPhone)
	setString("company_website", req.CompanyWebsite)
	setString("company_tax_id", req.CompanyTaxID)
	setString("company_logo_url", req.CompanyLogoURL)
	setString("tax_name", req.TaxName)
	setString("invoice_template", req.InvoiceTemplate)
	setString("invoice_accent_color", req.InvoiceAccentColor)
	setString("invoice_footer", req.InvoiceFooter)

	if req.DefaultCurrency != nil {
		if !ValidCurrency(*req.DefaultCurrency) {
			return nil, httpx.NewValidationError(httpx.FieldError{Field: "default_currency", Message: "is not a supported currency"})
		}
		updates["default_currency"] = *req.DefaultCurrency
	}
	if req.InvoicePrefix != nil {
		prefix := strings.ToUpper(strings.TrimSpace(*req.InvoicePrefix))
		if prefix == "" {
			return nil, httpx.NewValidationError(httpx.FieldError{Field: "invoice_prefix", Message: "is required"})
		}
		updates["invoice_prefix"] = prefix
	}
	if req.DefaultTaxRate != nil {
		rate := *req.DefaultTaxRate
		if rate.IsNegative() || rate.GreaterThan(maxTaxRate) {
			return nil, httpx.NewValidationError(httpx.FieldError{Field: "default_tax_rate", Message: "must be between 0 and 50"})
		}
		updates["default_tax_rate"] = rate
	}
	if req.TaxInclusive != nil {
		updates["tax_inclusive"] = *req.TaxInclusive
	}
	if req.DefaultPaymentTermsDays != nil {
		updates["default_payment_terms_days"] = *req.DefaultPaymentTermsDays
	}

	account, err := s.repo.Update(ctx, identity.AccountID, updates)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0, len(updates))
	for col := range updates {
		changed = append(changed, col)
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   identity.AccountID,
		UserID:      &identity.UserID,
		Action:      "account_settings_updated",
		SubjectType: "Account",
		SubjectID:   &account.ID,
		Metadata:    map[string]any{"changed": changed},
	})
	return account, nil
}

// UpdateProfile applies the caller's own profile changes.
func (s *Service) UpdateProfile(ctx context.Context, identity shared.Identity, req UpdateProfileRequest) (*Profile, error) {
	updates := make(map[string]any)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		first, last, _ := strings.Cut(name, " ")
		updates["first_name"] = first
		updates["last_name"] = last
	}
	if req.JobTitle != nil {
		updates["job_title"] = strings.TrimSpace(*req.JobTitle)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = strings.TrimSpace(*req.AvatarURL)
	}
	if req.Locale != nil {
		updates["locale"] = strings.TrimSpace(*req.Locale)
	}
	if req.Timezone != nil {
		updates["timezone"] = strings.TrimSpace(*req.Timezone)
	}

	profile, err := s.repo.UpdateProfile(ctx, identity.AccountID, identity.UserID, updates)
	if err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID: identity.AccountID,
		UserID:    &identity.UserID,
		Action:    "profile_updated",
		Metadata:  map[string]any{"user_id": identity.UserID},
	})
	return profile, nil
}
