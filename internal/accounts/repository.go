package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the account or user does not exist.
var ErrNotFound = errors.New("accounts: not found")

// Repository provides PostgreSQL backed persistence for accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, name, default_currency, invoice_prefix, default_tax_rate,
	COALESCE(tax_name, ''), tax_inclusive, default_payment_terms_days,
	COALESCE(company_name, ''), COALESCE(company_address, ''), COALESCE(company_phone, ''),
	COALESCE(company_website, ''), COALESCE(company_tax_id, ''), COALESCE(company_logo_url, ''),
	COALESCE(invoice_template, 'classic'), COALESCE(invoice_accent_color, ''), COALESCE(invoice_footer, ''),
	created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.DefaultCurrency, &a.InvoicePrefix, &a.DefaultTaxRate,
		&a.TaxName, &a.TaxInclusive, &a.DefaultPaymentTermsDays,
		&a.CompanyName, &a.CompanyAddress, &a.CompanyPhone,
		&a.CompanyWebsite, &a.CompanyTaxID, &a.CompanyLogoURL,
		&a.InvoiceTemplate, &a.InvoiceAccentColor, &a.InvoiceFooter,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Get fetches an account by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// Update applies a partial column update and returns the fresh row.
func (r *Repository) Update(ctx context.Context, id int64, updates map[string]any) (*Account, error) {
	if len(updates) == 0 {
		return r.Get(ctx, id)
	}
	sets := make([]string, 0, len(updates)+1)
	args := []any{id}
	for col, val := range updates {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	query := `UPDATE accounts SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, args...))
}

// GetProfile returns the profile fields of one user.
func (r *Repository) GetProfile(ctx context.Context, accountID, userID int64) (*Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx,
		`SELECT TRIM(CONCAT(first_name, ' ', last_name)), email,
			COALESCE(job_title, ''), COALESCE(phone, ''), COALESCE(avatar_url, ''),
			COALESCE(locale, ''), COALESCE(timezone, '')
		 FROM users WHERE id = $1 AND account_id = $2`,
		userID, accountID).
		Scan(&p.Name, &p.Email, &p.JobTitle, &p.Phone, &p.AvatarURL, &p.Locale, &p.Timezone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdateProfile applies a partial profile update to one user.
func (r *Repository) UpdateProfile(ctx context.Context, accountID, userID int64, updates map[string]any) (*Profile, error) {
	if len(updates) > 0 {
		sets := make([]string, 0, len(updates)+1)
		args := []any{userID, accountID}
		for col, val := range updates {
			args = append(args, val)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
		sets = append(sets, "updated_at = NOW()")
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND account_id = $2`, args...)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}
	return r.GetProfile(ctx, accountID, userID)
}
