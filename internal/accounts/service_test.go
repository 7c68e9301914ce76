package accounts

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

type memoryAccountRepo struct {
	account        Account
	profile        Profile
	lastUpdates    map[string]any
	profileUpdates map[string]any
}

func (r *memoryAccountRepo) Get(_ context.Context, id int64) (*Account, error) {
	if id != r.account.ID {
		return nil, httpx.ErrNotFound
	}
	a := r.account
	return &a, nil
}

func (r *memoryAccountRepo) Update(_ context.Context, id int64, updates map[string]any) (*Account, error) {
	if id != r.account.ID {
		return nil, httpx.ErrNotFound
	}
	r.lastUpdates = updates
	if v, ok := updates["default_currency"].(string); ok {
		r.account.DefaultCurrency = v
	}
	if v, ok := updates["invoice_prefix"].(string); ok {
		r.account.InvoicePrefix = v
	}
	a := r.account
	return &a, nil
}

func (r *memoryAccountRepo) GetProfile(_ context.Context, accountID, userID int64) (*Profile, error) {
	p := r.profile
	return &p, nil
}

func (r *memoryAccountRepo) UpdateProfile(_ context.Context, accountID, userID int64, updates map[string]any) (*Profile, error) {
	r.profileUpdates = updates
	p := r.profile
	return &p, nil
}

func newAccountsFixture() (*Service, *memoryAccountRepo) {
	repo := &memoryAccountRepo{
		account: Account{ID: 1, Name: "Acme", DefaultCurrency: "USD", InvoicePrefix: "INV"},
		profile: Profile{Name: "Grace Hopper", Email: "grace@acme.test"},
	}
	return NewService(repo, nil), repo
}

func testIdentity() shared.Identity {
	return shared.Identity{UserID: 7, AccountID: 1, Role: authz.RoleOwner, Active: true}
}

func strPtr(s string) *string { return &s }

func TestUpdateAccountRejectsUnknownCurrency(t *testing.T) {
	svc, repo := newAccountsFixture()

	_, err := svc.UpdateAccount(context.Background(), testIdentity(), UpdateAccountRequest{
		DefaultCurrency: strPtr("XYZ"),
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
	assert.Nil(t, repo.lastUpdates)
}

func TestUpdateAccountTaxRateBounds(t *testing.T) {
	svc, _ := newAccountsFixture()

	for _, rate := range []decimal.Decimal{decimal.NewFromInt(-1), decimal.NewFromInt(51)} {
		r := rate
		_, err := svc.UpdateAccount(context.Background(), testIdentity(), UpdateAccountRequest{
			DefaultTaxRate: &r,
		})
		require.ErrorIs(t, err, httpx.ErrValidation, "rate %s should be rejected", rate)
	}

	fifty := decimal.NewFromInt(50)
	_, err := svc.UpdateAccount(context.Background(), testIdentity(), UpdateAccountRequest{
		DefaultTaxRate: &fifty,
	})
	require.NoError(t, err)
}

func TestUpdateAccountNormalizesInvoicePrefix(t *testing.T) {
	svc, repo := newAccountsFixture()

	account, err := svc.UpdateAccount(context.Background(), testIdentity(), UpdateAccountRequest{
		InvoicePrefix: strPtr("  acme "),
	})
	require.NoError(t, err)
	assert.Equal(t, "ACME", account.InvoicePrefix)
	assert.Equal(t, "ACME", repo.lastUpdates["invoice_prefix"])

	_, err = svc.UpdateAccount(context.Background(), testIdentity(), UpdateAccountRequest{
		InvoicePrefix: strPtr("   "),
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateProfileSplitsName(t *testing.T) {
	svc, repo := newAccountsFixture()

	_, err := svc.UpdateProfile(context.Background(), testIdentity(), UpdateProfileRequest{
		Name: strPtr("Grace Hopper"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace", repo.profileUpdates["first_name"])
	assert.Equal(t, "Hopper", repo.profileUpdates["last_name"])
}

func TestDefaultCurrency(t *testing.T) {
	svc, _ := newAccountsFixture()

	currency, err := svc.DefaultCurrency(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "USD", currency)

	_, err = svc.DefaultCurrency(context.Background(), 99)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
