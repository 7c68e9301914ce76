package invoices

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invora-hq/invora/internal/accounts"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

type memoryInvoiceRepo struct {
	nextID        int64
	invoices      map[int64]*Invoice
	conflictCount int
}

func newMemoryInvoiceRepo() *memoryInvoiceRepo {
	return &memoryInvoiceRepo{nextID: 1, invoices: map[int64]*Invoice{}}
}

func cloneInvoice(inv *Invoice) Invoice {
	out := *inv
	out.Items = append([]Item(nil), inv.Items...)
	out.Payments = append([]Payment(nil), inv.Payments...)
	return out
}

func (r *memoryInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryInvoiceRepo) Get(_ context.Context, accountID, invoiceID int64) (Invoice, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok || inv.AccountID != accountID {
		return Invoice{}, httpx.ErrNotFound
	}
	return cloneInvoice(inv), nil
}

func (r *memoryInvoiceRepo) List(_ context.Context, accountID int64, f ListFilters) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.AccountID != accountID {
			continue
		}
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	return out, len(out), nil
}

func (r *memoryInvoiceRepo) NumbersLike(_ context.Context, accountID int64, prefix string) ([]string, error) {
	var numbers []string
	for _, inv := range r.invoices {
		if inv.AccountID == accountID && strings.HasPrefix(inv.Number, prefix) {
			numbers = append(numbers, inv.Number)
		}
	}
	return numbers, nil
}

func (r *memoryInvoiceRepo) InsertInvoice(_ context.Context, inv Invoice) (int64, error) {
	if r.conflictCount > 0 {
		r.conflictCount--
		return 0, ErrNumberConflict
	}
	for _, existing := range r.invoices {
		if existing.AccountID == inv.AccountID && existing.Number == inv.Number {
			return 0, ErrNumberConflict
		}
	}
	inv.ID = r.nextID
	r.nextID++
	inv.Items = nil
	inv.Payments = nil
	r.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (r *memoryInvoiceRepo) InsertItem(_ context.Context, item Item) error {
	inv := r.invoices[item.InvoiceID]
	item.ID = r.nextID
	r.nextID++
	inv.Items = append(inv.Items, item)
	return nil
}

func (r *memoryInvoiceRepo) InsertPayment(_ context.Context, p Payment) (int64, error) {
	inv := r.invoices[p.InvoiceID]
	p.ID = r.nextID
	r.nextID++
	inv.Payments = append(inv.Payments, p)
	return p.ID, nil
}

func (r *memoryInvoiceRepo) UpdateInvoice(_ context.Context, inv Invoice) error {
	stored, ok := r.invoices[inv.ID]
	if !ok || stored.AccountID != inv.AccountID {
		return httpx.ErrNotFound
	}
	inv.Items = stored.Items
	inv.Payments = stored.Payments
	*stored = inv
	return nil
}

func (r *memoryInvoiceRepo) DeleteItems(_ context.Context, invoiceID int64) error {
	r.invoices[invoiceID].Items = nil
	return nil
}

func (r *memoryInvoiceRepo) DeletePayments(_ context.Context, invoiceID int64) error {
	r.invoices[invoiceID].Payments = nil
	return nil
}

func (r *memoryInvoiceRepo) DeletePayment(_ context.Context, invoiceID, paymentID int64) error {
	inv := r.invoices[invoiceID]
	for i, p := range inv.Payments {
		if p.ID == paymentID {
			inv.Payments = append(inv.Payments[:i], inv.Payments[i+1:]...)
			return nil
		}
	}
	return httpx.ErrNotFound
}

func (r *memoryInvoiceRepo) GetForUpdate(ctx context.Context, accountID, invoiceID int64) (Invoice, error) {
	return r.Get(ctx, accountID, invoiceID)
}

func (r *memoryInvoiceRepo) DeleteInvoice(_ context.Context, accountID, invoiceID int64) error {
	inv, ok := r.invoices[invoiceID]
	if !ok || inv.AccountID != accountID {
		return httpx.ErrNotFound
	}
	delete(r.invoices, invoiceID)
	return nil
}

type staticAccount accounts.Account

func (a *staticAccount) Get(context.Context, int64) (*accounts.Account, error) {
	return (*accounts.Account)(a), nil
}

var actor = shared.Identity{UserID: 5, AccountID: 1, Name: "Ana Ost", Active: true}

func newTestService(repo *memoryInvoiceRepo) *Service {
	account := &staticAccount{
		ID:                      1,
		DefaultCurrency:         "USD",
		InvoicePrefix:           "INV",
		DefaultTaxRate:          dec("10"),
		DefaultPaymentTermsDays: 30,
	}
	svc := NewService(repo, account, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestCreateAppliesAccountDefaults(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), actor, CreateRequest{
		Items: []ItemInput{{Description: "Design work", Quantity: 4, UnitPrice: dec("320.00")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", inv.Number)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, StatusDraft, inv.Status)
	assert.True(t, inv.TaxRate.Equal(dec("10")))
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), inv.IssueDate)
	assert.Equal(t, time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC), inv.DueDate)
	assert.True(t, inv.Total.Equal(dec("1408.00")), "total = %s", inv.Total)
}

func TestCreateNumbersAreSequential(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	req := CreateRequest{Items: []ItemInput{{Description: "Work", Quantity: 1, UnitPrice: dec("100")}}}
	first, err := svc.Create(context.Background(), actor, req)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), actor, req)
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-0001", first.Number)
	assert.Equal(t, "INV-2026-0002", second.Number)
}

func TestCreateRetriesNumberConflictOnce(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.conflictCount = 1
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), actor, CreateRequest{
		Items: []ItemInput{{Description: "Work", Quantity: 1, UnitPrice: dec("100")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", inv.Number)
}

func TestCreateGivesUpAfterSecondConflict(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	repo.conflictCount = 2
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), actor, CreateRequest{
		Items: []ItemInput{{Description: "Work", Quantity: 1, UnitPrice: dec("100")}},
	})
	assert.ErrorIs(t, err, ErrNumberConflict)
}

func TestCreateWithPaymentsDerivesStatus(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	inv, err := svc.Create(context.Background(), actor, CreateRequest{
		Items:    []ItemInput{{Description: "Work", Quantity: 1, UnitPrice: dec("100")}},
		Payments: []PaymentInput{{Amount: dec("110")}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, inv.Status)
	assert.True(t, inv.AmountPaid.Equal(dec("110")))
}

func TestCreateRejectsInvalidItems(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), actor, CreateRequest{
		Items: []ItemInput{{Description: "Work", Quantity: -1, UnitPrice: dec("100")}},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.invoices)
}

func TestUpdateRebuildsCollections(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), actor, CreateRequest{
		Items:    []ItemInput{{Description: "Old line", Quantity: 1, UnitPrice: dec("100")}},
		Payments: []PaymentInput{{Amount: dec("50")}},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), actor, created.ID, UpdateRequest{
		Items: []ItemInput{
			{Description: "New line", Quantity: 2, UnitPrice: dec("200")},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, "New line", updated.Items[0].Description)
	assert.True(t, updated.Subtotal.Equal(dec("400")))
	assert.Empty(t, updated.Payments)
	assert.True(t, updated.AmountPaid.IsZero())
	// Payment history was wiped but the earlier sent status sticks.
	assert.Equal(t, StatusSent, updated.Status)
	assert.Equal(t, created.Number, updated.Number)
}

func TestDuplicateCopiesLinesOnly(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	source, err := svc.Create(context.Background(), actor, CreateRequest{
		Items:    []ItemInput{{Description: "Work", Quantity: 2, UnitPrice: dec("150")}},
		Payments: []PaymentInput{{Amount: dec("330")}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, source.Status)

	dup, err := svc.Duplicate(context.Background(), actor, source.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0002", dup.Number)
	assert.Equal(t, StatusDraft, dup.Status)
	assert.Equal(t, "Duplicate of INV-2026-0001", dup.Notes)
	require.Len(t, dup.Items, 1)
	assert.True(t, dup.Items[0].LineTotal.Equal(dec("300")))
	assert.Empty(t, dup.Payments)
	assert.True(t, dup.AmountPaid.IsZero())
	assert.Equal(t, time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC), dup.DueDate)
}

func TestAddPaymentMarksPaid(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), actor, CreateRequest{
		Items: []ItemInput{{Description: "Work", Quantity: 1, UnitPrice: dec("100")}},
	})
	require.NoError(t, err)

	partial, err := svc.AddPayment(context.Background(), actor, created.ID, PaymentInput{Amount: dec("50")})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, partial.Status)

	full, err := svc.AddPayment(context.Background(), actor, created.ID, PaymentInput{Amount: dec("60")})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, full.Status)
	assert.True(t, full.AmountPaid.Equal(dec("110")))
}

func TestDeletePaymentKeepsPaidStatus(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), actor, CreateRequest{
		Items:    []ItemInput{{Description: "Work", Quantity: 1, UnitPrice: dec("100")}},
		Payments: []PaymentInput{{Amount: dec("110")}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, created.Status)
	require.Len(t, created.Payments, 1)

	after, err := svc.DeletePayment(context.Background(), actor, created.ID, created.Payments[0].ID)
	require.NoError(t, err)
	assert.Empty(t, after.Payments)
	assert.True(t, after.AmountPaid.IsZero())
	assert.Equal(t, StatusPaid, after.Status)
}

func TestDeleteRemovesInvoice(t *testing.T) {
	repo := newMemoryInvoiceRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), actor, CreateRequest{
		Items: []ItemInput{{Description: "Work", Quantity: 1, UnitPrice: dec("100")}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), actor, created.ID))
	_, err = svc.Get(context.Background(), actor.AccountID, created.ID)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
