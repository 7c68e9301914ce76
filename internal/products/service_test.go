package products

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

type memoryProductRepo struct {
	nextID   int64
	products map[int64]Product
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{nextID: 1, products: map[int64]Product{}}
}

func (r *memoryProductRepo) List(_ context.Context, accountID int64, f ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		if p.AccountID != accountID {
			continue
		}
		if f.ActiveOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (r *memoryProductRepo) Get(_ context.Context, accountID, productID int64) (Product, error) {
	p, ok := r.products[productID]
	if !ok || p.AccountID != accountID {
		return Product{}, httpx.ErrNotFound
	}
	return p, nil
}

func (r *memoryProductRepo) Create(_ context.Context, p Product) (Product, error) {
	if p.SKU != "" {
		for _, existing := range r.products {
			if existing.AccountID == p.AccountID && existing.SKU == p.SKU {
				return Product{}, ErrSKUTaken
			}
		}
	}
	p.ID = r.nextID
	r.nextID++
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryProductRepo) Update(_ context.Context, accountID, productID int64, fields map[string]any) (Product, error) {
	p, err := r.Get(context.Background(), accountID, productID)
	if err != nil {
		return Product{}, err
	}
	if v, ok := fields["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := fields["unit_price"]; ok {
		p.UnitPrice = v.(decimal.Decimal)
	}
	if v, ok := fields["active"]; ok {
		p.Active = v.(bool)
	}
	r.products[productID] = p
	return p, nil
}

func (r *memoryProductRepo) Autocomplete(_ context.Context, accountID int64, prefix string, limit int) ([]Product, error) {
	var out []Product
	needle := strings.TrimSuffix(strings.ToLower(prefix), "%")
	for _, p := range r.products {
		if p.AccountID != accountID || !p.Active {
			continue
		}
		if strings.HasPrefix(strings.ToLower(p.Name), needle) || strings.HasPrefix(strings.ToLower(p.SKU), needle) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type staticCurrency string

func (c staticCurrency) DefaultCurrency(context.Context, int64) (string, error) {
	return string(c), nil
}

var actor = shared.Identity{UserID: 3, AccountID: 1, Active: true}

func TestCreateUsesAccountCurrency(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, staticCurrency("EUR"), nil)

	product, err := svc.Create(context.Background(), actor, CreateRequest{
		Name:      "Consulting Hour",
		UnitPrice: decimal.NewFromInt(120),
	})
	require.NoError(t, err)
	assert.Equal(t, "EUR", product.Currency)
	assert.Equal(t, TypeProduct, product.ProductType)
	assert.True(t, product.Active)
}

func TestCreateRejectsForeignCurrency(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, staticCurrency("USD"), nil)

	_, err := svc.Create(context.Background(), actor, CreateRequest{
		Name:      "Consulting Hour",
		UnitPrice: decimal.NewFromInt(120),
		Currency:  "EUR",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.products)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, staticCurrency("USD"), nil)

	_, err := svc.Create(context.Background(), actor, CreateRequest{
		Name:      "Bad",
		UnitPrice: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateDuplicateSKU(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, staticCurrency("USD"), nil)

	_, err := svc.Create(context.Background(), actor, CreateRequest{Name: "A", SKU: "SKU-1"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), actor, CreateRequest{Name: "B", SKU: "SKU-1"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestDeactivateIsSoft(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, staticCurrency("USD"), nil)
	product, err := svc.Create(context.Background(), actor, CreateRequest{Name: "Widget"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), actor, product.ID))

	kept, err := svc.Get(context.Background(), actor.AccountID, product.ID)
	require.NoError(t, err)
	assert.False(t, kept.Active)

	active, _, err := svc.List(context.Background(), actor.AccountID, ListFilters{ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestAutocompleteEmptyPrefix(t *testing.T) {
	repo := newMemoryProductRepo()
	svc := NewService(repo, staticCurrency("USD"), nil)

	products, err := svc.Autocomplete(context.Background(), actor.AccountID, "  ")
	require.NoError(t, err)
	assert.Nil(t, products)
}
