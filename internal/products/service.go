package products

import (
	"context"
	"strings"

	"github.com/invora-hq/invora/internal/activity"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// RepositoryPort is what the service needs from storage.
type RepositoryPort interface {
	List(ctx context.Context, accountID int64, f ListFilters) ([]Product, int, error)
	Get(ctx context.Context, accountID, productID int64) (Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, accountID, productID int64, fields map[string]any) (Product, error)
	Autocomplete(ctx context.Context, accountID int64, prefix string, limit int) ([]Product, error)
}

// CurrencySource resolves an account's default currency. Products are
// always priced in it.
type CurrencySource interface {
	DefaultCurrency(ctx context.Context, accountID int64) (string, error)
}

// Service implements the catalog operations.
type Service struct {
	repo       RepositoryPort
	currencies CurrencySource
	recorder   *activity.Recorder
}

func NewService(repo RepositoryPort, currencies CurrencySource, recorder *activity.Recorder) *Service {
	return &Service{repo: repo, currencies: currencies, recorder: recorder}
}

func (s *Service) List(ctx context.Context, accountID int64, f ListFilters) ([]Product, shared.Pagination, error) {
	products, total, err := s.repo.List(ctx, accountID, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	req := shared.NewPageRequest(f.Page, f.PerPage)
	return products, shared.NewPagination(req, total), nil
}

func (s *Service) Get(ctx context.Context, accountID, productID int64) (Product, error) {
	return s.repo.Get(ctx, accountID, productID)
}

// Create adds a catalog entry priced in the account's default
// currency.
func (s *Service) Create(ctx context.Context, actor shared.Identity, req CreateRequest) (Product, error) {
	if req.UnitPrice.IsNegative() {
		return Product{}, httpx.NewValidationError(httpx.FieldError{Field: "unit_price", Message: "must be greater than or equal to 0"})
	}
	currency, err := s.currencies.DefaultCurrency(ctx, actor.AccountID)
	if err != nil {
		return Product{}, err
	}
	if req.Currency != "" && !strings.EqualFold(req.Currency, currency) {
		return Product{}, httpx.NewValidationError(httpx.FieldError{Field: "currency", Message: "must match the account currency"})
	}
	productType := TypeProduct
	if req.ProductType != "" {
		productType = Type(req.ProductType)
	}
	product, err := s.repo.Create(ctx, Product{
		AccountID:   actor.AccountID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		SKU:         strings.TrimSpace(req.SKU),
		UnitPrice:   req.UnitPrice,
		Currency:    currency,
		ProductType: productType,
		Active:      true,
	})
	if err == ErrSKUTaken {
		return Product{}, httpx.NewValidationError(httpx.FieldError{Field: "sku", Message: "has already been taken"})
	}
	if err != nil {
		return Product{}, err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "product_created",
		SubjectType: "Product",
		SubjectID:   &product.ID,
		Metadata:    map[string]any{"name": product.Name},
	})
	return product, nil
}

func (s *Service) Update(ctx context.Context, actor shared.Identity, productID int64, req UpdateRequest) (Product, error) {
	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return Product{}, httpx.NewValidationError(httpx.FieldError{Field: "name", Message: "can't be blank"})
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.SKU != nil {
		fields["sku"] = strings.TrimSpace(*req.SKU)
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return Product{}, httpx.NewValidationError(httpx.FieldError{Field: "unit_price", Message: "must be greater than or equal to 0"})
		}
		fields["unit_price"] = *req.UnitPrice
	}
	if req.ProductType != nil {
		fields["product_type"] = Type(*req.ProductType)
	}
	if req.Active != nil {
		fields["active"] = *req.Active
	}
	if len(fields) == 0 {
		return s.repo.Get(ctx, actor.AccountID, productID)
	}
	product, err := s.repo.Update(ctx, actor.AccountID, productID, fields)
	if err == ErrSKUTaken {
		return Product{}, httpx.NewValidationError(httpx.FieldError{Field: "sku", Message: "has already been taken"})
	}
	if err != nil {
		return Product{}, err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "product_updated",
		SubjectType: "Product",
		SubjectID:   &product.ID,
	})
	return product, nil
}

// Deactivate soft-deletes: the product disappears from pickers but
// existing invoice lines keep their copied name and price.
func (s *Service) Deactivate(ctx context.Context, actor shared.Identity, productID int64) error {
	product, err := s.repo.Update(ctx, actor.AccountID, productID, map[string]any{"active": false})
	if err != nil {
		return err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "product_deactivated",
		SubjectType: "Product",
		SubjectID:   &product.ID,
		Metadata:    map[string]any{"name": product.Name},
	})
	return nil
}

func (s *Service) Autocomplete(ctx context.Context, accountID int64, prefix string) ([]Product, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	return s.repo.Autocomplete(ctx, accountID, prefix, 10)
}
