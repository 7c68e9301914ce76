package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invora-hq/invora/internal/platform/db"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// ErrSKUTaken is returned when a SKU collides within the account.
var ErrSKUTaken = errors.New("sku already taken")

const productColumns = `id, account_id, name, COALESCE(description, ''), COALESCE(sku, ''), unit_price, currency, product_type, active, created_at, updated_at`

// PGRepository stores the catalog in Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.AccountID, &p.Name, &p.Description, &p.SKU, &p.UnitPrice, &p.Currency, &p.ProductType, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PGRepository) List(ctx context.Context, accountID int64, f ListFilters) ([]Product, int, error) {
	req := shared.NewPageRequest(f.Page, f.PerPage)
	where := []string{"account_id = $1"}
	args := []any{accountID}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		p := fmt.Sprintf("$%d", len(args))
		where = append(where, fmt.Sprintf("(name ILIKE %s OR sku ILIKE %s)", p, p))
	}
	if f.ActiveOnly {
		where = append(where, "active")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM products WHERE %s`, cond), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	args = append(args, req.PerPage, req.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM products WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		productColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, accountID, productID int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM products WHERE account_id = $1 AND id = $2`, productColumns), accountID, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, httpx.ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *PGRepository) Create(ctx context.Context, p Product) (Product, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO products (account_id, name, description, sku, unit_price, currency, product_type, active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, now(), now())
		RETURNING %s`, productColumns),
		p.AccountID, p.Name, p.Description, p.SKU, p.UnitPrice, p.Currency, p.ProductType, p.Active)
	created, err := scanProduct(row)
	if db.IsUniqueViolation(err, "products_account_id_sku_key") {
		return Product{}, ErrSKUTaken
	}
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Update(ctx context.Context, accountID, productID int64, fields map[string]any) (Product, error) {
	set := make([]string, 0, len(fields)+1)
	args := []any{accountID, productID}
	for col, v := range fields {
		args = append(args, v)
		placeholder := fmt.Sprintf("$%d", len(args))
		if col == "description" || col == "sku" {
			placeholder = fmt.Sprintf("NULLIF($%d, '')", len(args))
		}
		set = append(set, fmt.Sprintf("%s = %s", col, placeholder))
	}
	set = append(set, "updated_at = now()")

	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`UPDATE products SET %s WHERE account_id = $1 AND id = $2 RETURNING %s`,
		strings.Join(set, ", "), productColumns), args...)
	p, err := scanProduct(row)
	if db.IsUniqueViolation(err, "products_account_id_sku_key") {
		return Product{}, ErrSKUTaken
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, httpx.ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// Autocomplete returns up to limit active products whose name or SKU
// starts with the prefix.
func (r *PGRepository) Autocomplete(ctx context.Context, accountID int64, prefix string, limit int) ([]Product, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM products
		WHERE account_id = $1 AND active AND (name ILIKE $2 OR sku ILIKE $2)
		ORDER BY name ASC
		LIMIT $3`, productColumns),
		accountID, prefix+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
