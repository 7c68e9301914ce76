package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invora-hq/invora/internal/platform/db"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must share one
// transaction.
type TxRepository interface {
	NumbersLike(ctx context.Context, accountID int64, prefix string) ([]string, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertItem(ctx context.Context, item Item) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpdateInvoice(ctx context.Context, inv Invoice) error
	DeleteItems(ctx context.Context, invoiceID int64) error
	DeletePayments(ctx context.Context, invoiceID int64) error
	DeletePayment(ctx context.Context, invoiceID, paymentID int64) error
	GetForUpdate(ctx context.Context, accountID, invoiceID int64) (Invoice, error)
	DeleteInvoice(ctx context.Context, accountID, invoiceID int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepo{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const invoiceColumns = `i.id, i.account_id, i.client_id, i.number, i.status, i.issue_date, i.due_date, i.currency, i.tax_rate, COALESCE(i.notes, ''), i.subtotal, i.tax_total, i.total, i.amount_paid, i.created_at, i.updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.AccountID, &inv.ClientID, &inv.Number, &inv.Status, &inv.IssueDate, &inv.DueDate,
		&inv.Currency, &inv.TaxRate, &inv.Notes, &inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.AmountPaid,
		&inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func loadItems(ctx context.Context, q querier, invoiceID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, product_id, description, quantity, unit_price, line_total, position
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.Description, &it.Quantity, &it.UnitPrice, &it.LineTotal, &it.Position); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func loadPayments(ctx context.Context, q querier, invoiceID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, amount, paid_on, COALESCE(method, ''), COALESCE(reference, ''), created_at
		FROM payments WHERE invoice_id = $1 ORDER BY paid_on ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidOn, &p.Method, &p.Reference, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Fetch helpers

// Get returns the invoice with its items, payments and client name.
func (r *Repository) Get(ctx context.Context, accountID, invoiceID int64) (Invoice, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s, COALESCE(c.name, '')
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.account_id = $1 AND i.id = $2`, invoiceColumns), accountID, invoiceID)

	var inv Invoice
	err := row.Scan(&inv.ID, &inv.AccountID, &inv.ClientID, &inv.Number, &inv.Status, &inv.IssueDate, &inv.DueDate,
		&inv.Currency, &inv.TaxRate, &inv.Notes, &inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.AmountPaid,
		&inv.CreatedAt, &inv.UpdatedAt, &inv.ClientName)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, httpx.ErrNotFound
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	if inv.Items, err = loadItems(ctx, r.pool, inv.ID); err != nil {
		return Invoice{}, err
	}
	if inv.Payments, err = loadPayments(ctx, r.pool, inv.ID); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// List returns a page of invoice headers matching the filters.
func (r *Repository) List(ctx context.Context, accountID int64, f ListFilters) ([]Invoice, int, error) {
	req := shared.NewPageRequest(f.Page, f.PerPage)
	where := []string{"i.account_id = $1"}
	args := []any{accountID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Query != "" {
		p := arg("%" + f.Query + "%")
		where = append(where, fmt.Sprintf("(i.number ILIKE %s OR c.name ILIKE %s)", p, p))
	}
	if f.Status != "" {
		where = append(where, "i.status = "+arg(f.Status))
	}
	if f.ClientID != 0 {
		where = append(where, "i.client_id = "+arg(f.ClientID))
	}
	if !f.From.IsZero() {
		where = append(where, "i.issue_date >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "i.issue_date <= "+arg(f.To))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE %s`, cond), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	limit, offset := arg(req.PerPage), arg(req.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s, COALESCE(c.name, '')
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE %s
		ORDER BY i.issue_date DESC, i.id DESC
		LIMIT %s OFFSET %s`, invoiceColumns, cond, limit, offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.ClientID, &inv.Number, &inv.Status, &inv.IssueDate, &inv.DueDate,
			&inv.Currency, &inv.TaxRate, &inv.Notes, &inv.Subtotal, &inv.TaxTotal, &inv.Total, &inv.AmountPaid,
			&inv.CreatedAt, &inv.UpdatedAt, &inv.ClientName); err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

// Transactional operations

func (t *txRepo) NumbersLike(ctx context.Context, accountID int64, prefix string) ([]string, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT number FROM invoices WHERE account_id = $1 AND number LIKE $2`,
		accountID, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("numbers like: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (account_id, client_id, number, status, issue_date, due_date, currency, tax_rate, notes,
			subtotal, tax_total, total, amount_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13, now(), now())
		RETURNING id`,
		inv.AccountID, inv.ClientID, inv.Number, inv.Status, inv.IssueDate, inv.DueDate, inv.Currency, inv.TaxRate,
		inv.Notes, inv.Subtotal, inv.TaxTotal, inv.Total, inv.AmountPaid).Scan(&id)
	if db.IsUniqueViolation(err, "invoices_account_id_number_key") {
		return 0, ErrNumberConflict
	}
	if err != nil {
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	return id, nil
}

func (t *txRepo) InsertItem(ctx context.Context, item Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO invoice_items (invoice_id, product_id, description, quantity, unit_price, line_total, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.InvoiceID, item.ProductID, item.Description, item.Quantity, item.UnitPrice, item.LineTotal, item.Position)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (t *txRepo) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, amount, paid_on, method, reference, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), now())
		RETURNING id`,
		p.InvoiceID, p.Amount, p.PaidOn, p.Method, p.Reference).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (t *txRepo) UpdateInvoice(ctx context.Context, inv Invoice) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE invoices
		SET client_id = $3, status = $4, issue_date = $5, due_date = $6, tax_rate = $7, notes = NULLIF($8, ''),
			subtotal = $9, tax_total = $10, total = $11, amount_paid = $12, updated_at = now()
		WHERE account_id = $1 AND id = $2`,
		inv.AccountID, inv.ID, inv.ClientID, inv.Status, inv.IssueDate, inv.DueDate, inv.TaxRate, inv.Notes,
		inv.Subtotal, inv.TaxTotal, inv.Total, inv.AmountPaid)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteItems(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	return nil
}

func (t *txRepo) DeletePayments(ctx context.Context, invoiceID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM payments WHERE invoice_id = $1`, invoiceID)
	if err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	return nil
}

func (t *txRepo) DeletePayment(ctx context.Context, invoiceID, paymentID int64) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM payments WHERE invoice_id = $1 AND id = $2`, invoiceID, paymentID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// GetForUpdate locks the invoice row and loads its collections.
func (t *txRepo) GetForUpdate(ctx context.Context, accountID, invoiceID int64) (Invoice, error) {
	row := t.tx.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM invoices i WHERE i.account_id = $1 AND i.id = $2 FOR UPDATE`, invoiceColumns),
		accountID, invoiceID)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, httpx.ErrNotFound
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("get invoice for update: %w", err)
	}
	if inv.Items, err = loadItems(ctx, t.tx, inv.ID); err != nil {
		return Invoice{}, err
	}
	if inv.Payments, err = loadPayments(ctx, t.tx, inv.ID); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (t *txRepo) DeleteInvoice(ctx context.Context, accountID, invoiceID int64) error {
	if err := t.DeleteItems(ctx, invoiceID); err != nil {
		return err
	}
	if err := t.DeletePayments(ctx, invoiceID); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM invoices WHERE account_id = $1 AND id = $2`, accountID, invoiceID)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
