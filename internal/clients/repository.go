package clients

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

const clientColumns = `id, account_id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(company_name, ''), COALESCE(address, ''), COALESCE(notes, ''), created_at, updated_at`

// PGRepository stores clients and their attachments in Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.AccountID, &c.Name, &c.Email, &c.Phone, &c.CompanyName, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PGRepository) List(ctx context.Context, accountID int64, f ListFilters) ([]Client, int, error) {
	req := shared.NewPageRequest(f.Page, f.PerPage)
	where := []string{"account_id = $1"}
	args := []any{accountID}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		p := fmt.Sprintf("$%d", len(args))
		where = append(where, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s OR company_name ILIKE %s)", p, p, p))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM clients WHERE %s`, cond), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	args = append(args, req.PerPage, req.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM clients WHERE %s ORDER BY name ASC LIMIT $%d OFFSET $%d`,
		clientColumns, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, accountID, clientID int64) (Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM clients WHERE account_id = $1 AND id = $2`, clientColumns), accountID, clientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, httpx.ErrNotFound
	}
	if err != nil {
		return Client{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (r *PGRepository) Create(ctx context.Context, c Client) (Client, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO clients (account_id, name, email, phone, company_name, address, notes, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), now(), now())
		RETURNING %s`, clientColumns),
		c.AccountID, c.Name, c.Email, c.Phone, c.CompanyName, c.Address, c.Notes)
	created, err := scanClient(row)
	if err != nil {
		return Client{}, fmt.Errorf("insert client: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Update(ctx context.Context, accountID, clientID int64, fields map[string]any) (Client, error) {
	set := make([]string, 0, len(fields)+1)
	args := []any{accountID, clientID}
	for col, v := range fields {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = NULLIF($%d, '')", col, len(args)))
	}
	// name stays NOT NULL; the service never sends it empty.
	set = append(set, "updated_at = now()")

	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`UPDATE clients SET %s WHERE account_id = $1 AND id = $2 RETURNING %s`,
		strings.Join(set, ", "), clientColumns), args...)
	c, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, httpx.ErrNotFound
	}
	if err != nil {
		return Client{}, fmt.Errorf("update client: %w", err)
	}
	return c, nil
}

// Delete removes the client, its attachments and detaches its
// invoices, all in one transaction.
func (r *PGRepository) Delete(ctx context.Context, accountID, clientID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE invoices SET client_id = NULL WHERE account_id = $1 AND client_id = $2`,
			accountID, clientID); err != nil {
			return fmt.Errorf("detach invoices: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM client_attachments WHERE account_id = $1 AND client_id = $2`,
			accountID, clientID); err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		tag, err := tx.Exec(ctx,
			`DELETE FROM clients WHERE account_id = $1 AND id = $2`, accountID, clientID)
		if err != nil {
			return fmt.Errorf("delete client: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		return nil
	})
}

const attachmentColumns = `id, account_id, client_id, file_name, content_type, byte_size, storage_key, created_at`

func scanAttachment(row pgx.Row) (Attachment, error) {
	var a Attachment
	err := row.Scan(&a.ID, &a.AccountID, &a.ClientID, &a.FileName, &a.ContentType, &a.ByteSize, &a.StorageKey, &a.CreatedAt)
	return a, err
}

func (r *PGRepository) ListAttachments(ctx context.Context, accountID, clientID int64) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM client_attachments WHERE account_id = $1 AND client_id = $2 ORDER BY created_at DESC`,
		attachmentColumns), accountID, clientID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PGRepository) InsertAttachment(ctx context.Context, a Attachment) (Attachment, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO client_attachments (account_id, client_id, file_name, content_type, byte_size, storage_key, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING %s`, attachmentColumns),
		a.AccountID, a.ClientID, a.FileName, a.ContentType, a.ByteSize, a.StorageKey, a.Data)
	created, err := scanAttachment(row)
	if err != nil {
		return Attachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return created, nil
}

// GetAttachment loads one attachment including its bytes.
func (r *PGRepository) GetAttachment(ctx context.Context, accountID, clientID, attachmentID int64) (Attachment, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s, data FROM client_attachments WHERE account_id = $1 AND client_id = $2 AND id = $3`,
		attachmentColumns), accountID, clientID, attachmentID)
	var a Attachment
	err := row.Scan(&a.ID, &a.AccountID, &a.ClientID, &a.FileName, &a.ContentType, &a.ByteSize, &a.StorageKey, &a.CreatedAt, &a.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attachment{}, httpx.ErrNotFound
	}
	if err != nil {
		return Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

func (r *PGRepository) DeleteAttachment(ctx context.Context, accountID, clientID, attachmentID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM client_attachments WHERE account_id = $1 AND client_id = $2 AND id = $3`,
		accountID, clientID, attachmentID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
