package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/db"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("auth: user not found")

// ErrEmailTaken indicates the email is already registered in the account.
var ErrEmailTaken = errors.New("auth: email already registered")

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	CreateAccountWithOwner(ctx context.Context, accountName, currency string, owner User) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, account_id, first_name, last_name, email, password_hash, role, status, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.AccountID, &u.FirstName, &u.LastName, &u.Email,
		&u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByEmail fetches a user by email address.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`,
		strings.TrimSpace(email))
	return scanUser(row)
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// CreateAccountWithOwner creates the tenant account and its first owner
// user atomically.
func (r *PGRepository) CreateAccountWithOwner(ctx context.Context, accountName, currency string, owner User) (*User, error) {
	var created *User
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		var accountID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO accounts (name, default_currency, invoice_prefix, default_tax_rate, default_payment_terms_days, created_at, updated_at)
			 VALUES ($1, $2, 'INV', 0, 30, $3, $3)
			 RETURNING id`,
			accountName, currency, now).Scan(&accountID)
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx,
			`INSERT INTO users (account_id, first_name, last_name, email, password_hash, role, status, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			 RETURNING `+userColumns,
			accountID, owner.FirstName, owner.LastName, owner.Email,
			owner.PasswordHash, authz.RoleOwner, StatusActive, now)
		created, err = scanUser(row)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

var _ Repository = (*PGRepository)(nil)
