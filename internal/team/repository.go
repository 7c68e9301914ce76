package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/db"
	"github.com/invora-hq/invora/internal/platform/httpx"
)

// ErrEmailTaken is returned when an invite collides with an existing user.
var ErrEmailTaken = errors.New("email already taken")

const memberColumns = `id, account_id, COALESCE(first_name, ''), COALESCE(last_name, ''), email, role, status, created_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRepository exposes the member operations that must observe one
// consistent view of the account's owners.
type TxRepository interface {
	FindForUpdate(ctx context.Context, accountID, userID int64) (Member, error)
	Update(ctx context.Context, accountID, userID int64, fields map[string]any) (Member, error)
	CountActiveOwnersExcept(ctx context.Context, accountID, excludeUserID int64) (int64, error)
	CountActive(ctx context.Context, accountID int64) (int64, error)
	SeatLimit(ctx context.Context, accountID int64) (*int64, error)
}

// PGRepository stores members in the users table.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
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

func scanMember(row pgx.Row) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.AccountID, &m.FirstName, &m.LastName, &m.Email, &m.Role, &m.Status, &m.CreatedAt)
	return m, err
}

func (r *PGRepository) List(ctx context.Context, accountID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM users WHERE account_id = $1 ORDER BY created_at ASC`, memberColumns), accountID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *PGRepository) Insert(ctx context.Context, m Member, passwordDigest string) (Member, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO users (account_id, first_name, last_name, email, password_hash, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING %s`, memberColumns),
		m.AccountID, m.FirstName, m.LastName, m.Email, passwordDigest, m.Role, m.Status)
	created, err := scanMember(row)
	if db.IsUniqueViolation(err, "users_email_key") {
		return Member{}, ErrEmailTaken
	}
	if err != nil {
		return Member{}, fmt.Errorf("insert member: %w", err)
	}
	return created, nil
}

func (r *PGRepository) CountActive(ctx context.Context, accountID int64) (int64, error) {
	return countActive(ctx, r.pool, accountID)
}

func (r *PGRepository) SeatLimit(ctx context.Context, accountID int64) (*int64, error) {
	return seatLimit(ctx, r.pool, accountID)
}

// FindForUpdate locks the member row for the rest of the transaction.
func (t *txRepo) FindForUpdate(ctx context.Context, accountID, userID int64) (Member, error) {
	m, err := scanMember(t.tx.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM users WHERE account_id = $1 AND id = $2 FOR UPDATE`, memberColumns), accountID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, httpx.ErrNotFound
	}
	if err != nil {
		return Member{}, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

// Update persists role/status changes for a member.
func (t *txRepo) Update(ctx context.Context, accountID, userID int64, fields map[string]any) (Member, error) {
	set := make([]string, 0, len(fields)+1)
	args := []any{accountID, userID}
	for col, v := range fields {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	set = append(set, "updated_at = now()")

	row := t.tx.QueryRow(ctx, fmt.Sprintf(
		`UPDATE users SET %s WHERE account_id = $1 AND id = $2 RETURNING %s`,
		strings.Join(set, ", "), memberColumns), args...)
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, httpx.ErrNotFound
	}
	if err != nil {
		return Member{}, fmt.Errorf("update member: %w", err)
	}
	return m, nil
}

// CountActiveOwnersExcept counts active owners other than the given
// user, locking their rows. A zero result means the change under
// consideration would strand the account without an owner; the lock
// keeps a concurrent demotion of those same owners from slipping past
// the check.
func (t *txRepo) CountActiveOwnersExcept(ctx context.Context, accountID, excludeUserID int64) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM (
			SELECT id FROM users
			WHERE account_id = $1 AND id <> $2 AND role = $3 AND status = $4
			FOR UPDATE
		) owners`,
		accountID, excludeUserID, authz.RoleOwner, StatusActive).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active owners: %w", err)
	}
	return n, nil
}

func (t *txRepo) CountActive(ctx context.Context, accountID int64) (int64, error) {
	return countActive(ctx, t.tx, accountID)
}

func (t *txRepo) SeatLimit(ctx context.Context, accountID int64) (*int64, error) {
	return seatLimit(ctx, t.tx, accountID)
}

func countActive(ctx context.Context, q querier, accountID int64) (int64, error) {
	var n int64
	err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE account_id = $1 AND status = $2`,
		accountID, StatusActive).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active members: %w", err)
	}
	return n, nil
}

// seatLimit returns the max_users of the account's current
// subscription plan, or nil when the account has no subscription or
// the plan is unlimited.
func seatLimit(ctx context.Context, q querier, accountID int64) (*int64, error) {
	var limit *int64
	err := q.QueryRow(ctx, `
		SELECT p.max_users
		FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.account_id = $1 AND s.status = 'active'
		ORDER BY s.created_at DESC
		LIMIT 1`, accountID).Scan(&limit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("seat limit: %w", err)
	}
	return limit, nil
}
