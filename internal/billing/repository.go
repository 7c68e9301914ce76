package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invora-hq/invora/internal/platform/db"
	"github.com/invora-hq/invora/internal/platform/httpx"
)

const planColumns = `id, code, name, COALESCE(description, ''), price, currency, billing_interval, max_users, max_clients, active, created_at`

// PGRepository stores plans and subscriptions in Postgres.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func scanPlan(row pgx.Row) (Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Price, &p.Currency, &p.Interval, &p.MaxUsers, &p.MaxClients, &p.Active, &p.CreatedAt)
	return p, err
}

// ListPlans returns the active catalog ordered by price.
func (r *PGRepository) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM plans WHERE active ORDER BY price ASC`, planColumns))
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// FindPlanByCode resolves an active plan.
func (r *PGRepository) FindPlanByCode(ctx context.Context, code string) (Plan, error) {
	p, err := scanPlan(r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT %s FROM plans WHERE code = $1 AND active`, planColumns), code))
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, httpx.ErrNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("find plan: %w", err)
	}
	return p, nil
}

const subscriptionColumns = `s.id, s.account_id, s.plan_id, p.code, p.name, s.status, s.current_period_start, s.current_period_end, s.canceled_at, s.created_at`

func scanSubscription(row pgx.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.AccountID, &s.PlanID, &s.PlanCode, &s.PlanName, &s.Status, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CanceledAt, &s.CreatedAt)
	return s, err
}

// CurrentSubscription returns the account's occupying subscription, if
// any.
func (r *PGRepository) CurrentSubscription(ctx context.Context, accountID int64) (Subscription, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM subscriptions s
		JOIN plans p ON p.id = s.plan_id
		WHERE s.account_id = $1 AND s.status IN ('trialing', 'active', 'past_due')
		ORDER BY s.created_at DESC
		LIMIT 1`, subscriptionColumns), accountID)
	s, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subscription{}, httpx.ErrNotFound
	}
	if err != nil {
		return Subscription{}, fmt.Errorf("current subscription: %w", err)
	}
	return s, nil
}

// Replace cancels every current subscription of the account and
// inserts the new one, in a single transaction.
func (r *PGRepository) Replace(ctx context.Context, sub Subscription) (Subscription, error) {
	var created Subscription
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE subscriptions
			SET status = 'canceled', canceled_at = now()
			WHERE account_id = $1 AND status IN ('trialing', 'active', 'past_due')`,
			sub.AccountID); err != nil {
			return fmt.Errorf("cancel current subscriptions: %w", err)
		}
		var id int64
		var createdAt time.Time
		if err := tx.QueryRow(ctx, `
			INSERT INTO subscriptions (account_id, plan_id, status, current_period_start, current_period_end, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
			RETURNING id, created_at`,
			sub.AccountID, sub.PlanID, sub.Status, sub.CurrentPeriodStart, sub.CurrentPeriodEnd).Scan(&id, &createdAt); err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}
		created = sub
		created.ID = id
		created.CreatedAt = createdAt
		return nil
	})
	if err != nil {
		return Subscription{}, err
	}
	return created, nil
}

// Cancel marks the current subscription canceled.
func (r *PGRepository) Cancel(ctx context.Context, accountID int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'canceled', canceled_at = now()
		WHERE account_id = $1 AND status IN ('trialing', 'active', 'past_due')`, accountID)
	if err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
