// Package dashboard aggregates account-wide figures for the home
// screen.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Totals are the headline counters.
type Totals struct {
	InvoiceCount int64           `json:"invoice_count"`
	ClientCount  int64           `json:"client_count"`
	MonthTotal   decimal.Decimal `json:"month_total"`
	MonthPaid    decimal.Decimal `json:"month_paid"`
	OverdueTotal decimal.Decimal `json:"overdue_total"`
}

// TopClient is one row of the top-clients table.
type TopClient struct {
	ClientID int64           `json:"client_id"`
	Name     string          `json:"name"`
	Invoiced decimal.Decimal `json:"invoiced"`
}

// MonthPoint is one point of the revenue series.
type MonthPoint struct {
	Month    string          `json:"month"`
	Invoiced decimal.Decimal `json:"invoiced"`
	Paid     decimal.Decimal `json:"paid"`
}

// Summary is the full dashboard payload.
type Summary struct {
	Totals     Totals       `json:"totals"`
	TopClients []TopClient  `json:"top_clients"`
	Series     []MonthPoint `json:"series"`
}

// Service computes the dashboard with direct SQL aggregates.
type Service struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool, now: time.Now}
}

// Summary builds the dashboard for one account.
func (s *Service) Summary(ctx context.Context, accountID int64) (Summary, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	seriesStart := monthStart.AddDate(0, -5, 0)

	var out Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.pool.QueryRow(gctx, `
			SELECT
				(SELECT COUNT(*) FROM invoices WHERE account_id = $1),
				(SELECT COUNT(*) FROM clients WHERE account_id = $1),
				COALESCE((SELECT SUM(total) FROM invoices WHERE account_id = $1 AND issue_date >= $2), 0),
				COALESCE((SELECT SUM(p.amount) FROM payments p
					JOIN invoices i ON i.id = p.invoice_id
					WHERE i.account_id = $1 AND p.paid_on >= $2), 0),
				COALESCE((SELECT SUM(total - amount_paid) FROM invoices
					WHERE account_id = $1 AND status IN ('sent', 'overdue') AND due_date < $3), 0)`,
			accountID, monthStart, now).Scan(
			&out.Totals.InvoiceCount, &out.Totals.ClientCount,
			&out.Totals.MonthTotal, &out.Totals.MonthPaid, &out.Totals.OverdueTotal)
		if err != nil {
			return fmt.Errorf("dashboard totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		clients, err := s.topClients(gctx, accountID)
		if err != nil {
			return err
		}
		out.TopClients = clients
		return nil
	})
	g.Go(func() error {
		series, err := s.series(gctx, accountID, seriesStart, monthStart)
		if err != nil {
			return err
		}
		out.Series = series
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *Service) topClients(ctx context.Context, accountID int64) ([]TopClient, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(i.total), 0) AS invoiced
		FROM clients c
		JOIN invoices i ON i.client_id = c.id
		WHERE c.account_id = $1
		GROUP BY c.id, c.name
		ORDER BY invoiced DESC
		LIMIT 5`, accountID)
	if err != nil {
		return nil, fmt.Errorf("top clients: %w", err)
	}
	defer rows.Close()

	clients := []TopClient{}
	for rows.Next() {
		var c TopClient
		if err := rows.Scan(&c.ClientID, &c.Name, &c.Invoiced); err != nil {
			return nil, fmt.Errorf("scan top client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// series returns one point per month over the window, including empty
// months.
func (s *Service) series(ctx context.Context, accountID int64, from, lastMonth time.Time) ([]MonthPoint, error) {
	invoiced := map[string]decimal.Decimal{}
	paid := map[string]decimal.Decimal{}

	rows, err := s.pool.Query(ctx, `
		SELECT to_char(date_trunc('month', issue_date), 'YYYY-MM'), SUM(total)
		FROM invoices
		WHERE account_id = $1 AND issue_date >= $2
		GROUP BY 1`, accountID, from)
	if err != nil {
		return nil, fmt.Errorf("invoiced series: %w", err)
	}
	for rows.Next() {
		var month string
		var sum decimal.Decimal
		if err := rows.Scan(&month, &sum); err != nil {
			rows.Close()
			return nil, err
		}
		invoiced[month] = sum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT to_char(date_trunc('month', p.paid_on), 'YYYY-MM'), SUM(p.amount)
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		WHERE i.account_id = $1 AND p.paid_on >= $2
		GROUP BY 1`, accountID, from)
	if err != nil {
		return nil, fmt.Errorf("paid series: %w", err)
	}
	for rows.Next() {
		var month string
		var sum decimal.Decimal
		if err := rows.Scan(&month, &sum); err != nil {
			rows.Close()
			return nil, err
		}
		paid[month] = sum
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var points []MonthPoint
	for m := from; !m.After(lastMonth); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		points = append(points, MonthPoint{
			Month:    key,
			Invoiced: invoiced[key],
			Paid:     paid[key],
		})
	}
	return points, nil
}
