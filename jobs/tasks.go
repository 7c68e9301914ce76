// Package jobs hosts the background task definitions and the Asynq
// worker harness.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/invora-hq/invora/internal/jobs"
	"github.com/invora-hq/invora/internal/notifications"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOverdueSweep marks sent invoices past their due date as overdue.
	TaskOverdueSweep = "invoices:overdue_sweep"
)

// NewOverdueSweepTask constructs the sweep task; the payload is empty,
// the sweep always covers every account.
func NewOverdueSweepTask() *asynq.Task {
	return asynq.NewTask(TaskOverdueSweep, nil)
}

// OverdueSweeper flips sent invoices whose due date has passed to
// overdue and notifies the account admins.
type OverdueSweeper struct {
	pool     *pgxpool.Pool
	notifier *notifications.Dispatcher
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
}

func NewOverdueSweeper(pool *pgxpool.Pool, notifier *notifications.Dispatcher, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueSweeper {
	return &OverdueSweeper{pool: pool, notifier: notifier, logger: logger, metrics: metrics}
}

// Handle processes TaskOverdueSweep tasks.
func (s *OverdueSweeper) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := s.metrics.Track(TaskOverdueSweep)
	return tracker.End(s.sweep(ctx))
}

func (s *OverdueSweeper) sweep(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `
		UPDATE invoices
		SET status = 'overdue', updated_at = now()
		WHERE status = 'sent' AND due_date < current_date
		RETURNING id, account_id, number`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type sweptInvoice struct {
		id        int64
		accountID int64
		number    string
	}
	var swept []sweptInvoice
	for rows.Next() {
		var inv sweptInvoice
		if err := rows.Scan(&inv.id, &inv.accountID, &inv.number); err != nil {
			return err
		}
		swept = append(swept, inv)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, inv := range swept {
		// Deliver inline; the sweep already runs on the worker.
		s.notifier.DeliverNow(ctx, notifications.Message{
			AccountID:   inv.accountID,
			Audience:    notifications.AudienceAdmins,
			Title:       "Invoice overdue",
			Body:        "Invoice " + inv.number + " is past its due date",
			Action:      "invoice_overdue",
			SubjectType: "Invoice",
			SubjectID:   &inv.id,
		})
	}
	if len(swept) > 0 {
		s.logger.Info("overdue sweep complete", slog.Int("invoices", len(swept)))
	}
	s.metrics.AddSweptInvoices(len(swept))
	return nil
}
