package activity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder appends entries to activity_logs. Failures are logged and
// swallowed so a broken audit trail can never abort a business
// transaction.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record persists the entry. Best-effort: the only error surfaced is a
// nil receiver, every storage failure is logged and dropped.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil || r.pool == nil {
		return
	}
	if err := r.record(ctx, entry); err != nil {
		r.logger.Error("activity log write failed",
			slog.String("action", entry.Action),
			slog.Any("error", err))
	}
}

func (r *Recorder) record(ctx context.Context, entry Entry) error {
	if entry.AccountID == 0 || entry.Action == "" {
		return errors.New("activity: entry requires account_id and action")
	}
	meta := entry.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO activity_logs (account_id, user_id, action, record_type, record_id, metadata, ip, user_agent, created_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''), NOW())`,
		entry.AccountID, entry.UserID, entry.Action, entry.SubjectType,
		entry.SubjectID, metaJSON, entry.IP, entry.UserAgent)
	return err
}
