package notifications

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// TaskTypeDeliver is the asynq task type for notification fan-out.
const TaskTypeDeliver = "notifications:deliver"

// Enqueuer abstracts the asynq client so services and tests can run
// without Redis.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher fans a Message out to its recipients. Delivery is
// best-effort: every failure is logged and swallowed so the calling
// business transaction is never aborted.
type Dispatcher struct {
	repo   Repository
	cache  *UnreadCache
	queue  Enqueuer
	logger *slog.Logger
}

// NewDispatcher constructs a Dispatcher. queue and cache may be nil;
// without a queue, messages are delivered inline.
func NewDispatcher(repo Repository, cache *UnreadCache, queue Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, cache: cache, queue: queue, logger: logger}
}

// NotifyAccountAdmins targets all active owners/admins of the account.
func (d *Dispatcher) NotifyAccountAdmins(ctx context.Context, msg Message) {
	msg.Audience = AudienceAdmins
	d.dispatch(ctx, msg)
}

// NotifyUserAndAdmins targets the given user plus active owners/admins,
// deduplicated.
func (d *Dispatcher) NotifyUserAndAdmins(ctx context.Context, userID int64, msg Message) {
	msg.Audience = AudienceUserAndAdmins
	msg.UserID = userID
	d.dispatch(ctx, msg)
}

// dispatch enqueues the message for post-commit delivery, falling back
// to inline delivery when no queue is configured or the enqueue fails.
func (d *Dispatcher) dispatch(ctx context.Context, msg Message) {
	if d == nil {
		return
	}
	if d.queue != nil {
		payload, err := json.Marshal(msg)
		if err == nil {
			if _, err = d.queue.EnqueueContext(ctx, asynq.NewTask(TaskTypeDeliver, payload)); err == nil {
				return
			}
		}
		d.logger.Warn("notification enqueue failed, delivering inline",
			slog.String("action", msg.Action), slog.Any("error", err))
	}
	d.DeliverNow(ctx, msg)
}

// DeliverNow resolves recipients and writes one notification row per
// recipient. Individual write failures are logged and skipped.
func (d *Dispatcher) DeliverNow(ctx context.Context, msg Message) {
	recipients, err := d.recipients(ctx, msg)
	if err != nil {
		d.logger.Error("notification recipient lookup failed",
			slog.Int64("account_id", msg.AccountID),
			slog.String("action", msg.Action),
			slog.Any("error", err))
		return
	}
	for _, userID := range recipients {
		n := Notification{
			AccountID:   msg.AccountID,
			UserID:      userID,
			Title:       msg.Title,
			Body:        msg.Body,
			Action:      msg.Action,
			SubjectType: msg.SubjectType,
			SubjectID:   msg.SubjectID,
		}
		if err := d.repo.Insert(ctx, n); err != nil {
			d.logger.Error("notification write failed",
				slog.Int64("user_id", userID),
				slog.String("action", msg.Action),
				slog.Any("error", err))
			continue
		}
		d.cache.Invalidate(ctx, msg.AccountID, userID)
	}
}

func (d *Dispatcher) recipients(ctx context.Context, msg Message) ([]int64, error) {
	admins, err := d.repo.AdminRecipients(ctx, msg.AccountID, msg.OwnersOnly)
	if err != nil {
		return nil, err
	}
	if msg.Audience != AudienceUserAndAdmins {
		return admins, nil
	}
	seen := map[int64]struct{}{msg.UserID: {}}
	recipients := []int64{msg.UserID}
	for _, id := range admins {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	return recipients, nil
}

// HandleDeliverTask adapts the dispatcher into an asynq handler.
func HandleDeliverTask(d *Dispatcher) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var msg Message
		if err := json.Unmarshal(t.Payload(), &msg); err != nil {
			return asynq.SkipRetry
		}
		d.DeliverNow(ctx, msg)
		return nil
	}
}
