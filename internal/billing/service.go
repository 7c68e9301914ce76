package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/invora-hq/invora/internal/activity"
	"github.com/invora-hq/invora/internal/notifications"
	"github.com/invora-hq/invora/internal/shared"
)

// RepositoryPort is what the service needs from storage.
type RepositoryPort interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	FindPlanByCode(ctx context.Context, code string) (Plan, error)
	CurrentSubscription(ctx context.Context, accountID int64) (Subscription, error)
	Replace(ctx context.Context, sub Subscription) (Subscription, error)
	Cancel(ctx context.Context, accountID int64) error
}

// Service implements plan and subscription operations.
type Service struct {
	repo     RepositoryPort
	notifier *notifications.Dispatcher
	recorder *activity.Recorder
	now      func() time.Time
}

func NewService(repo RepositoryPort, notifier *notifications.Dispatcher, recorder *activity.Recorder) *Service {
	return &Service{repo: repo, notifier: notifier, recorder: recorder, now: time.Now}
}

func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	return s.repo.ListPlans(ctx)
}

func (s *Service) Current(ctx context.Context, accountID int64) (Subscription, error) {
	return s.repo.CurrentSubscription(ctx, accountID)
}

// Subscribe puts the account on the named plan. Any current
// subscription is canceled in the same transaction, so the account
// never holds two at once.
func (s *Service) Subscribe(ctx context.Context, actor shared.Identity, req SubscribeRequest) (Subscription, error) {
	plan, err := s.repo.FindPlanByCode(ctx, req.PlanCode)
	if err != nil {
		return Subscription{}, err
	}

	start := s.now().UTC()
	sub := Subscription{
		AccountID:          actor.AccountID,
		PlanID:             plan.ID,
		PlanCode:           plan.Code,
		PlanName:           plan.Name,
		Status:             StatusActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   periodEnd(start, plan.Interval),
	}
	created, err := s.repo.Replace(ctx, sub)
	if err != nil {
		return Subscription{}, err
	}

	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "subscription_changed",
		SubjectType: "Subscription",
		SubjectID:   &created.ID,
		Metadata:    map[string]any{"plan": plan.Code},
	})
	s.notifier.NotifyAccountAdmins(ctx, notifications.Message{
		AccountID:  actor.AccountID,
		OwnersOnly: true,
		Title:      "Subscription changed",
		Body:       fmt.Sprintf("The account is now on the %s plan", plan.Name),
		Action:     "subscription_changed",
	})
	return created, nil
}

// CancelCurrent ends the current subscription immediately.
func (s *Service) CancelCurrent(ctx context.Context, actor shared.Identity) error {
	sub, err := s.repo.CurrentSubscription(ctx, actor.AccountID)
	if err != nil {
		return err
	}
	if err := s.repo.Cancel(ctx, actor.AccountID); err != nil {
		return err
	}
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "subscription_canceled",
		SubjectType: "Subscription",
		SubjectID:   &sub.ID,
		Metadata:    map[string]any{"plan": sub.PlanCode},
	})
	s.notifier.NotifyAccountAdmins(ctx, notifications.Message{
		AccountID:  actor.AccountID,
		OwnersOnly: true,
		Title:      "Subscription canceled",
		Body:       fmt.Sprintf("The %s plan was canceled", sub.PlanName),
		Action:     "subscription_canceled",
	})
	return nil
}

func periodEnd(start time.Time, interval Interval) time.Time {
	if interval == IntervalYear {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}
