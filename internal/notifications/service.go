package notifications

import (
	"context"

	"github.com/invora-hq/invora/internal/shared"
)

// Service serves the per-user notification inbox.
type Service struct {
	repo  Repository
	cache *UnreadCache
}

// NewService constructs an inbox service.
func NewService(repo Repository, cache *UnreadCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, accountID, userID int64, unreadOnly bool, page shared.PageRequest) ([]Notification, shared.Pagination, error) {
	items, total, err := s.repo.ListForUser(ctx, accountID, userID, unreadOnly, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, total), nil
}

// UnreadCount returns the unread badge value, preferring the cache.
func (s *Service) UnreadCount(ctx context.Context, accountID, userID int64) (int64, error) {
	if count, ok := s.cache.Get(ctx, accountID, userID); ok {
		return count, nil
	}
	count, err := s.repo.UnreadCount(ctx, accountID, userID)
	if err != nil {
		return 0, err
	}
	s.cache.Set(ctx, accountID, userID, count)
	return count, nil
}

// MarkRead flags one notification as read.
func (s *Service) MarkRead(ctx context.Context, accountID, userID, id int64) error {
	if err := s.repo.MarkRead(ctx, accountID, userID, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, accountID, userID)
	return nil
}

// MarkAllRead flags every unread notification as read.
func (s *Service) MarkAllRead(ctx context.Context, accountID, userID int64) error {
	if err := s.repo.MarkAllRead(ctx, accountID, userID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, accountID, userID)
	return nil
}
