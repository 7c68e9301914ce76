package notifications

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/invora-hq/invora/internal/shared"
)

type memoryNotifRepo struct {
	admins   map[int64][]int64 // accountID -> active owner/admin ids
	owners   map[int64][]int64 // accountID -> active owner ids
	rows     []Notification
	failFor  map[int64]error // userID -> insert failure
	nextID   int64
	inserted int
}

func newMemoryNotifRepo() *memoryNotifRepo {
	return &memoryNotifRepo{
		admins:  make(map[int64][]int64),
		owners:  make(map[int64][]int64),
		failFor: make(map[int64]error),
	}
}

func (r *memoryNotifRepo) AdminRecipients(ctx context.Context, accountID int64, ownersOnly bool) ([]int64, error) {
	if ownersOnly {
		return r.owners[accountID], nil
	}
	return r.admins[accountID], nil
}

func (r *memoryNotifRepo) Insert(ctx context.Context, n Notification) error {
	r.inserted++
	if err := r.failFor[n.UserID]; err != nil {
		return err
	}
	r.nextID++
	n.ID = r.nextID
	r.rows = append(r.rows, n)
	return nil
}

func (r *memoryNotifRepo) ListForUser(ctx context.Context, accountID, userID int64, unreadOnly bool, page shared.PageRequest) ([]Notification, int, error) {
	var out []Notification
	for _, n := range r.rows {
		if n.AccountID == accountID && n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (r *memoryNotifRepo) UnreadCount(ctx context.Context, accountID, userID int64) (int64, error) {
	var count int64
	for _, n := range r.rows {
		if n.AccountID == accountID && n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *memoryNotifRepo) MarkRead(ctx context.Context, accountID, userID, id int64) error {
	for i, n := range r.rows {
		if n.ID == id && n.AccountID == accountID && n.UserID == userID {
			r.rows[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (r *memoryNotifRepo) MarkAllRead(ctx context.Context, accountID, userID int64) error {
	for i, n := range r.rows {
		if n.AccountID == accountID && n.UserID == userID {
			r.rows[i].Read = true
		}
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyAccountAdmins(t *testing.T) {
	repo := newMemoryNotifRepo()
	repo.admins[1] = []int64{10, 11}
	d := NewDispatcher(repo, nil, nil, discardLogger())

	d.NotifyAccountAdmins(context.Background(), Message{
		AccountID: 1,
		Title:     "Payment received",
		Body:      "USD 100.00 recorded",
		Action:    "payment_received",
	})

	require.Len(t, repo.rows, 2)
	require.Equal(t, int64(10), repo.rows[0].UserID)
	require.Equal(t, int64(11), repo.rows[1].UserID)
	require.Equal(t, "payment_received", repo.rows[0].Action)
}

func TestNotifyAccountAdminsOwnersOnly(t *testing.T) {
	repo := newMemoryNotifRepo()
	repo.admins[1] = []int64{10, 11}
	repo.owners[1] = []int64{10}
	d := NewDispatcher(repo, nil, nil, discardLogger())

	d.NotifyAccountAdmins(context.Background(), Message{
		AccountID:  1,
		OwnersOnly: true,
		Title:      "Billing changed",
		Action:     "subscription_changed",
	})

	require.Len(t, repo.rows, 1)
	require.Equal(t, int64(10), repo.rows[0].UserID)
}

func TestNotifyUserAndAdminsDeduplicates(t *testing.T) {
	repo := newMemoryNotifRepo()
	// User 10 is themselves an admin; they must receive exactly one row.
	repo.admins[1] = []int64{10, 11}
	d := NewDispatcher(repo, nil, nil, discardLogger())

	d.NotifyUserAndAdmins(context.Background(), 10, Message{
		AccountID: 1,
		Title:     "Role changed",
		Action:    "user_role_changed",
	})

	require.Len(t, repo.rows, 2)
	seen := map[int64]int{}
	for _, n := range repo.rows {
		seen[n.UserID]++
	}
	require.Equal(t, 1, seen[10])
	require.Equal(t, 1, seen[11])
}

func TestDeliveryFailureIsSwallowed(t *testing.T) {
	repo := newMemoryNotifRepo()
	repo.admins[1] = []int64{10, 11, 12}
	repo.failFor[11] = errors.New("disk full")
	d := NewDispatcher(repo, nil, nil, discardLogger())

	// Must not panic or abort; the two healthy recipients still get rows.
	d.NotifyAccountAdmins(context.Background(), Message{AccountID: 1, Title: "x", Action: "y"})

	require.Equal(t, 3, repo.inserted)
	require.Len(t, repo.rows, 2)
}

func TestInboxService(t *testing.T) {
	repo := newMemoryNotifRepo()
	repo.admins[1] = []int64{10}
	d := NewDispatcher(repo, nil, nil, discardLogger())
	d.NotifyAccountAdmins(context.Background(), Message{AccountID: 1, Title: "a", Action: "x"})
	d.NotifyAccountAdmins(context.Background(), Message{AccountID: 1, Title: "b", Action: "x"})

	svc := NewService(repo, nil)
	ctx := context.Background()

	count, err := svc.UnreadCount(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	items, _, err := svc.List(ctx, 1, 10, true, shared.NewPageRequest(1, 20))
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, svc.MarkRead(ctx, 1, 10, items[0].ID))
	count, err = svc.UnreadCount(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.NoError(t, svc.MarkAllRead(ctx, 1, 10))
	count, err = svc.UnreadCount(ctx, 1, 10)
	require.NoError(t, err)
	require.Zero(t, count)

	require.ErrorIs(t, svc.MarkRead(ctx, 1, 10, 9999), ErrNotFound)
}
