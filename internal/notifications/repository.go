package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invora-hq/invora/internal/shared"
)

// ErrNotFound indicates the requested notification does not exist.
var ErrNotFound = errors.New("notifications: not found")

// Repository defines persistence for notifications.
type Repository interface {
	AdminRecipients(ctx context.Context, accountID int64, ownersOnly bool) ([]int64, error)
	Insert(ctx context.Context, n Notification) error
	ListForUser(ctx context.Context, accountID, userID int64, unreadOnly bool, page shared.PageRequest) ([]Notification, int, error)
	UnreadCount(ctx context.Context, accountID, userID int64) (int64, error)
	MarkRead(ctx context.Context, accountID, userID, id int64) error
	MarkAllRead(ctx context.Context, accountID, userID int64) error
}

// PGRepository implements Repository against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// AdminRecipients returns the ids of active owner (and optionally
// admin) users for the account.
func (r *PGRepository) AdminRecipients(ctx context.Context, accountID int64, ownersOnly bool) ([]int64, error) {
	roles := []string{"owner", "admin"}
	if ownersOnly {
		roles = []string{"owner"}
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM users WHERE account_id = $1 AND status = 'active' AND role = ANY($2) ORDER BY id`,
		accountID, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Insert stores one notification row.
func (r *PGRepository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO notifications (account_id, user_id, title, body, action, notifiable_type, notifiable_id, read, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, FALSE, NOW(), NOW())`,
		n.AccountID, n.UserID, n.Title, n.Body, n.Action, n.SubjectType, n.SubjectID)
	return err
}

// ListForUser returns a user's notifications, newest first.
func (r *PGRepository) ListForUser(ctx context.Context, accountID, userID int64, unreadOnly bool, page shared.PageRequest) ([]Notification, int, error) {
	clause := `account_id = $1 AND user_id = $2`
	if unreadOnly {
		clause += ` AND read = FALSE`
	}
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE `+clause, accountID, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, user_id, title, body, action, COALESCE(notifiable_type, ''), notifiable_id, read, created_at
		 FROM notifications WHERE `+clause+`
		 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		accountID, userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.AccountID, &n.UserID, &n.Title, &n.Body, &n.Action,
			&n.SubjectType, &n.SubjectID, &n.Read, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

// UnreadCount returns the number of unread notifications for a user.
func (r *PGRepository) UnreadCount(ctx context.Context, accountID, userID int64) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE account_id = $1 AND user_id = $2 AND read = FALSE`,
		accountID, userID).Scan(&count)
	return count, err
}

// MarkRead flags one notification as read.
func (r *PGRepository) MarkRead(ctx context.Context, accountID, userID, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE, updated_at = NOW() WHERE id = $1 AND account_id = $2 AND user_id = $3`,
		id, accountID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification for the user as read.
func (r *PGRepository) MarkAllRead(ctx context.Context, accountID, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read = TRUE, updated_at = NOW() WHERE account_id = $1 AND user_id = $2 AND read = FALSE`,
		accountID, userID)
	return err
}

var _ Repository = (*PGRepository)(nil)
