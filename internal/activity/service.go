package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invora-hq/invora/internal/shared"
)

// Service reads the activity timeline for an account.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs an activity listing service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// List returns account-scoped entries newest first with pagination.
func (s *Service) List(ctx context.Context, accountID int64, filters ListFilters) ([]Entry, shared.Pagination, error) {
	if s.pool == nil {
		return nil, shared.Pagination{}, fmt.Errorf("activity: pool not configured")
	}
	page := shared.NewPageRequest(filters.Page, filters.PerPage)

	where := []string{"l.account_id = $1"}
	args := []any{accountID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filters.UserID > 0 {
		where = append(where, "l.user_id = "+arg(filters.UserID))
	}
	if filters.SubjectType != "" {
		where = append(where, "l.record_type = "+arg(filters.SubjectType))
	}
	if !filters.From.IsZero() {
		where = append(where, "l.created_at >= "+arg(filters.From))
	}
	if !filters.To.IsZero() {
		where = append(where, "l.created_at <= "+arg(filters.To))
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(l.action) LIKE "+arg(pattern)+" OR LOWER(l.metadata::text) LIKE "+arg(pattern)+")")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activity_logs l WHERE "+clause, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}

	query := `SELECT l.id, l.user_id, l.action, COALESCE(l.record_type, ''), l.record_id, l.metadata, l.created_at,
			COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''), COALESCE(u.email, '')
		FROM activity_logs l
		LEFT JOIN users u ON u.id = l.user_id
		WHERE ` + clause + `
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ` + arg(page.PerPage) + ` OFFSET ` + arg(page.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.SubjectType, &e.SubjectID,
			&metaJSON, &e.CreatedAt, &e.UserName, &e.UserEmail); err != nil {
			return nil, shared.Pagination{}, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
				e.Metadata = map[string]any{}
			}
		}
		e.AccountID = accountID
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(page, total), nil
}
