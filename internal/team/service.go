package team

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/invora-hq/invora/internal/activity"
	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/notifications"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// Rule violations surfaced to the API layer.
var (
	ErrLastOwner = fmt.Errorf("%w: account must keep at least one active owner", httpx.ErrConflict)
	ErrSeatLimit = fmt.Errorf("%w: plan seat limit reached", httpx.ErrConflict)
	ErrSelfRole  = fmt.Errorf("%w: cannot change your own role", httpx.ErrForbidden)
	ErrSelfMute  = fmt.Errorf("%w: cannot deactivate yourself", httpx.ErrForbidden)
	ErrOwnerOnly = fmt.Errorf("%w: only an owner can modify an owner", httpx.ErrForbidden)
)

// RepositoryPort is what the service needs from storage. Role and
// status changes go through WithTx so the owner-count check and the
// update see one consistent state.
type RepositoryPort interface {
	List(ctx context.Context, accountID int64) ([]Member, error)
	Insert(ctx context.Context, m Member, passwordDigest string) (Member, error)
	CountActive(ctx context.Context, accountID int64) (int64, error)
	SeatLimit(ctx context.Context, accountID int64) (*int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Service applies the team management rules.
type Service struct {
	repo     RepositoryPort
	notifier *notifications.Dispatcher
	recorder *activity.Recorder
}

func NewService(repo RepositoryPort, notifier *notifications.Dispatcher, recorder *activity.Recorder) *Service {
	return &Service{repo: repo, notifier: notifier, recorder: recorder}
}

func (s *Service) List(ctx context.Context, accountID int64) ([]Member, error) {
	return s.repo.List(ctx, accountID)
}

// Invite creates a member with a random temporary password. The new
// member starts as an active viewer unless the request names another
// non-owner role.
func (s *Service) Invite(ctx context.Context, actor shared.Identity, req InviteRequest) (Member, error) {
	if err := checkSeat(ctx, s.repo, actor.AccountID); err != nil {
		return Member{}, err
	}

	role := authz.RoleViewer
	if req.Role != "" {
		role = authz.Role(req.Role)
	}
	first, last, _ := strings.Cut(strings.TrimSpace(req.Name), " ")

	digest, err := temporaryPasswordDigest()
	if err != nil {
		return Member{}, err
	}
	member, err := s.repo.Insert(ctx, Member{
		AccountID: actor.AccountID,
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      role,
		Status:    StatusActive,
	}, digest)
	if err == ErrEmailTaken {
		return Member{}, httpx.NewValidationError(httpx.FieldError{Field: "email", Message: "has already been taken"})
	}
	if err != nil {
		return Member{}, err
	}

	s.notifier.NotifyAccountAdmins(ctx, notifications.Message{
		AccountID:   actor.AccountID,
		Title:       "Team member invited",
		Body:        fmt.Sprintf("%s invited %s as %s", actor.Name, member.Name(), member.Role),
		Action:      "user_invited",
		SubjectType: "User",
		SubjectID:   &member.ID,
	})
	s.recorder.Record(ctx, activity.Entry{
		AccountID:   actor.AccountID,
		UserID:      &actor.UserID,
		Action:      "user_invited",
		SubjectType: "User",
		SubjectID:   &member.ID,
		Metadata:    map[string]any{"email": member.Email, "role": string(member.Role)},
	})
	return member, nil
}

// Update changes a member's role and/or status, subject to the owner
// safety rules.
func (s *Service) Update(ctx context.Context, actor shared.Identity, userID int64, req UpdateRequest) (Member, error) {
	var member, updated Member
	var roleChanged, statusChanged bool
	var newStatus Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		member, err = tx.FindForUpdate(ctx, actor.AccountID, userID)
		if err != nil {
			return err
		}

		newRole := member.Role
		if req.Role != nil {
			newRole = authz.Role(*req.Role)
		}
		newStatus = member.Status
		if req.Status != nil {
			newStatus = Status(*req.Status)
		}
		roleChanged = newRole != member.Role
		statusChanged = newStatus != member.Status
		if !roleChanged && !statusChanged {
			updated = member
			return nil
		}

		if roleChanged && userID == actor.UserID {
			return ErrSelfRole
		}
		if statusChanged && newStatus == StatusDeactivated && userID == actor.UserID {
			return ErrSelfMute
		}
		if member.IsOwner() && actor.Role != authz.RoleOwner {
			return ErrOwnerOnly
		}

		// The change must not leave the account without an active
		// owner. Counting inside the same transaction as the update
		// keeps two concurrent demotions from both passing the check.
		if member.IsOwner() && member.ActiveMember() && (newRole != authz.RoleOwner || newStatus != StatusActive) {
			others, err := tx.CountActiveOwnersExcept(ctx, actor.AccountID, userID)
			if err != nil {
				return err
			}
			if others == 0 {
				return ErrLastOwner
			}
		}
		if statusChanged && newStatus == StatusActive {
			if err := checkSeat(ctx, tx, actor.AccountID); err != nil {
				return err
			}
		}

		fields := map[string]any{}
		if roleChanged {
			fields["role"] = newRole
		}
		if statusChanged {
			fields["status"] = newStatus
		}
		updated, err = tx.Update(ctx, actor.AccountID, userID, fields)
		return err
	})
	if err != nil {
		return Member{}, err
	}
	if !roleChanged && !statusChanged {
		return updated, nil
	}

	if roleChanged {
		s.notifier.NotifyUserAndAdmins(ctx, updated.ID, notifications.Message{
			AccountID:   actor.AccountID,
			Title:       "Role changed",
			Body:        fmt.Sprintf("%s is now %s", updated.Name(), updated.Role),
			Action:      "user_role_changed",
			SubjectType: "User",
			SubjectID:   &updated.ID,
		})
		s.recorder.Record(ctx, activity.Entry{
			AccountID:   actor.AccountID,
			UserID:      &actor.UserID,
			Action:      "user_role_changed",
			SubjectType: "User",
			SubjectID:   &updated.ID,
			Metadata:    map[string]any{"from": string(member.Role), "to": string(updated.Role)},
		})
	}
	if statusChanged {
		action := "user_reactivated"
		if newStatus == StatusDeactivated {
			action = "user_deactivated"
		}
		s.notifier.NotifyUserAndAdmins(ctx, updated.ID, notifications.Message{
			AccountID:   actor.AccountID,
			Title:       "Member status changed",
			Body:        fmt.Sprintf("%s is now %s", updated.Name(), updated.Status),
			Action:      action,
			SubjectType: "User",
			SubjectID:   &updated.ID,
		})
		s.recorder.Record(ctx, activity.Entry{
			AccountID:   actor.AccountID,
			UserID:      &actor.UserID,
			Action:      action,
			SubjectType: "User",
			SubjectID:   &updated.ID,
		})
	}
	return updated, nil
}

// Deactivate soft-deletes a member by setting status to deactivated.
func (s *Service) Deactivate(ctx context.Context, actor shared.Identity, userID int64) (Member, error) {
	status := string(StatusDeactivated)
	return s.Update(ctx, actor, userID, UpdateRequest{Status: &status})
}

// seatCounter is the slice of storage both the pool-backed repository
// and a transaction expose for seat-limit checks.
type seatCounter interface {
	SeatLimit(ctx context.Context, accountID int64) (*int64, error)
	CountActive(ctx context.Context, accountID int64) (int64, error)
}

func checkSeat(ctx context.Context, repo seatCounter, accountID int64) error {
	limit, err := repo.SeatLimit(ctx, accountID)
	if err != nil {
		return err
	}
	if limit == nil {
		return nil
	}
	active, err := repo.CountActive(ctx, accountID)
	if err != nil {
		return err
	}
	if active >= *limit {
		return ErrSeatLimit
	}
	return nil
}

// temporaryPasswordDigest hashes a random password the invitee must
// reset before first use.
func temporaryPasswordDigest() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}
