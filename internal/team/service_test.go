package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invora-hq/invora/internal/authz"
	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

type memoryTeamRepo struct {
	nextID      int64
	members     map[int64]Member
	seats       *int64
	txDepth     int
	updatesInTx int
}

func newMemoryTeamRepo() *memoryTeamRepo {
	return &memoryTeamRepo{nextID: 1, members: map[int64]Member{}}
}

func (r *memoryTeamRepo) add(m Member) Member {
	m.ID = r.nextID
	r.nextID++
	r.members[m.ID] = m
	return m
}

func (r *memoryTeamRepo) List(_ context.Context, accountID int64) ([]Member, error) {
	var out []Member
	for _, m := range r.members {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memoryTeamRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.txDepth++
	defer func() { r.txDepth-- }()
	return fn(ctx, r)
}

func (r *memoryTeamRepo) FindForUpdate(_ context.Context, accountID, userID int64) (Member, error) {
	m, ok := r.members[userID]
	if !ok || m.AccountID != accountID {
		return Member{}, assert.AnError
	}
	return m, nil
}

func (r *memoryTeamRepo) Insert(_ context.Context, m Member, _ string) (Member, error) {
	for _, existing := range r.members {
		if existing.Email == m.Email {
			return Member{}, ErrEmailTaken
		}
	}
	return r.add(m), nil
}

func (r *memoryTeamRepo) Update(_ context.Context, accountID, userID int64, fields map[string]any) (Member, error) {
	if r.txDepth > 0 {
		r.updatesInTx++
	}
	m, err := r.FindForUpdate(context.Background(), accountID, userID)
	if err != nil {
		return Member{}, err
	}
	if role, ok := fields["role"]; ok {
		m.Role = role.(authz.Role)
	}
	if status, ok := fields["status"]; ok {
		m.Status = status.(Status)
	}
	r.members[userID] = m
	return m, nil
}

func (r *memoryTeamRepo) CountActiveOwnersExcept(_ context.Context, accountID, excludeUserID int64) (int64, error) {
	var n int64
	for _, m := range r.members {
		if m.AccountID == accountID && m.ID != excludeUserID && m.IsOwner() && m.ActiveMember() {
			n++
		}
	}
	return n, nil
}

func (r *memoryTeamRepo) CountActive(_ context.Context, accountID int64) (int64, error) {
	var n int64
	for _, m := range r.members {
		if m.AccountID == accountID && m.ActiveMember() {
			n++
		}
	}
	return n, nil
}

func (r *memoryTeamRepo) SeatLimit(_ context.Context, _ int64) (*int64, error) {
	return r.seats, nil
}

func identityFor(m Member) shared.Identity {
	return shared.Identity{
		UserID:    m.ID,
		AccountID: m.AccountID,
		Email:     m.Email,
		Name:      m.Name(),
		Role:      m.Role,
		Active:    m.ActiveMember(),
	}
}

func TestInviteDefaultsToViewer(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, FirstName: "Ana", Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	svc := NewService(repo, nil, nil)

	member, err := svc.Invite(context.Background(), identityFor(owner), InviteRequest{
		Name:  "Bert Miller",
		Email: "Bert@Acme.Test",
	})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleViewer, member.Role)
	assert.Equal(t, StatusActive, member.Status)
	assert.Equal(t, "bert@acme.test", member.Email)
	assert.Equal(t, "Bert Miller", member.Name())
}

func TestInviteDuplicateEmail(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	svc := NewService(repo, nil, nil)

	_, err := svc.Invite(context.Background(), identityFor(owner), InviteRequest{Name: "Dup", Email: "ana@acme.test"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestInviteSeatLimit(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	repo.add(Member{AccountID: 1, Email: "b@acme.test", Role: authz.RoleViewer, Status: StatusActive})
	limit := int64(2)
	repo.seats = &limit
	svc := NewService(repo, nil, nil)

	_, err := svc.Invite(context.Background(), identityFor(owner), InviteRequest{Name: "C", Email: "c@acme.test"})
	assert.ErrorIs(t, err, ErrSeatLimit)
}

func TestDeactivateLastActiveOwnerRejected(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	// A second owner whose session may still be live after their own
	// deactivation; the account has exactly one active owner left.
	stale := repo.add(Member{AccountID: 1, Email: "own2@acme.test", Role: authz.RoleOwner, Status: StatusDeactivated})
	svc := NewService(repo, nil, nil)

	actor := identityFor(stale)
	_, err := svc.Deactivate(context.Background(), actor, owner.ID)
	assert.ErrorIs(t, err, ErrLastOwner)
}

func TestDemoteLastActiveOwnerRejected(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	actor := repo.add(Member{AccountID: 1, Email: "own2@acme.test", Role: authz.RoleOwner, Status: StatusDeactivated})
	svc := NewService(repo, nil, nil)

	role := string(authz.RoleManager)
	_, err := svc.Update(context.Background(), identityFor(actor), owner.ID, UpdateRequest{Role: &role})
	assert.ErrorIs(t, err, ErrLastOwner)
}

func TestDemoteOwnerWithAnotherActiveOwner(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	second := repo.add(Member{AccountID: 1, Email: "own2@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	svc := NewService(repo, nil, nil)

	role := string(authz.RoleAdmin)
	updated, err := svc.Update(context.Background(), identityFor(second), owner.ID, UpdateRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, authz.RoleAdmin, updated.Role)
}

func TestRoleChangeRunsInsideTransaction(t *testing.T) {
	// The owner-count guard and the update must share one transaction
	// so concurrent demotions cannot both pass the count.
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	second := repo.add(Member{AccountID: 1, Email: "own2@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	svc := NewService(repo, nil, nil)

	role := string(authz.RoleAdmin)
	_, err := svc.Update(context.Background(), identityFor(second), owner.ID, UpdateRequest{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.updatesInTx)
}

func TestCannotChangeOwnRole(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	svc := NewService(repo, nil, nil)

	role := string(authz.RoleAdmin)
	_, err := svc.Update(context.Background(), identityFor(owner), owner.ID, UpdateRequest{Role: &role})
	assert.ErrorIs(t, err, ErrSelfRole)
}

func TestCannotDeactivateSelf(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	svc := NewService(repo, nil, nil)

	_, err := svc.Deactivate(context.Background(), identityFor(owner), owner.ID)
	assert.ErrorIs(t, err, ErrSelfMute)
}

func TestAdminCannotModifyOwner(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	admin := repo.add(Member{AccountID: 1, Email: "adm@acme.test", Role: authz.RoleAdmin, Status: StatusActive})
	svc := NewService(repo, nil, nil)

	role := string(authz.RoleViewer)
	_, err := svc.Update(context.Background(), identityFor(admin), owner.ID, UpdateRequest{Role: &role})
	assert.ErrorIs(t, err, ErrOwnerOnly)
}

func TestReactivationChecksSeatLimit(t *testing.T) {
	repo := newMemoryTeamRepo()
	owner := repo.add(Member{AccountID: 1, Email: "ana@acme.test", Role: authz.RoleOwner, Status: StatusActive})
	dormant := repo.add(Member{AccountID: 1, Email: "b@acme.test", Role: authz.RoleViewer, Status: StatusDeactivated})
	limit := int64(1)
	repo.seats = &limit
	svc := NewService(repo, nil, nil)

	status := string(StatusActive)
	_, err := svc.Update(context.Background(), identityFor(owner), dormant.ID, UpdateRequest{Status: &status})
	assert.ErrorIs(t, err, ErrSeatLimit)
}
