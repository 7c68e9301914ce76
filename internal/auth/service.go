package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials indicates a failed login attempt.
var ErrInvalidCredentials = errors.New("auth: invalid email or password")

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenManager
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Register creates a tenant account and its first owner user, then
// issues a token for the new owner.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	currency := req.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.repo.CreateAccountWithOwner(ctx, strings.TrimSpace(req.AccountName), currency, User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}
	return s.session(user)
}

// Login validates credentials and issues a token. Deactivated users
// cannot log in.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active() {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(user)
}

// Resolve loads the user referenced by verified token claims.
func (s *Service) Resolve(ctx context.Context, claims *Claims) (*User, error) {
	return s.repo.FindByID(ctx, claims.UserID)
}

func (s *Service) session(user *User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID, user.AccountID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{
		Token: token,
		User: SessionUser{
			ID:        user.ID,
			Name:      user.Name(),
			Email:     user.Email,
			Role:      user.Role,
			AccountID: user.AccountID,
		},
	}, nil
}
