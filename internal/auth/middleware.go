package auth

import (
	"net/http"
	"strings"

	"github.com/invora-hq/invora/internal/platform/httpx"
	"github.com/invora-hq/invora/internal/shared"
)

// Middleware authenticates bearer tokens and injects the resolved
// identity into the request context.
type Middleware struct {
	tokens  *TokenManager
	service *Service
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(tokens *TokenManager, service *Service) *Middleware {
	return &Middleware{tokens: tokens, service: service}
}

// RequireUser rejects requests without a valid token or with a
// deactivated user.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		claims, err := m.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		user, err := m.service.Resolve(r.Context(), claims)
		if err != nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "unknown user")
			return
		}
		if !user.Active() {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "user deactivated")
			return
		}
		identity := shared.Identity{
			UserID:    user.ID,
			AccountID: user.AccountID,
			Email:     user.Email,
			Name:      user.Name(),
			Role:      user.Role,
			Active:    true,
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
	})
}
