package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/ayush/task-manager-api/internal/apperr"
	"github.com/ayush/task-manager-api/internal/httpx"
	"github.com/ayush/task-manager-api/internal/models"
	"github.com/ayush/task-manager-api/internal/store"
)

// TokenVerifier checks a bearer token's signature and returns its user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserFinder resolves a user holding an active token.
type UserFinder interface {
	GetUserByToken(ctx context.Context, id, token string) (*models.User, error)
}

type contextKey string

const (
	userKey  = contextKey("user")
	tokenKey = contextKey("token")
)

var errMissingToken = errors.New("missing bearer token")

// RequireAuth resolves the Authorization bearer token to a user and stores the
// user and raw token in the request context. Token failures answer 401,
// store failures 500.
func RequireAuth(tokens TokenVerifier, users UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.Error(w, r, apperr.Unauthenticated(errMissingToken))
				return
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				httpx.Error(w, r, apperr.Unauthenticated(err))
				return
			}

			user, err := users.GetUserByToken(r.Context(), userID, token)
			if errors.Is(err, store.ErrNotFound) {
				hlog.FromRequest(r).Debug().Err(err).Str("user_id", userID).Msg("token not active")
				httpx.Error(w, r, apperr.Unauthenticated(err))
				return
			}
			if err != nil {
				httpx.Error(w, r, apperr.Internal(fmt.Errorf("resolve token user %s: %w", userID, err)))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user, token)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// User returns the authenticated user, or nil outside RequireAuth.
func User(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// Token returns the raw bearer token the request authenticated with.
func Token(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

// WithUser returns ctx carrying user and token as RequireAuth would set them.
func WithUser(ctx context.Context, user *models.User, token string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, tokenKey, token)
}
