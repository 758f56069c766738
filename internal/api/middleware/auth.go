package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"devbook/internal/common"
	"devbook/internal/common/security"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
	"devbook/internal/platform/metrics"
)

type contextKey string

const (
	currentUserCtxKey    contextKey = "currentUser"
	currentSessionCtxKey contextKey = "currentSession"
)

const (
	msgInvalidToken    = "Invalid token. Please log in again!"
	msgExpiredToken    = "Token is expired. Please log in again!"
	msgSessionNotFound = "Session not found. Please log in again!"
	msgSessionExpired  = "Session has expired. Please log in again!"
	msgUserNotFound    = "Current user not found!"
	msgPasswordChanged = "Current user changed their password. Please log in again!"
)

// Authenticator resolves the verified bearer token into the current user and session.
// It must run after jwtauth.Verifier.
type Authenticator struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	now      func() time.Time
}

func NewAuthenticator(sessions repository.SessionRepository, users repository.UserRepository) *Authenticator {
	return &Authenticator{sessions: sessions, users: users, now: time.Now}
}

func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, session, reason, err := a.authenticate(r)
		if err != nil {
			if reason != "" {
				metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
			}
			common.RespondWithError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCurrentUser(r.Context(), user, session)))
	})
}

// authenticate checks, in order: token presence and signature, embedded expiry,
// session existence and expiry, user existence and password change.
func (a *Authenticator) authenticate(r *http.Request) (*model.User, *model.Session, string, error) {
	ctx := r.Context()
	now := a.now()

	token, claims, err := jwtauth.FromContext(ctx)
	switch {
	case errors.Is(err, jwtauth.ErrExpired):
		return nil, nil, "expired_token", common.Unauthorized(msgExpiredToken, nil)
	case err != nil, token == nil:
		return nil, nil, "invalid_token", common.Unauthorized(msgInvalidToken, nil)
	}

	sessionID, expires, err := security.SessionFromClaims(claims)
	if err != nil {
		return nil, nil, "invalid_token", common.Unauthorized(msgInvalidToken, nil)
	}
	if expires.Before(now) {
		return nil, nil, "expired_token", common.Unauthorized(msgExpiredToken, nil)
	}

	session, err := a.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, "session_not_found", common.NotFound(msgSessionNotFound, nil)
		}
		return nil, nil, "", err
	}
	if session.Expired(now) {
		return nil, nil, "session_expired", common.NotFound(msgSessionExpired, nil)
	}

	user, err := a.users.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, "user_not_found", common.NotFound(msgUserNotFound, nil)
		}
		return nil, nil, "", err
	}
	if user.PasswordUpdatedAt != nil && user.PasswordUpdatedAt.After(session.Expires) {
		return nil, nil, "password_changed", common.Unauthorized(msgPasswordChanged, nil)
	}

	return user, session, "", nil
}

// WithCurrentUser attaches the authenticated user and session to ctx.
func WithCurrentUser(ctx context.Context, user *model.User, session *model.Session) context.Context {
	ctx = context.WithValue(ctx, currentUserCtxKey, user)
	return context.WithValue(ctx, currentSessionCtxKey, session)
}

func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(currentUserCtxKey).(*model.User)
	return user, ok && user != nil
}

func CurrentSession(ctx context.Context) (*model.Session, bool) {
	session, ok := ctx.Value(currentSessionCtxKey).(*model.Session)
	return session, ok && session != nil
}
