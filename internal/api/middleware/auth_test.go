package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devbook/internal/common/security"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository/repotest"
)

type authFixture struct {
	issuer   *security.TokenIssuer
	users    *repotest.Users
	sessions *repotest.Sessions
	router   http.Handler
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		issuer:   security.NewTokenIssuer([]byte("test-secret"), time.Hour),
		users:    repotest.NewUsers(),
		sessions: repotest.NewSessions(),
	}
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(f.issuer.JWTAuth()))
	r.Use(NewAuthenticator(f.sessions, f.users).Handler)
	r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
		user, _ := CurrentUser(r.Context())
		session, _ := CurrentSession(r.Context())
		w.Write([]byte(user.ID + "|" + session.ID))
	})
	f.router = r
	return f
}

func (f *authFixture) seed(t *testing.T, expires time.Time) (*model.User, *model.Session) {
	t.Helper()
	ctx := context.Background()
	user, err := f.users.Create(ctx, &model.User{Name: "Ada Lovelace", Email: "ada@example.com", Username: "adalove"})
	require.NoError(t, err)
	session, err := f.sessions.CreateForUser(ctx, nil, user.ID, expires)
	require.NoError(t, err)
	return user, session
}

func (f *authFixture) do(t *testing.T, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func TestAuthenticator_ValidSession(t *testing.T) {
	f := newAuthFixture(t)
	user, session := f.seed(t, time.Now().Add(time.Hour))
	token, err := f.issuer.Issue(session.ID, session.Expires)
	require.NoError(t, err)

	rec := f.do(t, token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID+"|"+session.ID, rec.Body.String())
}

func TestAuthenticator_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		token   func(t *testing.T, f *authFixture) string
		status  int
		message string
	}{
		{
			name:    "missing token",
			token:   func(*testing.T, *authFixture) string { return "" },
			status:  http.StatusUnauthorized,
			message: msgInvalidToken,
		},
		{
			name:    "garbage token",
			token:   func(*testing.T, *authFixture) string { return "not.a.jwt" },
			status:  http.StatusUnauthorized,
			message: msgInvalidToken,
		},
		{
			name: "foreign signature",
			token: func(t *testing.T, f *authFixture) string {
				_, session := f.seed(t, time.Now().Add(time.Hour))
				other := security.NewTokenIssuer([]byte("other-secret"), time.Hour)
				token, err := other.Issue(session.ID, session.Expires)
				require.NoError(t, err)
				return token
			},
			status:  http.StatusUnauthorized,
			message: msgInvalidToken,
		},
		{
			name: "embedded expiry passed",
			token: func(t *testing.T, f *authFixture) string {
				_, session := f.seed(t, time.Now().Add(time.Hour))
				token, err := f.issuer.Issue(session.ID, time.Now().Add(-time.Minute))
				require.NoError(t, err)
				return token
			},
			status:  http.StatusUnauthorized,
			message: msgExpiredToken,
		},
		{
			name: "unknown session",
			token: func(t *testing.T, f *authFixture) string {
				token, err := f.issuer.Issue("3f1c6a52-8d0e-4a51-9b7c-1f6f3b0f8d11", time.Now().Add(time.Hour))
				require.NoError(t, err)
				return token
			},
			status:  http.StatusNotFound,
			message: msgSessionNotFound,
		},
		{
			name: "session expired",
			token: func(t *testing.T, f *authFixture) string {
				_, session := f.seed(t, time.Now().Add(-time.Minute))
				token, err := f.issuer.Issue(session.ID, time.Now().Add(time.Hour))
				require.NoError(t, err)
				return token
			},
			status:  http.StatusNotFound,
			message: msgSessionExpired,
		},
		{
			name: "user deleted",
			token: func(t *testing.T, f *authFixture) string {
				user, session := f.seed(t, time.Now().Add(time.Hour))
				require.NoError(t, f.users.Delete(context.Background(), user.ID))
				token, err := f.issuer.Issue(session.ID, session.Expires)
				require.NoError(t, err)
				return token
			},
			status:  http.StatusNotFound,
			message: msgUserNotFound,
		},
		{
			name: "password changed after session expiry",
			token: func(t *testing.T, f *authFixture) string {
				user, session := f.seed(t, time.Now().Add(time.Hour))
				require.NoError(t, f.users.UpdatePassword(context.Background(), nil, user.ID, "hash", time.Now().Add(2*time.Hour)))
				token, err := f.issuer.Issue(session.ID, session.Expires)
				require.NoError(t, err)
				return token
			},
			status:  http.StatusUnauthorized,
			message: msgPasswordChanged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			rec := f.do(t, tt.token(t, f))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, message(t, rec))
		})
	}
}

func TestCurrentUser_Empty(t *testing.T) {
	_, ok := CurrentUser(context.Background())
	assert.False(t, ok)
	_, ok = CurrentSession(context.Background())
	assert.False(t, ok)
}
