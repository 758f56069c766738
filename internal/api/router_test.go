package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devbook/internal/app/service"
	"devbook/internal/common/security"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
	"devbook/internal/domain/repository/repotest"
	"devbook/internal/platform/mailer"
)

type nopMailer struct{ sent []mailer.Message }

func (m *nopMailer) Send(_ context.Context, msg mailer.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

type memoryObjects struct{ keys []string }

func (s *memoryObjects) PutPublicObject(_ context.Context, key, _ string, _ []byte) (string, error) {
	s.keys = append(s.keys, key)
	return "https://bucket.example.com/" + key, nil
}

type apiFixture struct {
	t       *testing.T
	mock    sqlmock.Sqlmock
	users   *repotest.Users
	mail    *nopMailer
	objects *memoryObjects
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := repotest.NewUsers()
	sessions := repotest.NewSessions()
	posts := repotest.NewPosts(users)
	tokens := security.NewTokenIssuer([]byte("test-secret"), 24*time.Hour)
	f := &apiFixture{t: t, mock: mock, users: users, mail: &nopMailer{}, objects: &memoryObjects{}}

	f.handler = NewRouter(Dependencies{
		Config: RouterConfig{
			RequestTimeout:     5 * time.Second,
			MaxBodyBytes:       10 * 1024,
			MaxImageBytes:      1 << 20,
			RateLimitMax:       100,
			RateLimitWindow:    time.Hour,
			CORSAllowedOrigins: []string{"*"},
		},
		Stores: Stores{
			Users:        users,
			Sessions:     sessions,
			Posts:        posts,
			Comments:     repotest.NewMemoryStore(repository.CommentTable),
			PostLikes:    repotest.NewMemoryStore(repository.PostLikeTable),
			CommentLikes: repotest.NewMemoryStore(repository.CommentLikeTable),
			Addresses:    repotest.NewMemoryStore(repository.AddressTable),
			Educations:   repotest.NewMemoryStore(repository.EducationTable),
			Experiences:  repotest.NewMemoryStore(repository.ExperienceTable),
		},
		Tokens: tokens,
		AuthService: service.NewAuthService(db, users, sessions, tokens, f.mail, service.AuthConfig{
			SessionTTL:    24 * time.Hour,
			ResetTokenTTL: 10 * time.Minute,
			FrontendURL:   "http://localhost:3000",
		}),
		UserService:  service.NewUserService(db, users, posts),
		ImageService: service.NewImageService(f.objects, users),
	})
	return f
}

type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Data       json.RawMessage   `json:"data"`
	Errors     map[string]string `json:"errors"`
	Status     string            `json:"status"`
	StatusCode int               `json:"statusCode"`
}

func (f *apiFixture) request(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func (f *apiFixture) json(method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	f.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return f.request(req, token)
}

func (f *apiFixture) register(email, username string) model.User {
	f.t.Helper()
	rec, env := f.json(http.MethodPost, "/api/v1/auth/register", "",
		`{"name":"Ada Lovelace","email":"`+email+`","username":"`+username+`","password":"pass1234"}`)
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var user model.User
	require.NoError(f.t, json.Unmarshal(env.Data, &user))
	return user
}

func (f *apiFixture) login(email string) string {
	f.t.Helper()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	rec, env := f.json(http.MethodPost, "/api/v1/auth/login", "", `{"email":"`+email+`","password":"pass1234"}`)
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		JWT string `json:"jwt"`
	}
	require.NoError(f.t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(f.t, out.JWT)
	return out.JWT
}

func TestRouter_PublicRoutes(t *testing.T) {
	f := newAPIFixture(t)

	rec, _ := f.json(http.MethodGet, "/health", "", "")
	assert.Equal(t, "OK", rec.Body.String())

	rec, _ = f.json(http.MethodGet, "/", "", "")
	assert.JSONEq(t, `{"status":"success!"}`, rec.Body.String())

	for path, message := range map[string]string{
		"/api/v1/auth/test":      "Auth route secured",
		"/api/v1/users/test":     "Users route secured",
		"/api/v1/posts/test":     "Posts route secured",
		"/api/v1/addresses/test": "Addresses route secured",
		"/api/v1/search/test":    "Search route secured",
	} {
		rec, env := f.json(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, message, env.Message, path)
		assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"), path)
	}

	rec, _ = f.json(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_RegisterDuplicate(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register("ada@example.com", "adalove")
	assert.Equal(t, model.RoleUser, user.Role)

	rec, env := f.json(http.MethodPost, "/api/v1/auth/register", "",
		`{"name":"Ada Lovelace","email":"ada@example.com","username":"adalove","password":"pass1234"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Duplicate field value(s)", env.Message)
	assert.Equal(t, map[string]string{"email": "Email in use", "username": "Username in use"}, env.Errors)
	assert.Equal(t, 1, f.users.Len())

	rec, env = f.json(http.MethodPost, "/api/v1/auth/register", "",
		`{"name":"Ada","email":"not-an-email","username":"ad","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Input validation error", env.Message)
	assert.Equal(t, "First and last names are required.", env.Errors["name"])
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "username")
	assert.Contains(t, env.Errors, "password")
}

func TestRouter_LoginWrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.register("ada@example.com", "adalove")

	rec, env := f.json(http.MethodPost, "/api/v1/auth/login", "", `{"email":"ada@example.com","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials!", env.Message)
	assert.Equal(t, "Email and/or password are incorrect.", env.Errors["email"])
	assert.Equal(t, "Email and/or password are incorrect.", env.Errors["password"])
}

func TestRouter_SessionLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register("ada@example.com", "adalove")

	rec, env := f.json(http.MethodGet, "/api/v1/users/current-user", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token. Please log in again!", env.Message)

	token := f.login("ada@example.com")

	rec, env = f.json(http.MethodGet, "/api/v1/users/current-user", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Current user found!", env.Message)
	var current model.CurrentUser
	require.NoError(t, json.Unmarshal(env.Data, &current))
	assert.Equal(t, user.ID, current.ID)
	assert.NotContains(t, string(env.Data), "password")

	// A second login replaces the first session.
	second := f.login("ada@example.com")
	rec, env = f.json(http.MethodGet, "/api/v1/users/current-user", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Session not found. Please log in again!", env.Message)

	rec, env = f.json(http.MethodPost, "/api/v1/auth/logout", second, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful!", env.Message)

	rec, _ = f.json(http.MethodGet, "/api/v1/users/current-user", second, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register("ada@example.com", "adalove")
	token := f.login("ada@example.com")

	rec, env := f.json(http.MethodGet, "/api/v1/auth/sessions", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions!", env.Message)

	_, err := f.users.SetRole(context.Background(), user.ID, model.RoleAdmin)
	require.NoError(t, err)

	rec, env = f.json(http.MethodGet, "/api/v1/auth/sessions", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []model.Session
	require.NoError(t, json.Unmarshal(env.Data, &sessions))
	assert.Len(t, sessions, 1)

	rec, env = f.json(http.MethodPost, "/api/v1/users", token,
		`{"name":"Grace Hopper","email":"grace@example.com","username":"ghopper","password":"pass1234","role":"ADMIN"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.User
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, model.RoleAdmin, created.Role)

	rec, env = f.json(http.MethodPatch, "/api/v1/users/"+created.ID+"/role", token, `{"role":"USER"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, model.RoleUser, created.Role)
}

func TestRouter_UserOwnership(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.register("ada@example.com", "adalove")
	grace := f.register("grace@example.com", "ghopper")
	token := f.login("ada@example.com")

	rec, env := f.json(http.MethodPatch, "/api/v1/users/"+grace.ID, token, `{"headline":"Rear admiral"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Record ownership not verified!", env.Message)

	rec, env = f.json(http.MethodPatch, "/api/v1/users/"+ada.ID, token, `{"headline":"First programmer"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.User
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	require.NotNil(t, updated.Headline)
	assert.Equal(t, "First programmer", *updated.Headline)

	rec, env = f.json(http.MethodGet, "/api/v1/users/username/ghopper", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User found!", env.Message)

	rec, env = f.json(http.MethodGet, "/api/v1/users/username/nobody", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found!", env.Message)
}

func TestRouter_UpdatedEmailIsNormalized(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.register("ada@example.com", "adalove")
	token := f.login("ada@example.com")

	rec, env := f.json(http.MethodPatch, "/api/v1/users/"+ada.ID, token, `{"email":"Ada.New@Example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.User
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "ada.new@example.com", updated.Email)

	f.login("Ada.New@Example.com")

	rec, env = f.json(http.MethodPost, "/api/v1/auth/register", "",
		`{"name":"Ada Impostor","email":"ada.new@example.com","username":"adatwin","password":"pass1234"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Duplicate field value(s)", env.Message)
	assert.Equal(t, "Email in use", env.Errors["email"])
}

func TestRouter_ContactsAndFeed(t *testing.T) {
	f := newAPIFixture(t)
	ada := f.register("ada@example.com", "adalove")
	grace := f.register("grace@example.com", "ghopper")
	token := f.login("ada@example.com")

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	rec, env := f.json(http.MethodPatch, "/api/v1/users/current-user/contacts/"+grace.ID, token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Contact toggled!", env.Message)
	var current model.CurrentUser
	require.NoError(t, json.Unmarshal(env.Data, &current))
	assert.Equal(t, []string{grace.ID}, current.Contacts)

	rec, env = f.json(http.MethodPatch, "/api/v1/users/current-user/contacts/"+ada.ID, token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot add yourself as a contact!", env.Message)

	rec, _ = f.json(http.MethodPost, "/api/v1/posts", token, `{"body":"My very first devbook post"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = f.json(http.MethodGet, "/api/v1/users/current-user/feed?skip=0&take=5", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Current user feed found!", env.Message)
	var feed []model.FeedPost
	require.NoError(t, json.Unmarshal(env.Data, &feed))
	require.Len(t, feed, 1)
	assert.Equal(t, "adalove", feed[0].User.Username)
}

func TestRouter_Search(t *testing.T) {
	f := newAPIFixture(t)
	f.register("ada@example.com", "adalove")

	rec, env := f.json(http.MethodPost, "/api/v1/search", "", `{"query":"love"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Results found!", env.Message)

	rec, env = f.json(http.MethodPost, "/api/v1/search", "", `{"query":"zzzz"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Results not found!", env.Message)

	rec, env = f.json(http.MethodPost, "/api/v1/search", "", `{"query":"ab"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "query")
}

func TestRouter_PasswordReset(t *testing.T) {
	f := newAPIFixture(t)
	f.register("ada@example.com", "adalove")

	rec, env := f.json(http.MethodPost, "/api/v1/auth/send-reset-password-token", "", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No user found with email!", env.Errors["email"])

	rec, _ = f.json(http.MethodPost, "/api/v1/auth/send-reset-password-token", "", `{"email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.mail.sent, 1)
	_, token, found := strings.Cut(f.mail.sent[0].Text, "?token=")
	require.True(t, found)
	token = strings.TrimSpace(token)

	rec, env = f.json(http.MethodPatch, "/api/v1/auth/reset-password/not-a-token", "", `{"password":"newpass123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token is invalid or expired.", env.Message)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	rec, env = f.json(http.MethodPatch, "/api/v1/auth/reset-password/"+token, "", `{"password":"newpass123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Password reset!", env.Message)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	rec, _ = f.json(http.MethodPost, "/api/v1/auth/login", "", `{"email":"ada@example.com","password":"newpass123"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ImageUpload(t *testing.T) {
	f := newAPIFixture(t)
	f.register("ada@example.com", "adalove")
	token := f.login("ada@example.com")

	upload := func(field, contentType string, data []byte) (*httptest.ResponseRecorder, envelope) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="avatar.png"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/current-user/image", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return f.request(req, token)
	}

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	rec, env := upload("image", "image/png", buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Updated record!", env.Message)
	var user model.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	require.NotNil(t, user.Image)
	assert.Contains(t, *user.Image, "https://bucket.example.com/user-"+user.ID)

	rec, env = upload("avatar", "image/png", buf.Bytes())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing request items!", env.Message)

	rec, env = upload("image", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing request items!", env.Message)
	assert.Len(t, f.objects.keys, 1)
}
