// helpers_test.go
//
// Shared wiring for service, middleware and handler tests: the real blacklist,
// session registry and signer on top of the in-memory store and miniredis.
package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cagatayturkan/blog-api/internal/blacklist"
	"github.com/cagatayturkan/blog-api/internal/password"
	"github.com/cagatayturkan/blog-api/internal/reset"
	"github.com/cagatayturkan/blog-api/internal/session"
	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/cagatayturkan/blog-api/internal/testutil"
	"github.com/cagatayturkan/blog-api/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

type testEnv struct {
	svc      *Service
	handler  *AuthHandler
	store    *testutil.MockStore
	mailer   *testutil.MockMailer
	bl       *blacklist.Service
	sessions *session.Registry
	signer   *token.Signer
	resets   *reset.Service
	mr       *miniredis.Miniredis
}

func newTestEnv(t *testing.T, strategy Strategy) *testEnv {
	t.Helper()
	rs, mr := testutil.NewRedis(t)
	ms := testutil.NewMockStore()
	ml := &testutil.MockMailer{}
	signer := token.NewSigner(testSecret, time.Hour)
	bl := blacklist.New(ms, rs, signer, blacklist.Options{})
	reg := session.NewRegistry(rs, session.DefaultTTL)

	svc := NewService(ms, signer, bl, reg, ml, Options{
		Strategy:   strategy,
		BcryptCost: bcrypt.MinCost,
	})
	resetOpts := reset.Options{FrontendURL: "https://blog.example", BcryptCost: bcrypt.MinCost}
	if strategy == StrategySession {
		resetOpts.Sessions = reg
	}
	resets := reset.New(ms, ms, ml, bl, resetOpts)

	return &testEnv{
		svc: svc,
		handler: &AuthHandler{
			Svc:         svc,
			Resets:      resets,
			FrontendURL: "https://blog.example",
			PS:          healthy{},
			RS:          rs,
		},
		store:    ms,
		mailer:   ml,
		bl:       bl,
		sessions: reg,
		signer:   signer,
		resets:   resets,
		mr:       mr,
	}
}

// addUser seeds a password account and returns it.
func (e *testEnv) addUser(t *testing.T, email, plain string, role store.Role) *store.User {
	t.Helper()
	hash, err := password.Hash(plain, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u := &store.User{
		ID:           uuid.Must(uuid.NewV7()),
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: &hash,
		Role:         role,
	}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

// login returns an access token for the seeded user.
func (e *testEnv) login(t *testing.T, email, plain string) *LoginResult {
	t.Helper()
	res, err := e.svc.Login(context.Background(), email, plain)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return res
}

// router mounts the handlers the same way main does, minus rate limits.
func (e *testEnv) router() http.Handler {
	h := e.handler
	r := chi.NewRouter()
	r.Get("/health", h.CheckHealth)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/forgot-password", h.ForgotPassword)
	r.Get("/auth/validate-reset-token", h.ValidateResetToken)
	r.Post("/auth/reset-password", h.ResetPassword)
	r.Get("/auth/{provider}", h.OAuthRedirect)
	r.Get("/auth/{provider}/callback", h.OAuthCallback)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Post("/auth/logout", h.Logout)
		r.Post("/auth/logout-all", h.LogoutAll)
		r.Post("/auth/change-password", h.ChangePassword)
		r.Get("/auth/profile", h.Profile)
		r.Get("/auth/session", h.Session)
		r.With(RequireRole(store.RoleSuperAdmin)).Get("/users", h.ListUsers)
		r.Get("/users/{id}", h.GetUser)
		r.Put("/users/{id}", h.UpdateUser)
		r.With(RequireRole(store.RoleSuperAdmin)).Patch("/users/{id}/role", h.UpdateRole)
		r.Delete("/users/{id}", h.RemoveUser)
		r.With(RequireRole(store.RoleSuperAdmin)).Post("/users/{id}/revoke-tokens", h.RevokeTokens)
		r.With(RequireRole(store.RoleSuperAdmin)).Get("/users/{id}/revocation", h.Revocation)
		r.With(RequireRole(store.RoleSuperAdmin)).Delete("/users/{id}/revocation", h.LiftRevocation)
	})
	return r
}

// do sends a request through the router. body may be empty; bearer may be empty.
func (e *testEnv) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, rd)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router().ServeHTTP(w, r)
	return w
}

type healthy struct{}

func (healthy) CheckHealth(context.Context) error { return nil }

// --- Assertion helpers ---

// assertStatus checks the response code.
func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Errorf("status: expected %d, got %d (body %q)", want, w.Code, w.Body.String())
	}
}

// assertMessage checks the response is JSON {"message": want} with the given status.
func assertMessage(t *testing.T, w *httptest.ResponseRecorder, status int, want string) {
	t.Helper()
	assertStatus(t, w, status)
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: expected application/json, got %q", ct)
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body %q: %v", w.Body.String(), err)
	}
	if body.Message != want {
		t.Errorf("message: expected %q, got %q", want, body.Message)
	}
}

// decode unmarshals the response body into v.
func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding body %q: %v", w.Body.String(), err)
	}
}
