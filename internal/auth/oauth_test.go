// oauth_test.go -- unit tests for OAuthRedirect and OAuthCallback.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/cagatayturkan/blog-api/internal/oauth"
)

// --- Shared helpers ---

// mockProvider implements oauth.Provider for tests.
type mockProvider struct {
	name        string
	authCodeURL string
	profile     *oauth.Profile
	exchangeErr error

	gotCode, gotVerifier string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) AuthCodeURL(state, challenge string) string {
	return m.authCodeURL + "?state=" + state + "&code_challenge=" + challenge
}

func (m *mockProvider) Exchange(_ context.Context, code, verifier string) (*oauth.Profile, error) {
	m.gotCode, m.gotVerifier = code, verifier
	return m.profile, m.exchangeErr
}

const googleCookie = "__Host-oauth-google"

// makeStateCookie builds a google state cookie value.
func makeStateCookie(state, verifier string) string {
	return (&oauthState{Provider: "google", State: state, Verifier: verifier}).encode()
}

// newOAuthEnv registers a google mockProvider on a fresh env.
func newOAuthEnv(t *testing.T, profile *oauth.Profile) (*testEnv, *mockProvider) {
	t.Helper()
	e := newTestEnv(t, StrategyBlacklist)
	p := &mockProvider{name: "google", authCodeURL: "https://accounts.example/auth", profile: profile}
	e.handler.OAuthProviders = map[string]oauth.Provider{"google": p}
	return e, p
}

// callback sends GET /auth/google/callback with the given cookie value (none if empty).
func callback(t *testing.T, e *testEnv, cookieVal, state, code string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet,
		"/auth/google/callback?state="+url.QueryEscape(state)+"&code="+url.QueryEscape(code), nil)
	if cookieVal != "" {
		r.AddCookie(&http.Cookie{Name: googleCookie, Value: cookieVal})
	}
	w := httptest.NewRecorder()
	e.router().ServeHTTP(w, r)
	return w
}

// --- OAuthRedirect ---

func TestOAuthRedirect(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		e, _ := newOAuthEnv(t, nil)
		w := e.do(t, http.MethodGet, "/auth/github", "", "")
		assertMessage(t, w, http.StatusNotFound, "not found")
	})

	t.Run("sets state cookie and redirects", func(t *testing.T) {
		e, _ := newOAuthEnv(t, nil)
		w := e.do(t, http.MethodGet, "/auth/google", "", "")
		assertStatus(t, w, http.StatusFound)

		loc, err := url.Parse(w.Header().Get("Location"))
		if err != nil {
			t.Fatalf("parsing Location: %v", err)
		}
		if loc.Host != "accounts.example" {
			t.Errorf("redirect host: got %q", loc.Host)
		}

		var cookie *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == googleCookie {
				cookie = c
			}
		}
		if cookie == nil {
			t.Fatal("expected google state cookie")
		}
		if !cookie.HttpOnly || !cookie.Secure || cookie.Path != "/" {
			t.Errorf("cookie flags: %+v", cookie)
		}

		raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
		if err != nil {
			t.Fatalf("decoding cookie: %v", err)
		}
		var sc oauthState
		if err := json.Unmarshal(raw, &sc); err != nil {
			t.Fatalf("unmarshalling cookie: %v", err)
		}
		if sc.State != loc.Query().Get("state") {
			t.Errorf("state: cookie %q, redirect %q", sc.State, loc.Query().Get("state"))
		}
		if sc.Provider != "google" {
			t.Errorf("provider: got %q", sc.Provider)
		}
		if sc.Verifier == "" || loc.Query().Get("code_challenge") != sc.challenge() {
			t.Error("expected PKCE challenge derived from the stored verifier")
		}
	})
}

// --- OAuthCallback ---

func TestOAuthCallback(t *testing.T) {
	profile := &oauth.Profile{Email: "g@example.com", FirstName: "Gina", LastName: "Ray", SubjectID: "sub-1"}

	t.Run("missing cookie", func(t *testing.T) {
		e, _ := newOAuthEnv(t, profile)
		w := callback(t, e, "", "s", "c")
		assertMessage(t, w, http.StatusBadRequest, "missing oauth state")
	})

	t.Run("garbage cookie", func(t *testing.T) {
		e, _ := newOAuthEnv(t, profile)
		w := callback(t, e, "!!!", "s", "c")
		assertMessage(t, w, http.StatusBadRequest, "invalid oauth state")
	})

	t.Run("state mismatch", func(t *testing.T) {
		e, _ := newOAuthEnv(t, profile)
		w := callback(t, e, makeStateCookie("expected", "v"), "other", "c")
		assertMessage(t, w, http.StatusUnauthorized, "invalid oauth state")
	})

	t.Run("state minted for another provider", func(t *testing.T) {
		e, _ := newOAuthEnv(t, profile)
		other := (&oauthState{Provider: "github", State: "s", Verifier: "v"}).encode()
		w := callback(t, e, other, "s", "c")
		assertMessage(t, w, http.StatusUnauthorized, "invalid oauth state")
	})

	t.Run("unverified provider email", func(t *testing.T) {
		e, p := newOAuthEnv(t, nil)
		p.exchangeErr = fmt.Errorf("google: %w", oauth.ErrEmailNotVerified)
		w := callback(t, e, makeStateCookie("s", "v"), "s", "c")
		assertMessage(t, w, http.StatusUnauthorized, "oauth account email is not verified")
	})

	t.Run("exchange failure", func(t *testing.T) {
		e, p := newOAuthEnv(t, nil)
		p.exchangeErr = errors.New("bad code")
		w := callback(t, e, makeStateCookie("s", "v"), "s", "c")
		assertMessage(t, w, http.StatusUnauthorized, "oauth authentication failed")
	})

	t.Run("success redirects to the frontend with tokens", func(t *testing.T) {
		e, p := newOAuthEnv(t, profile)
		w := callback(t, e, makeStateCookie("s", "the-verifier"), "s", "the-code")
		assertStatus(t, w, http.StatusFound)

		if p.gotCode != "the-code" || p.gotVerifier != "the-verifier" {
			t.Errorf("exchange got code=%q verifier=%q", p.gotCode, p.gotVerifier)
		}

		loc := w.Header().Get("Location")
		if !strings.HasPrefix(loc, "https://blog.example/auth/google-callback?") {
			t.Fatalf("Location: got %q", loc)
		}
		u, err := url.Parse(loc)
		if err != nil {
			t.Fatal(err)
		}
		access := u.Query().Get("token")
		if access == "" || u.Query().Get("refreshToken") == "" {
			t.Fatalf("expected both tokens in %q", loc)
		}

		// state cookie is cleared
		cleared := false
		for _, c := range w.Result().Cookies() {
			if c.Name == googleCookie && c.MaxAge < 0 {
				cleared = true
			}
		}
		if !cleared {
			t.Error("expected state cookie to be cleared")
		}

		w = e.do(t, http.MethodGet, "/auth/profile", "", access)
		assertStatus(t, w, http.StatusOK)
	})
}
