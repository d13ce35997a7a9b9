// oauth.go -- Social sign-in over any registered oauth.Provider.
//
// GET /auth/{provider} stores a state + PKCE verifier in a short-lived cookie
// and redirects to the consent page. The callback checks the state, trades the
// code for a verified profile and hands the browser back to the frontend with
// the same token pair a password login returns.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cagatayturkan/blog-api/internal/oauth"
	"github.com/go-chi/chi/v5"
)

const (
	oauthCookiePrefix = "__Host-oauth-"
	oauthStateTTL     = 5 * time.Minute
)

// oauthState is the round-trip payload. Provider is pinned so a state minted
// for one provider can't complete another provider's callback.
type oauthState struct {
	Provider string `json:"p"`
	State    string `json:"s"`
	Verifier string `json:"v"`
}

func randomURLString() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}

func newOAuthState(provider string) (*oauthState, error) {
	state, err := randomURLString()
	if err != nil {
		return nil, err
	}
	verifier, err := randomURLString()
	if err != nil {
		return nil, err
	}
	return &oauthState{Provider: provider, State: state, Verifier: verifier}, nil
}

// challenge is the S256 PKCE code_challenge for the verifier.
func (s *oauthState) challenge() string {
	sum := sha256.Sum256([]byte(s.Verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (s *oauthState) encode() string {
	raw, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeOAuthState(v string) (*oauthState, error) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("decoding oauth state: %w", err)
	}
	var s oauthState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing oauth state: %w", err)
	}
	return &s, nil
}

// matches compares the returned state in constant time.
func (s *oauthState) matches(provider, returned string) bool {
	return s.Provider == provider && subtle.ConstantTimeCompare([]byte(s.State), []byte(returned)) == 1
}

func oauthCookie(provider, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     oauthCookiePrefix + provider,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// OAuthRedirect handles GET /auth/{provider}.
func (h *AuthHandler) OAuthRedirect(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.oauthProvider(w, r)
	if !ok {
		return
	}

	st, err := newOAuthState(provider.Name())
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	http.SetCookie(w, oauthCookie(provider.Name(), st.encode(), int(oauthStateTTL.Seconds())))
	http.Redirect(w, r, provider.AuthCodeURL(st.State, st.challenge()), http.StatusFound)
}

// OAuthCallback handles GET /auth/{provider}/callback and redirects to
// FRONTEND_URL/auth/{provider}-callback with token and refreshToken query params.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.oauthProvider(w, r)
	if !ok {
		return
	}
	name := provider.Name()

	c, err := r.Cookie(oauthCookiePrefix + name)
	if err != nil {
		logWarn(r, "oauth callback: missing state cookie", "provider", name)
		BadRequest(w, r, "missing oauth state")
		return
	}
	// single use, whatever happens next
	http.SetCookie(w, oauthCookie(name, "", -1))

	st, err := decodeOAuthState(c.Value)
	if err != nil {
		logWarn(r, "oauth callback: bad state cookie", "provider", name, "error", err)
		BadRequest(w, r, "invalid oauth state")
		return
	}
	if !st.matches(name, r.URL.Query().Get("state")) {
		logWarn(r, "oauth callback: state mismatch", "provider", name)
		Unauthorized(w, r, "invalid oauth state")
		return
	}

	profile, err := provider.Exchange(r.Context(), r.URL.Query().Get("code"), st.Verifier)
	if err != nil {
		if errors.Is(err, oauth.ErrEmailNotVerified) {
			Unauthorized(w, r, "oauth account email is not verified")
			return
		}
		logWarn(r, "oauth callback: exchange failed", "provider", name, "error", err)
		Unauthorized(w, r, "oauth authentication failed")
		return
	}

	res, err := h.Svc.GoogleLogin(r.Context(), profile)
	if err != nil {
		logError(r, "oauth callback: sign-in failed", "provider", name, "error", err)
		writeError(w, r, err)
		return
	}
	logInfo(r, "oauth user logged in", "user_id", res.User.ID, "provider", name)

	q := url.Values{}
	q.Set("token", res.AccessToken)
	q.Set("refreshToken", res.RefreshToken)
	target := strings.TrimRight(h.FrontendURL, "/") + "/auth/" + name + "-callback?" + q.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// oauthProvider resolves {provider}; unknown or unconfigured providers are a 404.
func (h *AuthHandler) oauthProvider(w http.ResponseWriter, r *http.Request) (oauth.Provider, bool) {
	p, ok := h.OAuthProviders[chi.URLParam(r, "provider")]
	if !ok {
		NotFound(w, "not found")
		return nil, false
	}
	return p, true
}
