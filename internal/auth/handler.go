// handler.go -- HTTP handlers for all /auth/* endpoints.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/cagatayturkan/blog-api/internal/oauth"
	"github.com/cagatayturkan/blog-api/internal/password"
	"github.com/cagatayturkan/blog-api/internal/reset"
)

// PasswordResets defines the forgot-password flow used by the handlers.
// Satisfied by *reset.Service, declared at the consumer.
type PasswordResets interface {
	// Request returns the same message whether or not the email exists.
	Request(ctx context.Context, email string) (string, error)

	// ValidateToken reports an unusable token as Valid=false, not as an error.
	ValidateToken(ctx context.Context, tok string) (reset.Validation, error)

	// Reset returns reset.ErrInvalidToken for unknown, used or expired tokens.
	Reset(ctx context.Context, tok, newPassword string) (string, error)
}

// AuthHandler holds dependencies for all HTTP handlers and middleware.
type AuthHandler struct {
	Svc    *Service
	Resets PasswordResets

	// OAuthProviders maps provider name to implementation. Empty map disables OAuth routes.
	OAuthProviders map[string]oauth.Provider

	// FrontendURL is where the OAuth callback sends the browser with the issued tokens.
	FrontendURL string

	PS HealthChecker
	RS HealthChecker
}

// normalizeEmail trims and lowercases; ValidateEmail runs on the result.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// decodeBody decodes a JSON request body, writing 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logWarn(r, "failed to decode request body", "error", err)
		BadRequest(w, r, "error decoding request body")
		return false
	}
	return true
}

// Register handles POST /auth/register: email + password signup.
// Returns 201 with the user, 400 for validation errors, 409 if the email is taken.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Password  string `json:"password"`
	}
	if !decodeBody(w, r, &input) {
		return
	}

	input.Email = normalizeEmail(input.Email)
	if msg := password.ValidateEmail(input.Email); msg != "" {
		BadRequest(w, r, msg)
		return
	}
	if msg := password.ValidatePassword(input.Password); msg != "" {
		BadRequest(w, r, msg)
		return
	}
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if input.FirstName == "" || input.LastName == "" {
		BadRequest(w, r, "First name and last name are required")
		return
	}

	u, err := h.Svc.Register(r.Context(), RegisterInput{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Password:  input.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logInfo(r, "user registered", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /auth/login: email + password authentication.
// Returns 200 with the token pair and user, 401 for bad credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &input) {
		return
	}

	// Invalid email or missing password -- both return generic 401 (no enumeration).
	input.Email = normalizeEmail(input.Email)
	if msg := password.ValidateEmail(input.Email); msg != "" || input.Password == "" {
		Unauthorized(w, r, msgInvalidCredentials)
		return
	}

	res, err := h.Svc.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logInfo(r, "user logged in successfully", "user_id", res.User.ID)
	writeJSON(w, http.StatusOK, res)
}

// Refresh handles POST /auth/refresh: rotates the refresh token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &input) {
		return
	}

	pair, err := h.Svc.Refresh(r.Context(), input.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout handles POST /auth/logout: retires the bearer token, its session and the refresh slot.
// The body is optional; when it names a refresh token, that token must belong to the caller.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		logError(r, "logout called without user in context")
		InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	tok, _ := TokenFromContext(r.Context())
	sid, _ := SessionIDFromContext(r.Context())

	var input struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
		logWarn(r, "failed to decode logout input", "error", err)
		BadRequest(w, r, "error decoding request body")
		return
	}

	err := h.Svc.Logout(r.Context(), LogoutInput{
		UserID:       u.ID,
		AccessToken:  tok,
		SessionID:    sid,
		RefreshToken: input.RefreshToken,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	logInfo(r, "user logged out", "user_id", u.ID)
	OK(w, "Logged out successfully")
}

// LogoutAll handles POST /auth/logout-all: revokes every token issued to the caller so far.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		logError(r, "logout-all called without user in context")
		InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	tok, _ := TokenFromContext(r.Context())

	if err := h.Svc.LogoutAll(r.Context(), u.ID, tok); err != nil {
		writeError(w, r, err)
		return
	}

	logInfo(r, "user logged out of all devices", "user_id", u.ID)
	OK(w, "Logged out from all devices successfully")
}

// ChangePassword handles POST /auth/change-password: verifies the current password,
// stores the new one and revokes every previously issued token.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeBody(w, r, &input) {
		return
	}
	if input.CurrentPassword == "" {
		BadRequest(w, r, "Current password is required")
		return
	}
	if msg := password.ValidatePassword(input.NewPassword); msg != "" {
		BadRequest(w, r, msg)
		return
	}

	u, ok := UserFromContext(r.Context())
	if !ok {
		InternalServerError(w, r, errors.New("missing auth context"))
		return
	}

	if err := h.Svc.ChangePassword(r.Context(), u.ID, input.CurrentPassword, input.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	logInfo(r, "password changed", "user_id", u.ID)
	OK(w, "Password changed successfully. Please login again.")
}

// Profile handles GET /auth/profile: returns the authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		InternalServerError(w, r, errors.New("missing auth context"))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Session handles GET /auth/session: the caller's sliding session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sid, _ := SessionIDFromContext(r.Context())
	info, err := h.Svc.SessionInfo(r.Context(), sid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ForgotPassword handles POST /auth/forgot-password.
// Responds with the same message whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &input) {
		return
	}
	input.Email = normalizeEmail(input.Email)
	if msg := password.ValidateEmail(input.Email); msg != "" {
		BadRequest(w, r, msg)
		return
	}

	msg, err := h.Resets.Request(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, reset.ErrDispatch) {
			logError(r, "password reset dispatch failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, reset.ErrDispatch.Error())
			return
		}
		InternalServerError(w, r, err)
		return
	}
	OK(w, msg)
}

// ValidateResetToken handles GET /auth/validate-reset-token?token=.
func (h *AuthHandler) ValidateResetToken(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		BadRequest(w, r, "token is required")
		return
	}

	v, err := h.Resets.ValidateToken(r.Context(), tok)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ResetPassword handles POST /auth/reset-password: redeems a reset token.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeBody(w, r, &input) {
		return
	}
	if input.Token == "" {
		BadRequest(w, r, "token is required")
		return
	}
	if msg := password.ValidatePassword(input.NewPassword); msg != "" {
		BadRequest(w, r, msg)
		return
	}

	msg, err := h.Resets.Reset(r.Context(), input.Token, input.NewPassword)
	if err != nil {
		if errors.Is(err, reset.ErrInvalidToken) {
			logWarn(r, "password reset with invalid token")
			BadRequest(w, r, "Invalid or expired reset token")
			return
		}
		InternalServerError(w, r, err)
		return
	}
	OK(w, msg)
}
