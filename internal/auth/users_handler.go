// users_handler.go -- HTTP handlers for /users/* (user administration).
//
// Routes sit behind RequireAuth. Ownership checks live here: a plain user
// may only touch their own record; SUPER_ADMIN may touch anyone's except
// for deleting or re-roling themselves.
package auth

import (
	"net/http"
	"strings"

	"github.com/cagatayturkan/blog-api/internal/password"
	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
)

// targetUser parses the {id} URL param and loads the caller from context.
// Writes the error response and returns ok=false on failure.
func targetUser(w http.ResponseWriter, r *http.Request) (caller *store.User, id uuid.UUID, ok bool) {
	caller, ok = UserFromContext(r.Context())
	if !ok {
		logError(r, "users route called without user in context")
		Unauthorized(w, r, "unauthorized")
		return nil, uuid.Nil, false
	}
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		BadRequest(w, r, "Invalid user id")
		return nil, uuid.Nil, false
	}
	return caller, id, true
}

func isSuperAdmin(u *store.User) bool { return u.Role == store.RoleSuperAdmin }

// ListUsers handles GET /users: SUPER_ADMIN only (enforced by RequireRole).
// ?pendingReset=true narrows the list to users holding a live reset link.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list := h.Svc.ListUsers
	if r.URL.Query().Get("pendingReset") == "true" {
		list = h.Svc.ListUsersWithPendingReset
	}
	users, err := list(r.Context())
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUser handles GET /users/{id}: self or SUPER_ADMIN.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := targetUser(w, r)
	if !ok {
		return
	}
	if caller.ID != id && !isSuperAdmin(caller) {
		logWarn(r, "get user denied", "user_id", caller.ID, "target_id", id)
		Forbidden(w)
		return
	}

	u, err := h.Svc.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser handles PUT /users/{id}: self or SUPER_ADMIN. Only profile fields change here.
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := targetUser(w, r)
	if !ok {
		return
	}
	if caller.ID != id && !isSuperAdmin(caller) {
		logWarn(r, "update user denied", "user_id", caller.ID, "target_id", id)
		Forbidden(w)
		return
	}

	var input struct {
		Email     *string `json:"email"`
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
	}
	if !decodeBody(w, r, &input) {
		return
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if msg := password.ValidateEmail(email); msg != "" {
			BadRequest(w, r, msg)
			return
		}
		input.Email = &email
	}
	for _, name := range []*string{input.FirstName, input.LastName} {
		if name != nil && strings.TrimSpace(*name) == "" {
			BadRequest(w, r, "Name fields cannot be empty")
			return
		}
	}

	u, err := h.Svc.UpdateUser(r.Context(), id, UpdateUserInput{
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	logInfo(r, "user updated", "user_id", caller.ID, "target_id", id)
	writeJSON(w, http.StatusOK, u)
}

// UpdateRole handles PATCH /users/{id}/role: SUPER_ADMIN only, never on self.
func (h *AuthHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := targetUser(w, r)
	if !ok {
		return
	}
	if caller.ID == id {
		logWarn(r, "role change on self denied", "user_id", caller.ID)
		Forbidden(w)
		return
	}

	var input struct {
		Role store.Role `json:"role"`
	}
	if !decodeBody(w, r, &input) {
		return
	}

	u, err := h.Svc.UpdateRole(r.Context(), id, input.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logInfo(r, "user role changed", "user_id", caller.ID, "target_id", id, "role", u.Role)
	writeJSON(w, http.StatusOK, u)
}

// RemoveUser handles DELETE /users/{id}: self or SUPER_ADMIN; a SUPER_ADMIN may not delete themselves.
func (h *AuthHandler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := targetUser(w, r)
	if !ok {
		return
	}
	self := caller.ID == id
	if (!self && !isSuperAdmin(caller)) || (self && isSuperAdmin(caller)) {
		logWarn(r, "delete user denied", "user_id", caller.ID, "target_id", id)
		Forbidden(w)
		return
	}

	if err := h.Svc.RemoveUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	logInfo(r, "user deleted", "user_id", caller.ID, "target_id", id)
	OK(w, "User deleted successfully")
}

// RevokeTokens handles POST /users/{id}/revoke-tokens: SUPER_ADMIN forced logout.
func (h *AuthHandler) RevokeTokens(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := targetUser(w, r)
	if !ok {
		return
	}

	if err := h.Svc.RevokeUserTokens(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	logInfo(r, "user tokens revoked", "user_id", caller.ID, "target_id", id)
	OK(w, "All tokens revoked for user")
}

// Revocation handles GET /users/{id}/revocation: SUPER_ADMIN view of the standing cutoff.
func (h *AuthHandler) Revocation(w http.ResponseWriter, r *http.Request) {
	_, id, ok := targetUser(w, r)
	if !ok {
		return
	}
	rev, err := h.Svc.RevocationStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// LiftRevocation handles DELETE /users/{id}/revocation: SUPER_ADMIN unlock.
// ?scope=password clears only password-related entries.
func (h *AuthHandler) LiftRevocation(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := targetUser(w, r)
	if !ok {
		return
	}
	passwordOnly := r.URL.Query().Get("scope") == "password"
	if err := h.Svc.LiftRevocation(r.Context(), id, passwordOnly); err != nil {
		writeError(w, r, err)
		return
	}
	logInfo(r, "user revocation lifted", "user_id", caller.ID, "target_id", id, "password_only", passwordOnly)
	OK(w, "Revocation lifted")
}
