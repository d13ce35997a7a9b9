// service.go -- Auth orchestrator.
//
// Composes the credential store, password hashing, token signer, blacklist
// and session registry into the login/logout/password flows. Handlers stay
// thin: decode, validate, call the Service, map the error.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cagatayturkan/blog-api/internal/blacklist"
	"github.com/cagatayturkan/blog-api/internal/metrics"
	"github.com/cagatayturkan/blog-api/internal/oauth"
	"github.com/cagatayturkan/blog-api/internal/password"
	"github.com/cagatayturkan/blog-api/internal/session"
	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/cagatayturkan/blog-api/internal/token"
	"github.com/gofrs/uuid/v5"
)

// Client-facing failure messages.
const (
	msgInvalidCredentials   = "Invalid credentials"
	msgVerificationRequired = "Email verification required. Please verify your email address before logging in."
	msgInvalidRefreshToken  = "Invalid refresh token"
	msgUserExists           = "User with this email already exists"
	msgEmailInUse           = "Email already in use"
	msgUserNotFound         = "User not found"
	msgInvalidCurrentPwd    = "Invalid current password"
	msgNoPassword           = "Account has no password set"
	msgInvalidRole          = "Invalid role"
)

// Strategy selects which guard RequireAuth consults.
type Strategy string

const (
	// StrategyBlacklist checks the token blacklist and the user's IAT cutoff.
	StrategyBlacklist Strategy = "blacklist"

	// StrategySession requires a live entry in the session registry.
	StrategySession Strategy = "session"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyBlacklist || s == StrategySession
}

// UserStore defines the credential-store operations needed by the service.
// Satisfied by *store.PostgresStore, declared at the consumer.
type UserStore interface {
	// CreateUser returns store.ErrDuplicate when the email is taken.
	CreateUser(ctx context.Context, u *store.User) error

	// Lookups return store.ErrNotFound for no match.
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error)
	GetUserByRefreshToken(ctx context.Context, tokenHash string) (*store.User, error)
	ListUsers(ctx context.Context) ([]*store.User, error)
	FindUsersWithPendingReset(ctx context.Context, now time.Time) ([]*store.User, error)

	UpdateUser(ctx context.Context, id uuid.UUID, upd store.UserUpdate) (*store.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateRefreshToken(ctx context.Context, id uuid.UUID, tokenHash *string) error

	// RotateRefreshToken returns store.ErrNotFound if oldHash is no longer stored.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldHash, newHash string) error

	UpdateUserRole(ctx context.Context, id uuid.UUID, role store.Role) (*store.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// Blacklist revokes and checks access tokens. Satisfied by *blacklist.Service.
type Blacklist interface {
	Add(ctx context.Context, tok string, userID uuid.UUID, reason string) error
	IsTokenBlacklisted(ctx context.Context, tok string) (bool, error)
	BlacklistAllUserTokens(ctx context.Context, userID uuid.UUID, reason, excludeToken string) error
	IsUserTokensBlacklisted(ctx context.Context, userID uuid.UUID, currentToken string, issuedAt *time.Time) (bool, error)
	SentinelReason(ctx context.Context, userID uuid.UUID) (string, bool, error)
	ClearUserBlacklist(ctx context.Context, userID uuid.UUID) error
	ClearUserAllTokensBlacklist(ctx context.Context, userID uuid.UUID) error
}

// Sessions is the sliding-TTL session registry. Satisfied by *session.Registry.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateAndRefresh(ctx context.Context, id string) (session.Result, error)
	Destroy(ctx context.Context, id string) error
	DestroyAll(ctx context.Context, userID uuid.UUID) error
	Info(ctx context.Context, id string) (*session.Info, bool, error)
}

// Signer issues and verifies access tokens. Satisfied by *token.Signer.
type Signer interface {
	Sign(userID uuid.UUID, email, role, sessionID string) (string, *token.Claims, error)
	Verify(tokenStr string) (*token.Claims, error)
	TTL() time.Duration
}

// Mailer sends the welcome email. Satisfied by mail.Mailer implementations.
type Mailer interface {
	SendWelcome(ctx context.Context, toEmail, firstName string) error
}

// Options tunes the service. Zero values give the blacklist strategy,
// no verification gate and the default bcrypt cost.
type Options struct {
	Strategy                 Strategy
	RequireEmailVerification bool
	BcryptCost               int
}

// RegisterInput is the data needed to create a password account.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// UpdateUserInput is a partial profile update; nil fields are left untouched.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// LogoutInput identifies the credential being retired.
// RefreshToken is optional; when set it must belong to UserID.
type LogoutInput struct {
	UserID       uuid.UUID
	AccessToken  string
	SessionID    string
	RefreshToken string
}

// TokenPair is the credential set handed to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginResult is a TokenPair plus the authenticated user.
type LoginResult struct {
	TokenPair
	User *store.User `json:"user"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User   *store.User
	Token  string
	Claims *token.Claims
}

// Service runs the authentication flows.
type Service struct {
	users     UserStore
	signer    Signer
	blacklist Blacklist
	sessions  Sessions
	mailer    Mailer
	opts      Options
}

// NewService wires the service. sessions may be nil under the blacklist strategy.
func NewService(users UserStore, signer Signer, bl Blacklist, sessions Sessions, mailer Mailer, opts Options) *Service {
	if opts.Strategy == "" {
		opts.Strategy = StrategyBlacklist
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = password.DefaultCost
	}
	return &Service{users: users, signer: signer, blacklist: bl, sessions: sessions, mailer: mailer, opts: opts}
}

// Strategy returns the configured invalidation strategy.
func (s *Service) Strategy() Strategy { return s.opts.Strategy }

func (s *Service) useSessions() bool {
	return s.opts.Strategy == StrategySession && s.sessions != nil
}

// Register creates a password account and sends a best-effort welcome email.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*store.User, error) {
	hash, err := password.Hash(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating user id: %w", err)
	}

	u := &store.User{
		ID:           id,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: &hash,
		Role:         store.RoleUser,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflict(msgUserExists)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	if err := s.mailer.SendWelcome(ctx, u.Email, u.FirstName); err != nil {
		slog.Warn("auth: welcome email not sent", "user_id", u.ID, "error", err)
	}
	return u, nil
}

// Login verifies credentials and issues a token pair.
// Unknown email and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, plain string) (*LoginResult, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			password.Equalize(plain)
			metrics.Logins.WithLabelValues("unknown_email").Inc()
			return nil, unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("fetching user for login: %w", err)
	}

	// OAuth-only accounts have no password to check against
	if u.PasswordHash == nil {
		password.Equalize(plain)
		metrics.Logins.WithLabelValues("no_password").Inc()
		return nil, unauthorized(msgInvalidCredentials)
	}
	ok, err := password.Verify(plain, *u.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.Logins.WithLabelValues("bad_password").Inc()
		return nil, unauthorized(msgInvalidCredentials)
	}

	if s.opts.RequireEmailVerification && !u.IsEmailVerified {
		metrics.Logins.WithLabelValues("unverified").Inc()
		return nil, unauthorized(msgVerificationRequired)
	}

	res, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	metrics.Logins.WithLabelValues("success").Inc()
	return res, nil
}

// mint signs an access token bound to a fresh session id.
// Under the session strategy the id is registered; otherwise it only names the login.
func (s *Service) mint(ctx context.Context, u *store.User) (string, error) {
	var sid string
	if s.useSessions() {
		id, err := s.sessions.Create(ctx, u.ID)
		if err != nil {
			return "", err
		}
		sid = id
	} else {
		id, err := uuid.NewV4()
		if err != nil {
			return "", fmt.Errorf("generating session id: %w", err)
		}
		sid = id.String()
	}

	signed, _, err := s.signer.Sign(u.ID, u.Email, string(u.Role), sid)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// issue mints an access token and overwrites the refresh slot.
func (s *Service) issue(ctx context.Context, u *store.User) (*LoginResult, error) {
	access, err := s.mint(ctx, u)
	if err != nil {
		return nil, err
	}
	refresh, hash, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateRefreshToken(ctx, u.ID, &hash); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &LoginResult{
		TokenPair: TokenPair{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    int64(s.signer.TTL().Seconds()),
		},
		User: u,
	}, nil
}

// Refresh trades a refresh token for a new pair. The old token stops working
// as soon as the slot is rotated; a concurrent replay loses the swap.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, unauthorized(msgInvalidRefreshToken)
	}
	oldHash := HashRefreshToken(refreshToken)
	u, err := s.users.GetUserByRefreshToken(ctx, oldHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, unauthorized(msgInvalidRefreshToken)
		}
		return nil, fmt.Errorf("fetching user by refresh token: %w", err)
	}

	next, nextHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.users.RotateRefreshToken(ctx, u.ID, oldHash, nextHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, unauthorized(msgInvalidRefreshToken)
		}
		return nil, fmt.Errorf("rotating refresh token: %w", err)
	}

	access, err := s.mint(ctx, u)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: next,
		ExpiresIn:    int64(s.signer.TTL().Seconds()),
	}, nil
}

// Logout retires the caller's session, refresh slot and access token.
// Safe to repeat: every step is idempotent.
func (s *Service) Logout(ctx context.Context, in LogoutInput) error {
	if in.RefreshToken != "" {
		owner, err := s.users.GetUserByRefreshToken(ctx, HashRefreshToken(in.RefreshToken))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("fetching user by refresh token: %w", err)
		}
		if err != nil || owner.ID != in.UserID {
			return unauthorized(msgInvalidRefreshToken)
		}
	}

	if s.useSessions() && in.SessionID != "" {
		if err := s.sessions.Destroy(ctx, in.SessionID); err != nil {
			return err
		}
	}
	if err := s.clearRefresh(ctx, in.UserID); err != nil {
		return err
	}
	if in.AccessToken != "" {
		if err := s.blacklist.Add(ctx, in.AccessToken, in.UserID, blacklist.ReasonLogout); err != nil {
			return err
		}
	}
	return nil
}

// LogoutAll revokes every token of the user issued up to now. currentToken,
// when set, keeps working for the exemption window so the response can be served.
func (s *Service) LogoutAll(ctx context.Context, userID uuid.UUID, currentToken string) error {
	if err := s.blacklist.BlacklistAllUserTokens(ctx, userID, blacklist.ReasonLogoutAllDevices, currentToken); err != nil {
		return err
	}
	if err := s.clearRefresh(ctx, userID); err != nil {
		return err
	}
	if s.useSessions() {
		if err := s.sessions.DestroyAll(ctx, userID); err != nil {
			return err
		}
	}
	return nil
}

// ChangePassword replaces the password and cuts off every credential issued before it.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, oldPlain, newPlain string) error {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(msgUserNotFound)
		}
		return fmt.Errorf("fetching user: %w", err)
	}
	if u.PasswordHash == nil {
		return badRequest(msgNoPassword)
	}
	ok, err := password.Verify(oldPlain, *u.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return unauthorized(msgInvalidCurrentPwd)
	}

	hash, err := password.Hash(newPlain, s.opts.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	// the new hash is committed; revoke before anything else can fail
	s.revokeAll(ctx, userID, blacklist.ReasonPasswordChange)
	if err := s.clearRefresh(ctx, userID); err != nil {
		return err
	}
	slog.Info("auth: password changed", "user_id", userID)
	return nil
}

// GoogleLogin signs in with a verified OAuth profile, creating or linking the
// account by email.
func (s *Service) GoogleLogin(ctx context.Context, p *oauth.Profile) (*LoginResult, error) {
	u, err := s.users.GetUserByEmail(ctx, p.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		u, err = s.createOAuthUser(ctx, p)
	case err != nil:
		return nil, fmt.Errorf("fetching user for oauth login: %w", err)
	default:
		u, err = s.linkOAuthUser(ctx, u, p)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.issue(ctx, u)
	if err != nil {
		return nil, err
	}
	metrics.Logins.WithLabelValues("oauth").Inc()
	return res, nil
}

func (s *Service) createOAuthUser(ctx context.Context, p *oauth.Profile) (*store.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating user id: %w", err)
	}
	sub := p.SubjectID
	u := &store.User{
		ID:              id,
		Email:           p.Email,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		GoogleID:        &sub,
		IsEmailVerified: true,
		Role:            store.RoleUser,
	}
	if p.PictureURL != "" {
		pic := p.PictureURL
		u.Picture = &pic
	}

	err = s.users.CreateUser(ctx, u)
	if errors.Is(err, store.ErrDuplicate) {
		// lost a race with a concurrent signup for the same email
		existing, err := s.users.GetUserByEmail(ctx, p.Email)
		if err != nil {
			return nil, fmt.Errorf("re-fetching user after duplicate: %w", err)
		}
		return s.linkOAuthUser(ctx, existing, p)
	}
	if err != nil {
		return nil, fmt.Errorf("creating oauth user: %w", err)
	}
	slog.Info("auth: oauth user created", "user_id", u.ID)
	return u, nil
}

// linkOAuthUser backfills the provider id and verified flag. An existing
// picture is never overwritten.
func (s *Service) linkOAuthUser(ctx context.Context, u *store.User, p *oauth.Profile) (*store.User, error) {
	var upd store.UserUpdate
	changed := false
	if u.GoogleID == nil || *u.GoogleID != p.SubjectID {
		sub := p.SubjectID
		upd.GoogleID = &sub
		changed = true
	}
	if !u.IsEmailVerified {
		verified := true
		upd.IsEmailVerified = &verified
		changed = true
	}
	if u.Picture == nil && p.PictureURL != "" {
		pic := p.PictureURL
		upd.Picture = &pic
		changed = true
	}
	if !changed {
		return u, nil
	}

	updated, err := s.users.UpdateUser(ctx, u.ID, upd)
	if err != nil {
		return nil, fmt.Errorf("linking oauth account: %w", err)
	}
	return updated, nil
}

// Authenticate resolves a bearer token to its caller.
// Classified failures wrap ErrUnauthorized; anything else is infrastructure.
func (s *Service) Authenticate(ctx context.Context, bearer string) (*Principal, error) {
	claims, err := s.signer.Verify(bearer)
	if err != nil {
		return nil, unauthorized("invalid token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, unauthorized("invalid token subject")
	}

	if s.useSessions() {
		res, err := s.sessions.ValidateAndRefresh(ctx, claims.SessionID)
		if err != nil {
			return nil, err
		}
		if !res.Valid || res.UserID != userID {
			return nil, unauthorized("session expired")
		}
	} else {
		revoked, err := s.blacklist.IsTokenBlacklisted(ctx, bearer)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, unauthorized("token revoked")
		}
		revoked, err = s.blacklist.IsUserTokensBlacklisted(ctx, userID, bearer, claims.IssuedAtTime())
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, unauthorized("all tokens revoked")
		}
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, unauthorized("user not found")
		}
		return nil, fmt.Errorf("fetching authenticated user: %w", err)
	}
	return &Principal{User: u, Token: bearer, Claims: claims}, nil
}

// GetUser returns one user.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*store.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]*store.User, error) {
	return s.users.ListUsers(ctx)
}

// ListUsersWithPendingReset returns users holding a live, unused reset link.
func (s *Service) ListUsersWithPendingReset(ctx context.Context) ([]*store.User, error) {
	return s.users.FindUsersWithPendingReset(ctx, time.Now())
}

// SessionInfo describes the caller's session. Only the session strategy has one.
func (s *Service) SessionInfo(ctx context.Context, sessionID string) (*session.Info, error) {
	if !s.useSessions() {
		return nil, notFound("Session tracking is disabled")
	}
	info, ok, err := s.sessions.Info(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, unauthorized("session expired")
	}
	return info, nil
}

// UpdateUser applies a partial profile update.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*store.User, error) {
	u, err := s.users.UpdateUser(ctx, id, store.UserUpdate{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return nil, conflict(msgEmailInUse)
	case errors.Is(err, store.ErrNotFound):
		return nil, notFound(msgUserNotFound)
	case err != nil:
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return u, nil
}

// UpdateRole changes a user's role. The middleware reads the role from the
// user row, so the change applies to the user's next request.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role store.Role) (*store.User, error) {
	if !role.Valid() {
		return nil, badRequest(msgInvalidRole)
	}
	u, err := s.users.UpdateUserRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(msgUserNotFound)
		}
		return nil, fmt.Errorf("updating role: %w", err)
	}
	return u, nil
}

// RemoveUser deletes a user and revokes whatever tokens they still hold.
func (s *Service) RemoveUser(ctx context.Context, id uuid.UUID) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(msgUserNotFound)
		}
		return fmt.Errorf("deleting user: %w", err)
	}
	s.revokeAll(ctx, id, blacklist.ReasonAdminRevoke)
	slog.Info("auth: user removed", "user_id", id)
	return nil
}

// RevokeUserTokens force-logs-out a user everywhere. Unlike a self-service
// logout-all, the cutoff survives the user's next login.
func (s *Service) RevokeUserTokens(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	if err := s.blacklist.BlacklistAllUserTokens(ctx, id, blacklist.ReasonAdminRevoke, ""); err != nil {
		return err
	}
	if err := s.clearRefresh(ctx, id); err != nil {
		return err
	}
	if s.useSessions() {
		if err := s.sessions.DestroyAll(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Revocation is the standing all-tokens cutoff of a user, if any.
type Revocation struct {
	Revoked bool   `json:"revoked"`
	Reason  string `json:"reason,omitempty"`
}

// RevocationStatus reports the user's standing cutoff.
func (s *Service) RevocationStatus(ctx context.Context, id uuid.UUID) (*Revocation, error) {
	if _, err := s.GetUser(ctx, id); err != nil {
		return nil, err
	}
	reason, ok, err := s.blacklist.SentinelReason(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Revocation{Revoked: ok, Reason: reason}, nil
}

// LiftRevocation removes the user's cutoff, re-enabling tokens issued before it.
// With passwordOnly set, only password-change and password-reset entries go,
// so admin and security revocations stay.
func (s *Service) LiftRevocation(ctx context.Context, id uuid.UUID, passwordOnly bool) error {
	if _, err := s.GetUser(ctx, id); err != nil {
		return err
	}
	if passwordOnly {
		return s.blacklist.ClearUserBlacklist(ctx, id)
	}
	return s.blacklist.ClearUserAllTokensBlacklist(ctx, id)
}

// revokeAll writes the sentinel and destroys sessions. Failures are logged;
// the triggering change has already been committed.
func (s *Service) revokeAll(ctx context.Context, userID uuid.UUID, reason string) {
	if err := s.blacklist.BlacklistAllUserTokens(ctx, userID, reason, ""); err != nil {
		slog.Error("auth: token revocation failed", "user_id", userID, "reason", reason, "error", err)
	}
	if s.useSessions() {
		if err := s.sessions.DestroyAll(ctx, userID); err != nil {
			slog.Error("auth: session cleanup failed", "user_id", userID, "reason", reason, "error", err)
		}
	}
}

// clearRefresh nulls the refresh slot. A user deleted meanwhile is not an error.
func (s *Service) clearRefresh(ctx context.Context, userID uuid.UUID) error {
	err := s.users.UpdateRefreshToken(ctx, userID, nil)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("clearing refresh token: %w", err)
	}
	return nil
}
