package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cagatayturkan/blog-api/internal/blacklist"
	"github.com/cagatayturkan/blog-api/internal/oauth"
	"github.com/cagatayturkan/blog-api/internal/password"
	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/cagatayturkan/blog-api/internal/testutil"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strategies = []Strategy{StrategyBlacklist, StrategySession}

// assertKind checks err is a classified *Error of the given kind and message.
func assertKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var ae *Error
	require.True(t, errors.As(err, &ae), "expected *auth.Error, got %T", err)
	if msg != "" {
		assert.Equal(t, msg, ae.Message)
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a hashed password and sends a welcome", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u, err := e.svc.Register(ctx, RegisterInput{
			Email: "alice@example.com", FirstName: "Alice", LastName: "Liddell", Password: "s3cret-pass",
		})
		require.NoError(t, err)

		stored := e.store.User(u.ID)
		require.NotNil(t, stored)
		require.NotNil(t, stored.PasswordHash)
		assert.NotEqual(t, "s3cret-pass", *stored.PasswordHash)
		ok, err := password.Verify("s3cret-pass", *stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, store.RoleUser, stored.Role)

		mail := e.mailer.Last("welcome")
		require.NotNil(t, mail)
		assert.Equal(t, "alice@example.com", mail.ToEmail)
		assert.Equal(t, "Alice", mail.FirstName)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		e.addUser(t, "alice@example.com", "s3cret-pass", "")
		_, err := e.svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "another-pass"})
		assertKind(t, err, ErrConflict, "User with this email already exists")
	})

	t.Run("welcome failure does not fail registration", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		e.mailer.WelcomeErr = errors.New("smtp down")
		u, err := e.svc.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.NotNil(t, e.store.User(u.ID))
	})

	t.Run("store failure is returned unclassified", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		e.store.CreateUserErr = errors.New("db down")
		_, err := e.svc.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "s3cret-pass"})
		require.Error(t, err)
		var ae *Error
		assert.False(t, errors.As(err, &ae))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("returns tokens and stores the refresh hash", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")

		res, err := e.svc.Login(ctx, "alice@example.com", "s3cret-pass")
		require.NoError(t, err)
		assert.NotEmpty(t, res.AccessToken)
		assert.NotEmpty(t, res.RefreshToken)
		assert.Equal(t, int64(3600), res.ExpiresIn)
		assert.Equal(t, u.ID, res.User.ID)

		stored := e.store.User(u.ID)
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, HashRefreshToken(res.RefreshToken), *stored.RefreshToken)

		claims, err := e.signer.Verify(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), claims.Subject)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.NotEmpty(t, claims.SessionID)
	})

	t.Run("unknown email and wrong password look the same", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		e.addUser(t, "alice@example.com", "s3cret-pass", "")

		_, errUnknown := e.svc.Login(ctx, "nobody@example.com", "s3cret-pass")
		_, errWrong := e.svc.Login(ctx, "alice@example.com", "wrong-pass")
		assertKind(t, errUnknown, ErrUnauthorized, "Invalid credentials")
		assertKind(t, errWrong, ErrUnauthorized, "Invalid credentials")
	})

	t.Run("oauth-only account cannot use a password", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := &store.User{ID: uuid.Must(uuid.NewV7()), Email: "g@example.com"}
		require.NoError(t, e.store.CreateUser(ctx, u))

		_, err := e.svc.Login(ctx, "g@example.com", "anything-goes")
		assertKind(t, err, ErrUnauthorized, "Invalid credentials")
	})

	t.Run("unverified user gets a distinct message when verification is required", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		e.svc.opts.RequireEmailVerification = true
		e.addUser(t, "alice@example.com", "s3cret-pass", "")

		_, err := e.svc.Login(ctx, "alice@example.com", "s3cret-pass")
		assertKind(t, err, ErrUnauthorized,
			"Email verification required. Please verify your email address before logging in.")
	})

	t.Run("session strategy registers the sid", func(t *testing.T) {
		e := newTestEnv(t, StrategySession)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		res := e.login(t, "alice@example.com", "s3cret-pass")

		claims, err := e.signer.Verify(res.AccessToken)
		require.NoError(t, err)
		info, ok, err := e.sessions.Info(ctx, claims.SessionID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, u.ID, info.UserID)
	})
}

// TestAliceScenario: login, change password, old token rejected, new login works.
func TestAliceScenario(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			ctx := context.Background()
			e := newTestEnv(t, strategy)
			_, err := e.svc.Register(ctx, RegisterInput{
				Email: "alice@example.com", FirstName: "Alice", LastName: "Liddell", Password: "old-password",
			})
			require.NoError(t, err)

			t1 := e.login(t, "alice@example.com", "old-password").AccessToken
			_, err = e.svc.Authenticate(ctx, t1)
			require.NoError(t, err, "fresh token should authenticate")

			p, err := e.svc.Authenticate(ctx, t1)
			require.NoError(t, err)
			require.NoError(t, e.svc.ChangePassword(ctx, p.User.ID, "old-password", "new-password"))

			_, err = e.svc.Authenticate(ctx, t1)
			assertKind(t, err, ErrUnauthorized, "")

			_, err = e.svc.Login(ctx, "alice@example.com", "old-password")
			assertKind(t, err, ErrUnauthorized, "Invalid credentials")

			t2 := e.login(t, "alice@example.com", "new-password").AccessToken
			_, err = e.svc.Authenticate(ctx, t2)
			assert.NoError(t, err, "token from the new login should authenticate")

			_, err = e.svc.Authenticate(ctx, t1)
			assertKind(t, err, ErrUnauthorized, "")
		})
	}
}

// TestLoginKeepsRevocations: a later login never revives tokens issued before a sentinel.
func TestLoginKeepsRevocations(t *testing.T) {
	ctx := context.Background()

	for _, reason := range []string{
		blacklist.ReasonPasswordChange,
		blacklist.ReasonPasswordReset,
		blacklist.ReasonLogoutAllDevices,
		blacklist.ReasonAdminRevoke,
		blacklist.ReasonSecurity,
	} {
		t.Run(reason, func(t *testing.T) {
			e := newTestEnv(t, StrategyBlacklist)
			u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
			stolen := e.login(t, "alice@example.com", "s3cret-pass").AccessToken
			require.NoError(t, e.bl.BlacklistAllUserTokens(ctx, u.ID, reason, ""))

			fresh := e.login(t, "alice@example.com", "s3cret-pass").AccessToken
			_, err := e.svc.Authenticate(ctx, fresh)
			assert.NoError(t, err, "token minted after the cutoff")

			_, err = e.svc.Authenticate(ctx, stolen)
			assertKind(t, err, ErrUnauthorized, "all tokens revoked")

			got, ok, err := e.bl.SentinelReason(ctx, u.ID)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, reason, got)
		})
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the slot", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		first := e.login(t, "alice@example.com", "s3cret-pass")

		pair, err := e.svc.Refresh(ctx, first.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, first.RefreshToken, pair.RefreshToken)
		assert.Equal(t, HashRefreshToken(pair.RefreshToken), *e.store.User(u.ID).RefreshToken)

		_, err = e.svc.Authenticate(ctx, pair.AccessToken)
		assert.NoError(t, err)

		_, err = e.svc.Refresh(ctx, first.RefreshToken)
		assertKind(t, err, ErrUnauthorized, "Invalid refresh token")
	})

	t.Run("unknown and empty tokens are rejected", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		_, err := e.svc.Refresh(ctx, "")
		assertKind(t, err, ErrUnauthorized, "Invalid refresh token")
		_, err = e.svc.Refresh(ctx, "not-a-real-token")
		assertKind(t, err, ErrUnauthorized, "Invalid refresh token")
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	for _, strategy := range strategies {
		t.Run(string(strategy)+" revokes the bearer token", func(t *testing.T) {
			e := newTestEnv(t, strategy)
			u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
			res := e.login(t, "alice@example.com", "s3cret-pass")
			p, err := e.svc.Authenticate(ctx, res.AccessToken)
			require.NoError(t, err)

			in := LogoutInput{UserID: u.ID, AccessToken: res.AccessToken, SessionID: p.Claims.SessionID}
			require.NoError(t, e.svc.Logout(ctx, in))

			_, err = e.svc.Authenticate(ctx, res.AccessToken)
			assertKind(t, err, ErrUnauthorized, "")
			assert.Nil(t, e.store.User(u.ID).RefreshToken)

			// repeat logout is a no-op
			assert.NoError(t, e.svc.Logout(ctx, in))
		})
	}

	t.Run("ledger row carries the logout reason", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		res := e.login(t, "alice@example.com", "s3cret-pass")

		require.NoError(t, e.svc.Logout(ctx, LogoutInput{UserID: u.ID, AccessToken: res.AccessToken}))
		entry := e.store.BlacklistEntry(res.AccessToken)
		require.NotNil(t, entry)
		assert.Equal(t, blacklist.ReasonLogout, entry.Reason)
	})

	t.Run("refresh token of another user is rejected", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		alice := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		e.addUser(t, "bob@example.com", "s3cret-pass", "")
		aliceRes := e.login(t, "alice@example.com", "s3cret-pass")
		bobRes := e.login(t, "bob@example.com", "s3cret-pass")

		err := e.svc.Logout(ctx, LogoutInput{
			UserID: alice.ID, AccessToken: aliceRes.AccessToken, RefreshToken: bobRes.RefreshToken,
		})
		assertKind(t, err, ErrUnauthorized, "Invalid refresh token")

		_, err = e.svc.Authenticate(ctx, aliceRes.AccessToken)
		assert.NoError(t, err, "rejected logout must not revoke anything")
	})
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, StrategyBlacklist)
	u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
	phone := e.login(t, "alice@example.com", "s3cret-pass")
	laptop := e.login(t, "alice@example.com", "s3cret-pass")

	require.NoError(t, e.svc.LogoutAll(ctx, u.ID, laptop.AccessToken))

	_, err := e.svc.Authenticate(ctx, phone.AccessToken)
	assertKind(t, err, ErrUnauthorized, "")
	_, err = e.svc.Authenticate(ctx, laptop.AccessToken)
	assert.NoError(t, err, "the revoking request's token is exempt for a short window")

	assert.Nil(t, e.store.User(u.ID).RefreshToken)
	reason, ok, err := e.bl.SentinelReason(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, blacklist.ReasonLogoutAllDevices, reason)
}

func TestLogoutAllDestroysSessions(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t, StrategySession)
	u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
	res := e.login(t, "alice@example.com", "s3cret-pass")

	require.NoError(t, e.svc.LogoutAll(ctx, u.ID, res.AccessToken))
	_, err := e.svc.Authenticate(ctx, res.AccessToken)
	assertKind(t, err, ErrUnauthorized, "")
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		err := e.svc.ChangePassword(ctx, uuid.Must(uuid.NewV7()), "a", "b")
		assertKind(t, err, ErrNotFound, "User not found")
	})

	t.Run("wrong current password", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		res := e.login(t, "alice@example.com", "s3cret-pass")

		err := e.svc.ChangePassword(ctx, u.ID, "wrong-pass", "new-password")
		assertKind(t, err, ErrUnauthorized, "Invalid current password")

		_, err = e.svc.Authenticate(ctx, res.AccessToken)
		assert.NoError(t, err, "a failed change must not revoke tokens")
	})

	t.Run("account without password", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := &store.User{ID: uuid.Must(uuid.NewV7()), Email: "g@example.com"}
		require.NoError(t, e.store.CreateUser(ctx, u))
		err := e.svc.ChangePassword(ctx, u.ID, "x", "new-password")
		assertKind(t, err, ErrBadRequest, "")
	})

	t.Run("cascade failure is logged, not returned", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		e.store.InsertBlacklistErr = errors.New("ledger down")

		require.NoError(t, e.svc.ChangePassword(ctx, u.ID, "s3cret-pass", "new-password"))
		ok, err := password.Verify("new-password", *e.store.User(u.ID).PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("writes a password_change sentinel", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		require.NoError(t, e.svc.ChangePassword(ctx, u.ID, "s3cret-pass", "new-password"))

		reason, ok, err := e.bl.SentinelReason(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, blacklist.ReasonPasswordChange, reason)
	})

	for _, strategy := range strategies {
		t.Run(string(strategy)+" revokes even when the refresh slot can't be cleared", func(t *testing.T) {
			e := newTestEnv(t, strategy)
			u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
			t1 := e.login(t, "alice@example.com", "s3cret-pass").AccessToken

			e.store.UpdateRefreshTokenErr = errors.New("db blip")
			require.Error(t, e.svc.ChangePassword(ctx, u.ID, "s3cret-pass", "new-password"))
			e.store.UpdateRefreshTokenErr = nil

			_, err := e.svc.Authenticate(ctx, t1)
			assertKind(t, err, ErrUnauthorized, "")
		})
	}
}

// TestPasswordResetRevokesTokens runs the reset flow against the real blacklist.
func TestPasswordResetRevokesTokens(t *testing.T) {
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			ctx := context.Background()
			e := newTestEnv(t, strategy)
			u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
			old := e.login(t, "alice@example.com", "s3cret-pass")

			_, err := e.resets.Request(ctx, "alice@example.com")
			require.NoError(t, err)
			resets := e.store.UserResets(u.ID)
			require.Len(t, resets, 1)

			_, err = e.resets.Reset(ctx, resets[0].Token, "brand-new-pass")
			require.NoError(t, err)

			_, err = e.svc.Authenticate(ctx, old.AccessToken)
			assertKind(t, err, ErrUnauthorized, "")
			_, err = e.svc.Refresh(ctx, old.RefreshToken)
			assertKind(t, err, ErrUnauthorized, "Invalid refresh token")

			fresh := e.login(t, "alice@example.com", "brand-new-pass")
			_, err = e.svc.Authenticate(ctx, fresh.AccessToken)
			assert.NoError(t, err)
		})
	}
}

func TestGoogleLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a verified user", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		res, err := e.svc.GoogleLogin(ctx, &oauth.Profile{
			Email: "g@example.com", FirstName: "Gina", LastName: "Ray", SubjectID: "sub-1", PictureURL: "https://pic/1",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, res.AccessToken)

		u := e.store.User(res.User.ID)
		require.NotNil(t, u)
		assert.True(t, u.IsEmailVerified)
		require.NotNil(t, u.GoogleID)
		assert.Equal(t, "sub-1", *u.GoogleID)
		require.NotNil(t, u.Picture)
		assert.Equal(t, "https://pic/1", *u.Picture)
		assert.Nil(t, u.PasswordHash)
	})

	t.Run("links an existing account without overwriting its picture", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		existing := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		pic := "https://pic/original"
		_, err := e.store.UpdateUser(ctx, existing.ID, store.UserUpdate{Picture: &pic})
		require.NoError(t, err)

		res, err := e.svc.GoogleLogin(ctx, &oauth.Profile{
			Email: "alice@example.com", SubjectID: "sub-2", PictureURL: "https://pic/new",
		})
		require.NoError(t, err)
		assert.Equal(t, existing.ID, res.User.ID)

		u := e.store.User(existing.ID)
		assert.True(t, u.IsEmailVerified)
		require.NotNil(t, u.GoogleID)
		assert.Equal(t, "sub-2", *u.GoogleID)
		assert.Equal(t, "https://pic/original", *u.Picture)
		assert.NotNil(t, u.PasswordHash, "password login keeps working")
	})

	t.Run("fills a missing picture", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		existing := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		_, err := e.svc.GoogleLogin(ctx, &oauth.Profile{
			Email: "alice@example.com", SubjectID: "sub-3", PictureURL: "https://pic/3",
		})
		require.NoError(t, err)
		u := e.store.User(existing.ID)
		require.NotNil(t, u.Picture)
		assert.Equal(t, "https://pic/3", *u.Picture)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects garbage and foreign signatures", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		_, err := e.svc.Authenticate(ctx, "garbage")
		assertKind(t, err, ErrUnauthorized, "")
	})

	t.Run("rejects a token whose user was deleted", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		res := e.login(t, "alice@example.com", "s3cret-pass")
		require.NoError(t, e.store.DeleteUser(ctx, u.ID))

		_, err := e.svc.Authenticate(ctx, res.AccessToken)
		assertKind(t, err, ErrUnauthorized, "")
	})

	t.Run("session strategy rejects an idle session", func(t *testing.T) {
		e := newTestEnv(t, StrategySession)
		e.addUser(t, "alice@example.com", "s3cret-pass", "")
		res := e.login(t, "alice@example.com", "s3cret-pass")

		e.mr.FastForward(61 * time.Second)
		_, err := e.svc.Authenticate(ctx, res.AccessToken)
		assertKind(t, err, ErrUnauthorized, "")
	})

	t.Run("session strategy ignores the blacklist", func(t *testing.T) {
		e := newTestEnv(t, StrategySession)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		res := e.login(t, "alice@example.com", "s3cret-pass")
		require.NoError(t, e.bl.Add(ctx, res.AccessToken, u.ID, blacklist.ReasonLogout))

		_, err := e.svc.Authenticate(ctx, res.AccessToken)
		assert.NoError(t, err)
	})

	t.Run("ledger outage is not classified", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		e.addUser(t, "alice@example.com", "s3cret-pass", "")
		res := e.login(t, "alice@example.com", "s3cret-pass")
		e.store.GetBlacklistErr = errors.New("ledger down")

		_, err := e.svc.Authenticate(ctx, res.AccessToken)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthorized)
	})
}

func TestUserAdministration(t *testing.T) {
	ctx := context.Background()

	t.Run("update email conflict", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		alice := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		e.addUser(t, "bob@example.com", "s3cret-pass", "")
		taken := "bob@example.com"

		_, err := e.svc.UpdateUser(ctx, alice.ID, UpdateUserInput{Email: &taken})
		assertKind(t, err, ErrConflict, "Email already in use")
	})

	t.Run("update unknown user", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		name := "X"
		_, err := e.svc.UpdateUser(ctx, uuid.Must(uuid.NewV7()), UpdateUserInput{FirstName: &name})
		assertKind(t, err, ErrNotFound, "User not found")
	})

	t.Run("invalid role", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		_, err := e.svc.UpdateRole(ctx, u.ID, store.Role("ROOT"))
		assertKind(t, err, ErrBadRequest, "Invalid role")

		updated, err := e.svc.UpdateRole(ctx, u.ID, store.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, store.RoleAdmin, updated.Role)
	})

	t.Run("remove revokes with admin_revoke", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		require.NoError(t, e.svc.RemoveUser(ctx, u.ID))

		assert.Nil(t, e.store.User(u.ID))
		entry := e.store.BlacklistEntry(blacklist.SentinelToken(u.ID))
		require.NotNil(t, entry)
		assert.Equal(t, blacklist.ReasonAdminRevoke, entry.Reason)

		assertKind(t, e.svc.RemoveUser(ctx, u.ID), ErrNotFound, "User not found")
	})

	t.Run("forced revocation clears the refresh slot", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		u := e.addUser(t, "alice@example.com", "s3cret-pass", "")
		res := e.login(t, "alice@example.com", "s3cret-pass")

		require.NoError(t, e.svc.RevokeUserTokens(ctx, u.ID))
		_, err := e.svc.Authenticate(ctx, res.AccessToken)
		assertKind(t, err, ErrUnauthorized, "")
		_, err = e.svc.Refresh(ctx, res.RefreshToken)
		assertKind(t, err, ErrUnauthorized, "")

		assertKind(t, e.svc.RevokeUserTokens(ctx, uuid.Must(uuid.NewV7())), ErrNotFound, "")
	})

	t.Run("list", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		e.addUser(t, "alice@example.com", "s3cret-pass", "")
		e.addUser(t, "bob@example.com", "s3cret-pass", "")
		users, err := e.svc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("store errors are not classified", func(t *testing.T) {
		e := newTestEnv(t, StrategyBlacklist)
		e.store.GetUserErr = errors.New("db down")
		_, err := e.svc.GetUser(ctx, uuid.Must(uuid.NewV7()))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestStrategyValid(t *testing.T) {
	assert.True(t, StrategyBlacklist.Valid())
	assert.True(t, StrategySession.Valid())
	assert.False(t, Strategy("cookies").Valid())
}

var _ Blacklist = (*blacklist.Service)(nil)
var _ UserStore = (*testutil.MockStore)(nil)
