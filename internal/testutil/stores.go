// stores.go
//
// Shared in-memory stand-ins for store.PostgresStore and the mailer.
// Imported by test files across packages to avoid duplicate mock definitions.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cagatayturkan/blog-api/internal/store"
	"github.com/gofrs/uuid/v5"
)

// MockStore implements the durable store interfaces (users, blacklist, resets).
//
// Always stateful...users, ledger and resets are maps, like a real store.
// Use *Err fields to inject errors for specific operations.
// Returned rows are copies, so callers can't mutate stored state by accident.
type MockStore struct {
	// Error injection...zero value means no error
	CreateUserErr         error
	GetUserErr            error
	UpdateUserErr         error
	UpdatePasswordErr     error
	UpdateRefreshTokenErr error
	DeleteUserErr         error
	InsertBlacklistErr    error
	GetBlacklistErr       error
	DeleteBlacklistErr    error
	CreateResetErr        error
	GetResetErr           error
	MarkResetUsedErr      error

	Users     map[uuid.UUID]*store.User
	Blacklist map[string]*store.BlacklistEntry // keyed by token
	Resets    map[uuid.UUID]*store.PasswordReset

	mu sync.Mutex
}

// NewMockStore returns a MockStore seeded with the given users.
func NewMockStore(users ...*store.User) *MockStore {
	ms := &MockStore{
		Users:     make(map[uuid.UUID]*store.User),
		Blacklist: make(map[string]*store.BlacklistEntry),
		Resets:    make(map[uuid.UUID]*store.PasswordReset),
	}
	for _, u := range users {
		if u.Role == "" {
			u.Role = store.RoleUser
		}
		ms.Users[u.ID] = u
	}
	return ms
}

func copyUser(u *store.User) *store.User {
	c := *u
	return &c
}

// --- Users ---

func (m *MockStore) CreateUser(_ context.Context, u *store.User) error {
	if m.CreateUserErr != nil {
		return m.CreateUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
	}
	if u.Role == "" {
		u.Role = store.RoleUser
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	m.Users[u.ID] = copyUser(u)
	return nil
}

func (m *MockStore) findUser(match func(*store.User) bool) (*store.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) GetUserByEmail(_ context.Context, email string) (*store.User, error) {
	return m.findUser(func(u *store.User) bool { return u.Email == email })
}

func (m *MockStore) GetUserByID(_ context.Context, id uuid.UUID) (*store.User, error) {
	return m.findUser(func(u *store.User) bool { return u.ID == id })
}

func (m *MockStore) GetUserByRefreshToken(_ context.Context, tokenHash string) (*store.User, error) {
	return m.findUser(func(u *store.User) bool { return u.RefreshToken != nil && *u.RefreshToken == tokenHash })
}

func (m *MockStore) ListUsers(_ context.Context) ([]*store.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*store.User, 0, len(m.Users))
	for _, u := range m.Users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *MockStore) FindUsersWithPendingReset(_ context.Context, now time.Time) ([]*store.User, error) {
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := map[uuid.UUID]bool{}
	for _, r := range m.Resets {
		if !r.IsUsed && r.ExpiresAt.After(now) {
			pending[r.UserID] = true
		}
	}
	var users []*store.User
	for id := range pending {
		if u, ok := m.Users[id]; ok {
			users = append(users, copyUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (m *MockStore) UpdateUser(_ context.Context, id uuid.UUID, upd store.UserUpdate) (*store.User, error) {
	if m.UpdateUserErr != nil {
		return nil, m.UpdateUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Email != nil {
		for _, other := range m.Users {
			if other.ID != id && other.Email == *upd.Email {
				return nil, store.ErrDuplicate
			}
		}
		u.Email = *upd.Email
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.GoogleID != nil {
		u.GoogleID = upd.GoogleID
	}
	if upd.Picture != nil {
		u.Picture = upd.Picture
	}
	if upd.IsEmailVerified != nil {
		u.IsEmailVerified = *upd.IsEmailVerified
	}
	u.UpdatedAt = time.Now()
	return copyUser(u), nil
}

func (m *MockStore) UpdateUserPassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	if m.UpdatePasswordErr != nil {
		return m.UpdatePasswordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = &passwordHash
	return nil
}

func (m *MockStore) UpdateRefreshToken(_ context.Context, id uuid.UUID, tokenHash *string) error {
	if m.UpdateRefreshTokenErr != nil {
		return m.UpdateRefreshTokenErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.RefreshToken = tokenHash
	return nil
}

func (m *MockStore) RotateRefreshToken(_ context.Context, id uuid.UUID, oldHash, newHash string) error {
	if m.UpdateRefreshTokenErr != nil {
		return m.UpdateRefreshTokenErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != oldHash {
		return store.ErrNotFound
	}
	u.RefreshToken = &newHash
	return nil
}

func (m *MockStore) UpdateUserRole(_ context.Context, id uuid.UUID, role store.Role) (*store.User, error) {
	if m.UpdateUserErr != nil {
		return nil, m.UpdateUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Role = role
	return copyUser(u), nil
}

func (m *MockStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	if m.DeleteUserErr != nil {
		return m.DeleteUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.Users, id)
	for rid, r := range m.Resets {
		if r.UserID == id {
			delete(m.Resets, rid)
		}
	}
	return nil
}

// User returns a copy of the stored user, or nil.
func (m *MockStore) User(id uuid.UUID) *store.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.Users[id]; ok {
		return copyUser(u)
	}
	return nil
}

// --- Blacklist ---

func (m *MockStore) InsertBlacklistEntry(_ context.Context, e store.BlacklistEntry) error {
	if m.InsertBlacklistErr != nil {
		return m.InsertBlacklistErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.Blacklist[e.Token]; ok {
		e.ID = existing.ID
	}
	m.Blacklist[e.Token] = &e
	return nil
}

func (m *MockStore) GetBlacklistEntry(_ context.Context, token string) (*store.BlacklistEntry, error) {
	if m.GetBlacklistErr != nil {
		return nil, m.GetBlacklistErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Blacklist[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (m *MockStore) DeleteBlacklistEntry(_ context.Context, token string) error {
	if m.DeleteBlacklistErr != nil {
		return m.DeleteBlacklistErr
	}
	m.mu.Lock()
	delete(m.Blacklist, token)
	m.mu.Unlock()
	return nil
}

func (m *MockStore) DeleteUserBlacklistByReasons(_ context.Context, userID uuid.UUID, reasons []string) ([]string, error) {
	if m.DeleteBlacklistErr != nil {
		return nil, m.DeleteBlacklistErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted []string
	for tok, e := range m.Blacklist {
		if e.UserID != userID {
			continue
		}
		for _, r := range reasons {
			if e.Reason == r {
				delete(m.Blacklist, tok)
				deleted = append(deleted, tok)
				break
			}
		}
	}
	return deleted, nil
}

func (m *MockStore) DeleteExpiredBlacklist(_ context.Context, before time.Time) (int64, error) {
	if m.DeleteBlacklistErr != nil {
		return 0, m.DeleteBlacklistErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for tok, e := range m.Blacklist {
		if e.ExpiresAt.Before(before) {
			delete(m.Blacklist, tok)
			n++
		}
	}
	return n, nil
}

// BlacklistEntry returns a copy of the ledger row for token, or nil.
func (m *MockStore) BlacklistEntry(token string) *store.BlacklistEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.Blacklist[token]; ok {
		c := *e
		return &c
	}
	return nil
}

// --- Password resets ---

func (m *MockStore) CreatePasswordReset(_ context.Context, r store.PasswordReset) error {
	if m.CreateResetErr != nil {
		return m.CreateResetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Resets {
		if existing.Token == r.Token {
			return store.ErrDuplicate
		}
	}
	r.IsUsed = false
	m.Resets[r.ID] = &r
	return nil
}

func (m *MockStore) GetLatestActiveReset(_ context.Context, userID uuid.UUID, now time.Time) (*store.PasswordReset, error) {
	if m.GetResetErr != nil {
		return nil, m.GetResetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *store.PasswordReset
	for _, r := range m.Resets {
		if r.UserID != userID || r.IsUsed || !r.ExpiresAt.After(now) {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	c := *latest
	return &c, nil
}

func (m *MockStore) GetPasswordReset(_ context.Context, token string) (*store.PasswordReset, error) {
	if m.GetResetErr != nil {
		return nil, m.GetResetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Resets {
		if r.Token == token {
			c := *r
			if u, ok := m.Users[r.UserID]; ok {
				c.Email = u.Email
			}
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *MockStore) InvalidateUserResets(_ context.Context, userID, keep uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.Resets {
		if r.UserID == userID && r.ID != keep && !r.IsUsed {
			r.IsUsed = true
			n++
		}
	}
	return n, nil
}

func (m *MockStore) MarkResetUsed(_ context.Context, id uuid.UUID) error {
	if m.MarkResetUsedErr != nil {
		return m.MarkResetUsedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Resets[id]
	if !ok || r.IsUsed {
		return store.ErrNotFound
	}
	r.IsUsed = true
	return nil
}

func (m *MockStore) DeletePasswordReset(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	delete(m.Resets, id)
	m.mu.Unlock()
	return nil
}

func (m *MockStore) DeleteExpiredResets(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.Resets {
		if r.ExpiresAt.Before(before) {
			delete(m.Resets, id)
			n++
		}
	}
	return n, nil
}

func (m *MockStore) DeleteUsedResetsBefore(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.Resets {
		if r.IsUsed && r.CreatedAt.Before(before) {
			delete(m.Resets, id)
			n++
		}
	}
	return n, nil
}

// UserResets returns copies of every reset row owned by the user.
func (m *MockStore) UserResets(userID uuid.UUID) []store.PasswordReset {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.PasswordReset
	for _, r := range m.Resets {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out
}
