package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"bootcamps/models"
)

// ErrUserNotFound is returned by a Store when no user matches.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken is returned by CreateUser when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Store is the persistence the authenticator needs. Each method is a single
// atomic write or read; tokens are individual rows so concurrent logins and
// logouts of one user never overwrite each other.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUser(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ConsumeResetToken clears the reset fields of the user holding hash if it
	// has not expired at now, and returns that user. Of concurrent callers with
	// the same hash at most one succeeds; the rest get ErrUserNotFound.
	ConsumeResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error)

	AddToken(ctx context.Context, t *models.SessionToken) error
	HasToken(ctx context.Context, userID uint, hash string) (bool, error)
	RemoveToken(ctx context.Context, userID uint, hash string) error
	RemoveAllTokens(ctx context.Context, userID uint) error
	PruneTokens(ctx context.Context, userID uint, now time.Time) error

	SetResetToken(ctx context.Context, userID uint, hash *string, expiry *time.Time) error
	// SetPassword replaces the credential, stamps passwordChangedAt, clears the
	// reset fields and drops every session token of the user.
	SetPassword(ctx context.Context, userID uint, hashed []byte, changedAt time.Time) error
}

// MemoryStore is an in-process Store, used by tests.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
	tokens map[uint]map[string]models.SessionToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  map[uint]*models.User{},
		tokens: map[uint]map[string]models.SessionToken{},
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	m.nextID++
	u.ID = m.nextID
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) FindUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) ConsumeResetToken(_ context.Context, hash string, now time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PasswordResetTokenHash == nil || *u.PasswordResetTokenHash != hash {
			continue
		}
		if u.PasswordResetExpiry == nil || !u.PasswordResetExpiry.After(now) {
			return nil, ErrUserNotFound
		}
		u.PasswordResetTokenHash, u.PasswordResetExpiry = nil, nil
		cp := *u
		return &cp, nil
	}
	return nil, ErrUserNotFound
}

func (m *MemoryStore) AddToken(_ context.Context, t *models.SessionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[t.UserID]; !ok {
		return ErrUserNotFound
	}
	if m.tokens[t.UserID] == nil {
		m.tokens[t.UserID] = map[string]models.SessionToken{}
	}
	m.tokens[t.UserID][t.TokenHash] = *t
	return nil
}

func (m *MemoryStore) HasToken(_ context.Context, userID uint, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[userID][hash]
	return ok, nil
}

func (m *MemoryStore) RemoveToken(_ context.Context, userID uint, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens[userID], hash)
	return nil
}

func (m *MemoryStore) RemoveAllTokens(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, userID)
	return nil
}

func (m *MemoryStore) PruneTokens(_ context.Context, userID uint, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, t := range m.tokens[userID] {
		if !t.ExpiresAt.After(now) {
			delete(m.tokens[userID], h)
		}
	}
	return nil
}

func (m *MemoryStore) SetResetToken(_ context.Context, userID uint, hash *string, expiry *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordResetTokenHash, u.PasswordResetExpiry = hash, expiry
	return nil
}

func (m *MemoryStore) SetPassword(_ context.Context, userID uint, hashed []byte, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.HashedPassword = hashed
	u.PasswordChangedAt = &changedAt
	u.PasswordResetTokenHash, u.PasswordResetExpiry = nil, nil
	delete(m.tokens, userID)
	return nil
}

// Tokens lists the stored token hashes of a user in sorted order.
func (m *MemoryStore) Tokens(userID uint) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tokens[userID]))
	for h := range m.tokens[userID] {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Update applies fn to the stored user; tests use it to simulate external changes.
func (m *MemoryStore) Update(userID uint, fn func(u *models.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		fn(u)
	}
}
