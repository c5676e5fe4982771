// Package session issues, verifies and revokes bearer session tokens and runs
// the password reset lifecycle.
//
// A token is valid only while its hash is present in the owner's active-token
// set and it was issued no earlier than the owner's last password change.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"bootcamps/models"
	"bootcamps/pkg/apperr"

	"go.uber.org/zap"
)

// DefaultResetTTL is how long a password reset token stays usable.
const DefaultResetTTL = 10 * time.Minute

var (
	// ErrUnauthenticated is the single error every verification failure maps to.
	ErrUnauthenticated = apperr.Unauthenticated("You are not logged in! Please login to gain access.")
	// ErrForbidden is returned by Authorize.
	ErrForbidden = apperr.Forbidden("You do not have permission to perform this action")
	// ErrInvalidOrExpiredToken is returned for an unknown, used or expired reset token.
	ErrInvalidOrExpiredToken = apperr.Validation("Token is invalid or has expired")
	// ErrInvalidCredentials is returned by Login and ChangePassword.
	ErrInvalidCredentials = apperr.Unauthenticated("Incorrect email or password")
)

// Config for an Authenticator.
type Config struct {
	Secret     []byte
	TokenTTL   time.Duration
	ResetTTL   time.Duration
	BcryptCost int
}

// Identity is an authenticated user together with the raw token that proved it.
type Identity struct {
	User  *models.User
	Token string
}

// Authenticator is safe for concurrent use; all state lives in the Store.
type Authenticator struct {
	store Store
	cfg   Config
	log   *zap.Logger
	now   func() time.Time
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the logger used for verification diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) { a.log = l }
}

func New(store Store, cfg Config, opts ...Option) *Authenticator {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	a := &Authenticator{store: store, cfg: cfg, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// TokenTTL is the lifetime of issued session tokens.
func (a *Authenticator) TokenTTL() time.Duration { return a.cfg.TokenTTL }

// IssueToken signs a token for userID and records it as active. Expired
// tokens of the same user are pruned first so the set cannot grow unbounded.
func (a *Authenticator) IssueToken(ctx context.Context, userID uint) (string, error) {
	now := a.now()
	if err := a.store.PruneTokens(ctx, userID, now); err != nil {
		return "", apperr.Internal("prune tokens", err)
	}
	raw, err := signToken(a.cfg.Secret, userID, now, a.cfg.TokenTTL)
	if err != nil {
		return "", apperr.Internal("sign token", err)
	}
	rec := &models.SessionToken{UserID: userID, TokenHash: hashToken(raw), ExpiresAt: now.Add(a.cfg.TokenTTL)}
	if err := a.store.AddToken(ctx, rec); err != nil {
		return "", apperr.Internal("store token", err)
	}
	return raw, nil
}

// Verify checks raw and loads its owner. Every failure returns
// ErrUnauthenticated; the actual reason is only logged.
func (a *Authenticator) Verify(ctx context.Context, raw string) (*Identity, error) {
	if raw == "" {
		return nil, a.reject("missing token", 0)
	}
	claims, err := parseToken(a.cfg.Secret, raw, a.now())
	if err != nil {
		a.log.Debug("token rejected", zap.String("reason", "parse"), zap.Error(err))
		return nil, ErrUnauthenticated
	}
	user, err := a.store.FindUser(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, a.reject("user gone", claims.UserID)
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	active, err := a.store.HasToken(ctx, user.ID, hashToken(raw))
	if err != nil {
		return nil, apperr.Internal("lookup token", err)
	}
	if !active {
		return nil, a.reject("revoked", user.ID)
	}
	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, a.reject("password changed", user.ID)
	}
	return &Identity{User: user, Token: raw}, nil
}

func (a *Authenticator) reject(reason string, userID uint) error {
	a.log.Debug("token rejected", zap.String("reason", reason), zap.Uint("user_id", userID))
	return ErrUnauthenticated
}

// Revoke removes the identity's own token. Revoking twice is not an error.
func (a *Authenticator) Revoke(ctx context.Context, id *Identity) error {
	if err := a.store.RemoveToken(ctx, id.User.ID, hashToken(id.Token)); err != nil {
		return apperr.Internal("revoke token", err)
	}
	return nil
}

// RevokeAll clears every active token of userID.
func (a *Authenticator) RevokeAll(ctx context.Context, userID uint) error {
	if err := a.store.RemoveAllTokens(ctx, userID); err != nil {
		return apperr.Internal("revoke tokens", err)
	}
	return nil
}

// Authorize is a set-membership check on role.
func Authorize(role models.Role, allowed ...models.Role) error {
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return ErrForbidden
}

// CreateUser stores u with the given password. The email is normalized and an
// empty role defaults to user.
func (a *Authenticator) CreateUser(ctx context.Context, u *models.User, password string) error {
	hashed, err := hashPassword(password, a.cfg.BcryptCost)
	if err != nil {
		return err
	}
	u.Email = NormalizeEmail(u.Email)
	u.HashedPassword = hashed
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if !u.Role.Valid() {
		return apperr.Validation("Role is either: user, publisher or admin")
	}
	if err := a.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return apperr.Conflict("Email is already registered")
		}
		return apperr.Internal("create user", err)
	}
	return nil
}

// Register creates u and issues its first token.
func (a *Authenticator) Register(ctx context.Context, u *models.User, password string) (string, error) {
	if err := a.CreateUser(ctx, u, password); err != nil {
		return "", err
	}
	return a.IssueToken(ctx, u.ID)
}

// Login checks credentials and issues a token.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := a.store.FindUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", apperr.Internal("load user", err)
	}
	if !passwordMatches(u.HashedPassword, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, err := a.IssueToken(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// UserByEmail looks up a user for flows that start from an email address.
func (a *Authenticator) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := a.store.FindUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, apperr.NotFound("There is no user with that email address")
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	return u, nil
}

// ChangePassword verifies current and replaces the password. All existing
// tokens stop working; a fresh one is returned.
func (a *Authenticator) ChangePassword(ctx context.Context, userID uint, current, next string) (string, error) {
	u, err := a.store.FindUser(ctx, userID)
	if err != nil {
		return "", apperr.Internal("load user", err)
	}
	if !passwordMatches(u.HashedPassword, current) {
		return "", apperr.Unauthenticated("Your current password is wrong!")
	}
	if err := a.SetPassword(ctx, userID, next); err != nil {
		return "", err
	}
	return a.IssueToken(ctx, userID)
}

// SetPassword replaces a user's password without checking the old one and
// drops every token issued so far. No new token is issued.
func (a *Authenticator) SetPassword(ctx context.Context, userID uint, next string) error {
	hashed, err := hashPassword(next, a.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := a.store.SetPassword(ctx, userID, hashed, a.now()); err != nil {
		return apperr.Internal("set password", err)
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
