package session

import (
	"context"
	"errors"

	"bootcamps/models"
	"bootcamps/pkg/apperr"
)

// BeginPasswordReset stores the hash of a fresh reset token with its expiry and
// returns the raw token for out-of-band delivery. A previous reset token of the
// user is replaced.
func (a *Authenticator) BeginPasswordReset(ctx context.Context, userID uint) (string, error) {
	raw, err := randomToken()
	if err != nil {
		return "", apperr.Internal("generate reset token", err)
	}
	hash := hashToken(raw)
	expiry := a.now().Add(a.cfg.ResetTTL)
	if err := a.store.SetResetToken(ctx, userID, &hash, &expiry); err != nil {
		return "", apperr.Internal("store reset token", err)
	}
	return raw, nil
}

// CancelPasswordReset clears the stored reset token, e.g. when the email
// carrying it could not be sent.
func (a *Authenticator) CancelPasswordReset(ctx context.Context, userID uint) error {
	if err := a.store.SetResetToken(ctx, userID, nil, nil); err != nil {
		return apperr.Internal("clear reset token", err)
	}
	return nil
}

// CompletePasswordReset consumes raw, replaces the password and issues a new
// session token. The reset token is claimed before the password is hashed, so
// it is accepted at most once even under concurrent requests. A password that
// fails the policy leaves the token usable.
func (a *Authenticator) CompletePasswordReset(ctx context.Context, raw, newPassword string) (*models.User, string, error) {
	if raw == "" {
		return nil, "", ErrInvalidOrExpiredToken
	}
	if err := CheckPasswordPolicy(newPassword); err != nil {
		return nil, "", err
	}
	u, err := a.store.ConsumeResetToken(ctx, hashToken(raw), a.now())
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, "", apperr.Internal("consume reset token", err)
	}
	if err := a.SetPassword(ctx, u.ID, newPassword); err != nil {
		return nil, "", err
	}
	token, err := a.IssueToken(ctx, u.ID)
	if err != nil {
		return nil, "", err
	}
	if fresh, err := a.store.FindUser(ctx, u.ID); err == nil {
		u = fresh
	}
	return u, token, nil
}
