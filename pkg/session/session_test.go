package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bootcamps/models"
	"bootcamps/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAuth(t *testing.T) (*Authenticator, *MemoryStore, *fakeClock) {
	t.Helper()
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	a := New(store, Config{
		Secret:     []byte("test-secret"),
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, WithClock(clock.Now))
	return a, store, clock
}

func register(t *testing.T, a *Authenticator) (*models.User, string) {
	t.Helper()
	u := &models.User{Name: "Ann", Email: " Ann@Example.com "}
	tok, err := a.Register(context.Background(), u, "s3cretpass")
	require.NoError(t, err)
	return u, tok
}

func TestRegisterAndVerify(t *testing.T) {
	a, _, _ := newTestAuth(t)
	u, tok := register(t, a)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)

	id, err := a.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.User.ID)
	assert.Equal(t, tok, id.Token)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	a, _, _ := newTestAuth(t)
	register(t, a)
	_, err := a.Register(context.Background(), &models.User{Name: "Other", Email: "ann@example.com"}, "s3cretpass")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRegister_PasswordPolicy(t *testing.T) {
	a, _, _ := newTestAuth(t)
	for _, pw := range []string{"short", "myPassword1"} {
		_, err := a.Register(context.Background(), &models.User{Name: "Bob", Email: "bob@example.com"}, pw)
		require.Error(t, err, pw)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), pw)
	}
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	a, store, clock := newTestAuth(t)
	_, tok := register(t, a)
	other := New(store, Config{Secret: []byte("other-secret"), TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}, WithClock(clock.Now))
	forged, err := other.IssueToken(context.Background(), 1)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"empty":     "",
		"garbage":   "not.a.jwt",
		"wrong key": forged,
	} {
		_, err := a.Verify(context.Background(), raw)
		assert.ErrorIs(t, err, ErrUnauthenticated, name)
	}

	clock.Advance(time.Hour + time.Second)
	_, err = a.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnauthenticated, "expired")
}

func TestLogout_OnlyRevokesThatToken(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()
	register(t, a)

	_, tokA, err := a.Login(ctx, "ann@example.com", "s3cretpass")
	require.NoError(t, err)
	_, tokB, err := a.Login(ctx, "ANN@example.com", "s3cretpass")
	require.NoError(t, err)
	require.NotEqual(t, tokA, tokB)

	idA, err := a.Verify(ctx, tokA)
	require.NoError(t, err)
	require.NoError(t, a.Revoke(ctx, idA))

	_, err = a.Verify(ctx, tokA)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = a.Verify(ctx, tokB)
	assert.NoError(t, err)

	// idempotent
	assert.NoError(t, a.Revoke(ctx, idA))
}

func TestRevokeAll(t *testing.T) {
	a, store, _ := newTestAuth(t)
	ctx := context.Background()
	u, first := register(t, a)
	_, second, err := a.Login(ctx, "ann@example.com", "s3cretpass")
	require.NoError(t, err)
	require.Len(t, store.Tokens(u.ID), 2)

	require.NoError(t, a.RevokeAll(ctx, u.ID))
	for _, tok := range []string{first, second} {
		_, err := a.Verify(ctx, tok)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	a, _, _ := newTestAuth(t)
	register(t, a)
	_, _, err := a.Login(context.Background(), "ann@example.com", "wrongpass1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Login(context.Background(), "nobody@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerify_PasswordChangedAfterIssue(t *testing.T) {
	a, store, clock := newTestAuth(t)
	u, tok := register(t, a)

	clock.Advance(2 * time.Second)
	changed := clock.Now()
	store.Update(u.ID, func(u *models.User) { u.PasswordChangedAt = &changed })

	require.Len(t, store.Tokens(u.ID), 1, "token is still in the active set")
	_, err := a.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestChangePassword(t *testing.T) {
	a, _, clock := newTestAuth(t)
	ctx := context.Background()
	u, old := register(t, a)

	_, err := a.ChangePassword(ctx, u.ID, "not-it-at-all", "n3wsecret!")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	clock.Advance(time.Second)
	fresh, err := a.ChangePassword(ctx, u.ID, "s3cretpass", "n3wsecret!")
	require.NoError(t, err)

	_, err = a.Verify(ctx, old)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = a.Verify(ctx, fresh)
	assert.NoError(t, err)

	_, _, err = a.Login(ctx, "ann@example.com", "n3wsecret!")
	assert.NoError(t, err)
}

func TestPasswordReset_SingleUse(t *testing.T) {
	a, store, _ := newTestAuth(t)
	ctx := context.Background()
	u, old := register(t, a)

	raw, err := a.BeginPasswordReset(ctx, u.ID)
	require.NoError(t, err)
	stored, err := store.FindUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetTokenHash)
	assert.NotEqual(t, raw, *stored.PasswordResetTokenHash, "only the hash is stored")

	got, fresh, err := a.CompletePasswordReset(ctx, raw, "brandn3wpass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = a.Verify(ctx, old)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = a.Verify(ctx, fresh)
	assert.NoError(t, err)

	_, _, err = a.CompletePasswordReset(ctx, raw, "another1pass")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	_, _, err = a.Login(ctx, "ann@example.com", "brandn3wpass")
	assert.NoError(t, err)
	_, _, err = a.Login(ctx, "ann@example.com", "s3cretpass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordReset_Expires(t *testing.T) {
	a, _, clock := newTestAuth(t)
	ctx := context.Background()
	u, _ := register(t, a)

	raw, err := a.BeginPasswordReset(ctx, u.ID)
	require.NoError(t, err)
	clock.Advance(DefaultResetTTL + time.Second)

	_, _, err = a.CompletePasswordReset(ctx, raw, "brandn3wpass")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestPasswordReset_Cancel(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()
	u, _ := register(t, a)

	raw, err := a.BeginPasswordReset(ctx, u.ID)
	require.NoError(t, err)
	require.NoError(t, a.CancelPasswordReset(ctx, u.ID))

	_, _, err = a.CompletePasswordReset(ctx, raw, "brandn3wpass")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	_, _, err = a.CompletePasswordReset(ctx, "", "brandn3wpass")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestPasswordReset_ConcurrentUseSucceedsOnce(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()
	u, _ := register(t, a)

	raw, err := a.BeginPasswordReset(ctx, u.ID)
	require.NoError(t, err)

	var ok, rejected atomic.Int32
	var wg sync.WaitGroup
	for _, pw := range []string{"firstn3wpass", "secondn3wpass"} {
		wg.Add(1)
		go func(pw string) {
			defer wg.Done()
			_, _, err := a.CompletePasswordReset(ctx, raw, pw)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInvalidOrExpiredToken):
				rejected.Add(1)
			}
		}(pw)
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), rejected.Load())
}

func TestPasswordReset_WeakPasswordKeepsToken(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()
	u, _ := register(t, a)

	raw, err := a.BeginPasswordReset(ctx, u.ID)
	require.NoError(t, err)
	_, _, err = a.CompletePasswordReset(ctx, raw, "short")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, _, err = a.CompletePasswordReset(ctx, raw, "brandn3wpass")
	assert.NoError(t, err)
}

func TestIssueToken_PrunesExpired(t *testing.T) {
	a, store, clock := newTestAuth(t)
	ctx := context.Background()
	u, _ := register(t, a)

	clock.Advance(time.Hour + time.Minute)
	_, err := a.IssueToken(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, store.Tokens(u.ID), 1)
}

func TestAuthorize(t *testing.T) {
	assert.NoError(t, Authorize(models.RoleAdmin, models.RolePublisher, models.RoleAdmin))
	assert.NoError(t, Authorize(models.RolePublisher, models.RolePublisher, models.RoleAdmin))
	err := Authorize(models.RoleUser, models.RolePublisher, models.RoleAdmin)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	assert.ErrorIs(t, Authorize(models.RoleAdmin), ErrForbidden)
}

func TestUserByEmail(t *testing.T) {
	a, _, _ := newTestAuth(t)
	u, _ := register(t, a)
	got, err := a.UserByEmail(context.Background(), "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = a.UserByEmail(context.Background(), "ghost@example.com")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSetPassword_RevokesWithoutIssuing(t *testing.T) {
	a, store, clock := newTestAuth(t)
	u, tok := register(t, a)
	clock.Advance(time.Minute)

	require.NoError(t, a.SetPassword(context.Background(), u.ID, "adm1nreset"))
	assert.Empty(t, store.Tokens(u.ID))
	_, err := a.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, _, err = a.Login(context.Background(), u.Email, "adm1nreset")
	assert.NoError(t, err)
}
