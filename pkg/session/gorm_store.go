package session

import (
	"context"
	"errors"
	"time"

	"bootcamps/models"
	"bootcamps/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps users and their session tokens in Postgres.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *GormStore) FindUser(ctx context.Context, id uint) (*models.User, error) {
	return first(s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return first(s.db.WithContext(ctx).Where("email = ?", email))
}

// ConsumeResetToken claims the token with a single conditional UPDATE, so two
// requests racing on one token cannot both match.
func (s *GormStore) ConsumeResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	var u models.User
	res := s.db.WithContext(ctx).Model(&u).Clauses(clause.Returning{}).
		Where("password_reset_token_hash = ? AND password_reset_expiry > ?", hash, now).
		Updates(map[string]any{
			"password_reset_token_hash": nil,
			"password_reset_expiry":     nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func first(q *gorm.DB) (*models.User, error) {
	var u models.User
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) AddToken(ctx context.Context, t *models.SessionToken) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *GormStore) HasToken(ctx context.Context, userID uint, hash string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.SessionToken{}).
		Where("user_id = ? AND token_hash = ?", userID, hash).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) RemoveToken(ctx context.Context, userID uint, hash string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND token_hash = ?", userID, hash).
		Delete(&models.SessionToken{}).Error
}

func (s *GormStore) RemoveAllTokens(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.SessionToken{}).Error
}

func (s *GormStore) PruneTokens(ctx context.Context, userID uint, now time.Time) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND expires_at <= ?", userID, now).
		Delete(&models.SessionToken{}).Error
}

func (s *GormStore) SetResetToken(ctx context.Context, userID uint, hash *string, expiry *time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]any{
			"password_reset_token_hash": hash,
			"password_reset_expiry":     expiry,
		}).Error
}

func (s *GormStore) SetPassword(ctx context.Context, userID uint, hashed []byte, changedAt time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
			"hashed_password":           hashed,
			"password_changed_at":       changedAt,
			"password_reset_token_hash": nil,
			"password_reset_expiry":     nil,
		}).Error
		if err != nil {
			return err
		}
		return tx.Where("user_id = ?", userID).Delete(&models.SessionToken{}).Error
	})
}
