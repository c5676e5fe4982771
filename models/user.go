package models

import (
	"time"
)

// User model. Credentials, reset state and the avatar path never leave the API.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Role      Role      `gorm:"size:16;not null;default:user;index" json:"role"`

	HashedPassword         []byte     `gorm:"not null" json:"-"`
	PasswordChangedAt      *time.Time `json:"-"`
	PasswordResetTokenHash *string    `gorm:"size:64;index" json:"-"`
	PasswordResetExpiry    *time.Time `json:"-"`
	AvatarPath             string     `gorm:"size:512" json:"-"`

	Tokens    []SessionToken `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Bootcamps []Bootcamp     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"bootcamps,omitempty"`
	Courses   []Course       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"courses,omitempty"`
	Reviews   []Review       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reviews,omitempty"`
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at iat. Both sides are compared at second precision.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Unix() < u.PasswordChangedAt.Unix()
}
