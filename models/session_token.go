package models

import "time"

// SessionToken is one entry of a user's active-token set. Only the sha256 of the
// raw bearer token is stored; the row's presence is what keeps the token valid.
type SessionToken struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UserID    uint      `gorm:"index;not null"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"index;not null"`
}
