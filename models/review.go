package models

import "time"

// Review of a bootcamp; a user may review each bootcamp once.
type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Title      string    `gorm:"size:100;not null" json:"title"`
	Text       string    `gorm:"not null" json:"review"`
	Rating     int       `gorm:"not null" json:"rating"`
	BootcampID uint      `gorm:"not null;uniqueIndex:idx_review_bootcamp_user" json:"bootcamp"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_review_bootcamp_user;index" json:"user"`
}
