package models

import "time"

// Skill levels accepted for Course.MinimumSkill.
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

// Course belongs to a bootcamp and to the user that created it.
type Course struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
	Title                string    `gorm:"size:255;not null" json:"title"`
	Description          string    `gorm:"not null" json:"description"`
	Weeks                int       `gorm:"not null" json:"weeks"`
	Tuition              float64   `gorm:"not null" json:"tuition"`
	MinimumSkill         string    `gorm:"size:16;not null" json:"minimumSkill"`
	ScholarshipAvailable bool      `gorm:"default:false;not null" json:"scholarshipAvailable"`
	BootcampID           uint      `gorm:"index;not null" json:"bootcamp"`
	UserID               uint      `gorm:"index;not null" json:"user"`
}
