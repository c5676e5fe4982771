package models

import (
	"math"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Careers a bootcamp may advertise.
var Careers = []string{
	"Web Development",
	"Mobile Development",
	"UI/UX",
	"Data Science",
	"Business",
	"Other",
}

// Location is the geocoded form of a bootcamp's address.
type Location struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `gorm:"size:512" json:"formattedAddress"`
	Street           string  `gorm:"size:255" json:"street"`
	City             string  `gorm:"size:128;index" json:"city"`
	State            string  `gorm:"size:64" json:"state"`
	Zipcode          string  `gorm:"size:32" json:"zipcode"`
	Country          string  `gorm:"size:8" json:"country"`
}

// Bootcamp is published by a user with the publisher role (admins may publish many).
type Bootcamp struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Name          string         `gorm:"size:40;not null;uniqueIndex" json:"name"`
	Slug          string         `gorm:"size:64;index" json:"slug"`
	Description   string         `gorm:"size:500;not null" json:"description"`
	Website       string         `gorm:"size:255" json:"website"`
	Address       string         `gorm:"size:512;not null" json:"address"`
	Location      Location       `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Careers       pq.StringArray `gorm:"type:text[];not null" json:"careers"`
	AverageRating *float64       `json:"averageRating"`
	AverageCost   *float64       `json:"averageCost"`
	Housing       bool           `gorm:"default:false;not null" json:"housing"`
	JobAssistance bool           `gorm:"default:false;not null" json:"jobAssistance"`
	JobGuarantee  bool           `gorm:"default:false;not null" json:"jobGuarantee"`
	AcceptGi      bool           `gorm:"default:false;not null" json:"acceptGi"`
	UserID        uint           `gorm:"index;not null" json:"user"`

	ImageCoverPath string `gorm:"size:512" json:"-"`

	Courses []Course `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"courses,omitempty"`
	Reviews []Review `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"reviews,omitempty"`
}

// RoundTenth rounds an aggregate to one decimal place.
func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// BeforeSave keeps the slug in step with the name.
func (b *Bootcamp) BeforeSave(*gorm.DB) error {
	if b.Name != "" {
		b.Slug = Slugify(b.Name)
	}
	return nil
}
