package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	CategoryGame    = "GAME"
	CategoryWebsite = "WEBSITE"
)

// ValidCategory reports whether c is a known project category.
func ValidCategory(c string) bool {
	return c == CategoryGame || c == CategoryWebsite
}

// Project is a showcased game or website.
type Project struct {
	ID          string                      `gorm:"primaryKey;size:50" json:"id"`
	Title       string                      `gorm:"size:255;not null" json:"title"`
	Description string                      `gorm:"type:longtext" json:"description"`
	Image       string                      `gorm:"size:500" json:"image"`
	Category    string                      `gorm:"size:16;index;not null" json:"category"`
	Date        *Date                       `json:"date"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	Link        string                      `gorm:"size:500" json:"link"`
	Views       int64                       `gorm:"not null;default:0" json:"views"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// BeforeCreate assigns an id when the caller did not choose one.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Tags == nil {
		p.Tags = datatypes.JSONSlice[string]{}
	}
	return nil
}
