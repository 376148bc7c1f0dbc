package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var PageTypes = []string{"HOME", "GAME", "WEBSITE", "NEWS", "ABOUT"}

// NormalizePageType upper-cases t and reports whether it names a known page.
func NormalizePageType(t string) (string, bool) {
	t = strings.ToUpper(strings.TrimSpace(t))
	for _, pt := range PageTypes {
		if pt == t {
			return t, true
		}
	}
	return t, false
}

// Banner is the hero image of one page. Each page type has at most one banner.
type Banner struct {
	ID        string    `gorm:"primaryKey;size:50" json:"id"`
	PageType  string    `gorm:"size:16;uniqueIndex;not null" json:"page_type"`
	Image     string    `gorm:"size:500;not null" json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Banner) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
