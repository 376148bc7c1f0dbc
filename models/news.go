package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// News is a published article.
type News struct {
	ID        string    `gorm:"primaryKey;size:50" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Excerpt   string    `gorm:"type:longtext" json:"excerpt"`
	Content   string    `gorm:"type:longtext" json:"content"`
	Date      *Date     `gorm:"index" json:"date"`
	Image     string    `gorm:"size:500" json:"image"`
	Author    string    `gorm:"size:100" json:"author"`
	Views     int64     `gorm:"not null;default:0" json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (News) TableName() string { return "news" }

func (n *News) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
