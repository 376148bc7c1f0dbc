package models

import (
	"time"

	"gorm.io/datatypes"
)

// AboutValue is one entry of the "our values" list on the about page.
type AboutValue struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AboutUs holds the about page content. The most recent row is the live one.
type AboutUs struct {
	ID           uint                            `gorm:"primaryKey" json:"id"`
	Title        string                          `gorm:"size:255" json:"title"`
	Subtitle     string                          `gorm:"type:text" json:"subtitle"`
	Description  string                          `gorm:"type:text" json:"description"`
	Image        string                          `gorm:"size:500" json:"image"`
	Values       datatypes.JSONSlice[AboutValue] `json:"values"`
	ContactEmail string                          `gorm:"size:255" json:"contact_email"`
	Views        int64                           `gorm:"not null;default:0" json:"views"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

func (AboutUs) TableName() string { return "about_us" }
