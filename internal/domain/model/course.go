package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Course is immutable reference data from the billing engine's perspective;
// nothing in this service mutates course rows after seeding.
type Course struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string          `gorm:"not null;size:255" json:"title"`
	Description  string          `gorm:"type:text" json:"description"`
	Instructor   string          `gorm:"not null;size:100" json:"instructor"`
	ThumbnailURL string          `gorm:"size:512" json:"thumbnail_url,omitempty"`
	VideoURL     string          `gorm:"size:512" json:"video_url,omitempty"`
	Duration     int             `gorm:"not null" json:"duration_minutes"`
	Rating       float32         `gorm:"default:0" json:"rating"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency     string          `gorm:"size:3;default:'USD'" json:"currency"`
	Category     string          `gorm:"size:100;index" json:"category"`
	Difficulty   string          `gorm:"size:50" json:"difficulty"`
	CreatedAt    time.Time       `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Course) TableName() string {
	return "courses"
}
