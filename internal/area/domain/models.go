package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AreaSource is one procurement listing page, seeded from the areas catalog
// and consumed by the external scraping process.
type AreaSource struct {
	ID                  string     `gorm:"primaryKey" json:"id"`
	AreaID              string     `gorm:"not null;index" json:"area_id"`
	AreaName            string     `gorm:"not null" json:"area_name"`
	SourceName          string     `gorm:"not null" json:"source_name"`
	URL                 string     `gorm:"not null" json:"url"`
	Active              bool       `gorm:"default:true" json:"active"`
	ConsecutiveFailures int        `gorm:"default:0" json:"consecutive_failures"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	CreatedAt           time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AreaSource) TableName() string {
	return "area_sources"
}

// UserArea marks one geographic area as active for a user.
type UserArea struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    string       `gorm:"type:uuid;not null;uniqueIndex:idx_user_area" json:"user_id"`
	AreaID    string       `gorm:"not null;uniqueIndex:idx_user_area" json:"area_id"`
	Active    bool         `gorm:"default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UserArea) TableName() string {
	return "user_areas"
}

// Area is the grouped catalog view served by the areas listing.
type Area struct {
	AreaID   string       `json:"area_id"`
	AreaName string       `json:"area_name"`
	Sources  []SourceInfo `json:"sources"`
}

type SourceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
