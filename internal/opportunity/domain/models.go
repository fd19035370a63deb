package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Opportunity is a scraped procurement listing. Rows are written by the
// external scraping process; this service reads them only.
type Opportunity struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	AreaID       string    `gorm:"not null;index" json:"area_id"`
	SourceID     string    `gorm:"not null" json:"source_id"`
	Title        string    `gorm:"not null" json:"title"`
	Organization *string   `json:"organization"`
	Category     *string   `json:"category"`
	Method       *string   `json:"method"`
	Deadline     *string   `json:"deadline"`
	Budget       *string   `json:"budget"`
	Summary      *string   `json:"summary"`
	Requirements *string   `json:"requirements"`
	DetailURL    *string   `json:"detail_url"`
	ScrapedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"scraped_at"`
}

func (Opportunity) TableName() string {
	return "opportunities"
}

// UserOpportunity is the per-(user, opportunity) match record. A missing row
// means "not yet evaluated"; the listing left-joins and ranks those last.
type UserOpportunity struct {
	ID                  snowflake.ID                `gorm:"primaryKey" json:"id"`
	UserID              string                      `gorm:"type:uuid;not null;uniqueIndex:idx_user_opp" json:"user_id"`
	OpportunityID       string                      `gorm:"type:uuid;not null;uniqueIndex:idx_user_opp" json:"opportunity_id"`
	MatchScore          *int                        `json:"match_score"`
	MatchReason         *string                     `json:"match_reason"`
	RiskNotes           *string                     `json:"risk_notes"`
	Recommendation      *string                     `json:"recommendation"`
	ActionItems         datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"action_items"`
	RankPosition        *int                        `json:"rank_position"`
	IsNotified          bool                        `gorm:"default:false" json:"is_notified"`
	NotifiedAt          *time.Time                  `json:"notified_at,omitempty"`
	IsBookmarked        bool                        `gorm:"default:false" json:"is_bookmarked"`
	IsDismissed         bool                        `gorm:"default:false" json:"is_dismissed"`
	DetailedAnalysis    datatypes.JSON              `gorm:"type:jsonb" json:"detailed_analysis,omitempty"`
	AnalysisCompletedAt *time.Time                  `json:"analysis_completed_at,omitempty"`
	CreatedAt           time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (UserOpportunity) TableName() string {
	return "user_opportunities"
}

// Visibility limits of the listing pipeline.
const (
	FreeTierCap     = 35
	PaidTierCap     = 100
	FreeVisibleRows = 5
	FetchCap        = 500
	DefaultLimit    = 50
)
