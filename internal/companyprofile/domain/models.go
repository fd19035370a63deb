package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CompanyProfile struct {
	ID               snowflake.ID                `gorm:"primaryKey" json:"id"`
	UserID           string                      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CompanyName      *string                     `json:"company_name"`
	Location         *string                     `json:"location"`
	BusinessAreas    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"business_areas"`
	Services         datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"services"`
	Strengths        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"strengths"`
	TargetIndustries datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"target_industries"`
	Qualifications   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"qualifications"`
	MatchingKeywords datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"matching_keywords"`
	RawAnalysis      datatypes.JSON              `gorm:"type:jsonb" json:"raw_analysis"`
	AnalyzedAt       time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"analyzed_at"`
}

func (CompanyProfile) TableName() string {
	return "company_profiles"
}

// AnalyzedProfile is the shape the profiling prompt asks the model for.
type AnalyzedProfile struct {
	CompanyName      string   `json:"company_name"`
	Location         string   `json:"location"`
	BusinessAreas    []string `json:"business_areas"`
	Services         []string `json:"services"`
	Strengths        []string `json:"strengths"`
	TargetIndustries []string `json:"target_industries"`
	Qualifications   []string `json:"qualifications"`
	MatchingKeywords []string `json:"matching_keywords"`
}
