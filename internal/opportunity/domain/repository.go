package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	RecentByAreas(ctx context.Context, db *gorm.DB, areaIDs []string, limit int) ([]*Opportunity, error)
	RecentByAreasSince(ctx context.Context, db *gorm.DB, areaIDs []string, since time.Time, limit int) ([]*Opportunity, error)
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Opportunity, error)
	MatchesByUser(ctx context.Context, db *gorm.DB, userID string, oppIDs []string) (map[string]*UserOpportunity, error)
	FindMatch(ctx context.Context, db *gorm.DB, userID, oppID string) (*UserOpportunity, error)
	UpsertMatch(ctx context.Context, db *gorm.DB, match *UserOpportunity) error
	SaveDetailedAnalysis(ctx context.Context, db *gorm.DB, match *UserOpportunity) error
}
