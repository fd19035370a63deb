package repository

import (
	"context"
	"time"

	"github.com/makoban/koubo-navi/internal/opportunity/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) RecentByAreas(ctx context.Context, db *gorm.DB, areaIDs []string, limit int) ([]*domain.Opportunity, error) {
	var opps []*domain.Opportunity
	err := db.WithContext(ctx).
		Where("area_id IN ?", areaIDs).
		Order("scraped_at desc").
		Limit(limit).
		Find(&opps).Error
	if err != nil {
		return nil, err
	}
	return opps, nil
}

func (r *repo) RecentByAreasSince(ctx context.Context, db *gorm.DB, areaIDs []string, since time.Time, limit int) ([]*domain.Opportunity, error) {
	var opps []*domain.Opportunity
	err := db.WithContext(ctx).
		Where("area_id IN ? AND scraped_at >= ?", areaIDs, since).
		Order("scraped_at desc").
		Limit(limit).
		Find(&opps).Error
	if err != nil {
		return nil, err
	}
	return opps, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Opportunity, error) {
	var opp domain.Opportunity
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&opp).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &opp, nil
}

func (r *repo) MatchesByUser(ctx context.Context, db *gorm.DB, userID string, oppIDs []string) (map[string]*domain.UserOpportunity, error) {
	if len(oppIDs) == 0 {
		return map[string]*domain.UserOpportunity{}, nil
	}
	var matches []*domain.UserOpportunity
	err := db.WithContext(ctx).
		Where("user_id = ? AND opportunity_id IN ?", userID, oppIDs).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	byOpp := make(map[string]*domain.UserOpportunity, len(matches))
	for _, m := range matches {
		byOpp[m.OpportunityID] = m
	}
	return byOpp, nil
}

func (r *repo) FindMatch(ctx context.Context, db *gorm.DB, userID, oppID string) (*domain.UserOpportunity, error) {
	var match domain.UserOpportunity
	err := db.WithContext(ctx).
		Where("user_id = ? AND opportunity_id = ?", userID, oppID).
		Take(&match).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &match, nil
}

func (r *repo) UpsertMatch(ctx context.Context, db *gorm.DB, match *domain.UserOpportunity) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "opportunity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"match_score", "match_reason", "risk_notes", "recommendation",
				"action_items", "rank_position",
			}),
		}).
		Create(match).Error
}

func (r *repo) SaveDetailedAnalysis(ctx context.Context, db *gorm.DB, match *domain.UserOpportunity) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "opportunity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"detailed_analysis", "analysis_completed_at"}),
		}).
		Create(match).Error
}
