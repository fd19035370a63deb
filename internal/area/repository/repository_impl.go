package repository

import (
	"context"

	"github.com/makoban/koubo-navi/internal/area/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ActiveSources(ctx context.Context, db *gorm.DB) ([]*domain.AreaSource, error) {
	var sources []*domain.AreaSource
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("area_id, id").
		Find(&sources).Error
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func (r *repo) ActiveAreaIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var areaIDs []string
	err := db.WithContext(ctx).
		Model(&domain.UserArea{}).
		Where("user_id = ? AND active = ?", userID, true).
		Order("area_id").
		Pluck("area_id", &areaIDs).Error
	if err != nil {
		return nil, err
	}
	return areaIDs, nil
}

func (r *repo) DeactivateUserAreas(ctx context.Context, db *gorm.DB, userID string) error {
	return db.WithContext(ctx).
		Model(&domain.UserArea{}).
		Where("user_id = ?", userID).
		Update("active", false).Error
}

func (r *repo) UpsertUserArea(ctx context.Context, db *gorm.DB, area *domain.UserArea) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "area_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active"}),
		}).
		Create(area).Error
}
