package repository

import (
	"context"

	"github.com/makoban/koubo-navi/internal/companyprofile/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.CompanyProfile, error) {
	var profile domain.CompanyProfile
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

func (r *repo) Replace(ctx context.Context, db *gorm.DB, profile *domain.CompanyProfile) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", profile.UserID).Delete(&domain.CompanyProfile{}).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	})
}

func (r *repo) UpdateKeywords(ctx context.Context, db *gorm.DB, userID string, keywords []string) error {
	if keywords == nil {
		keywords = []string{}
	}
	return db.WithContext(ctx).
		Model(&domain.CompanyProfile{}).
		Where("user_id = ?", userID).
		Update("matching_keywords", datatypes.NewJSONSlice(keywords)).Error
}
