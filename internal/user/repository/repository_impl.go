package repository

import (
	"context"
	"time"

	"github.com/makoban/koubo-navi/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"company_url", "notification_email", "status", "trial_ends_at", "updated_at",
			}),
		}).
		Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) ClaimScreening(ctx context.Context, db *gorm.DB, id string, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND initial_screening_done = ?", id, false).
		Updates(map[string]any{
			"initial_screening_done": true,
			"initial_screening_at":   at,
			"updated_at":             at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
