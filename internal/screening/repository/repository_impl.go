package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/makoban/koubo-navi/internal/screening/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, task *domain.ScreeningTask) error {
	return db.WithContext(ctx).Create(task).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.ScreeningTask, error) {
	var task domain.ScreeningTask
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&task).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.ScreeningTask{}).
		Where("id = ?", id).
		Updates(updates).Error
}
