package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, task *ScreeningTask) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ScreeningTask, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, updates map[string]any) error
}
