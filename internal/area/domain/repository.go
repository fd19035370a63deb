package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ActiveSources(ctx context.Context, db *gorm.DB) ([]*AreaSource, error)
	ActiveAreaIDs(ctx context.Context, db *gorm.DB, userID string) ([]string, error)
	DeactivateUserAreas(ctx context.Context, db *gorm.DB, userID string) error
	UpsertUserArea(ctx context.Context, db *gorm.DB, area *UserArea) error
}
