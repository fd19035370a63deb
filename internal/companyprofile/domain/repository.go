package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByUser(ctx context.Context, db *gorm.DB, userID string) (*CompanyProfile, error)
	// Replace implements the delete+insert re-analysis semantics.
	Replace(ctx context.Context, db *gorm.DB, profile *CompanyProfile) error
	UpdateKeywords(ctx context.Context, db *gorm.DB, userID string, keywords []string) error
}
