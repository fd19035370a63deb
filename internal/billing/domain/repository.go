package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByUser(ctx context.Context, db *gorm.DB, userID string) (*Subscription, error)
	FindByProviderSubscription(ctx context.Context, db *gorm.DB, providerSubID string) (*Subscription, error)
	// Upsert merges on user_id, one subscription row per user.
	Upsert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	UpdateByUser(ctx context.Context, db *gorm.DB, userID string, updates map[string]any) error
	UpdateByProviderSubscription(ctx context.Context, db *gorm.DB, providerSubID string, updates map[string]any) error
}
