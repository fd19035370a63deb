package repository

import (
	"context"

	"github.com/makoban/koubo-navi/internal/billing/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindByProviderSubscription(ctx context.Context, db *gorm.DB, providerSubID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).
		Where("stripe_subscription_id = ?", providerSubID).
		Take(&sub).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stripe_customer_id", "stripe_subscription_id", "plan", "status", "updated_at",
			}),
		}).
		Create(sub).Error
}

func (r *repo) UpdateByUser(ctx context.Context, db *gorm.DB, userID string, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func (r *repo) UpdateByProviderSubscription(ctx context.Context, db *gorm.DB, providerSubID string, updates map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("stripe_subscription_id = ?", providerSubID).
		Updates(updates).Error
}
