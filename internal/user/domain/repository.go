package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*User, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error
	// ClaimScreening flips initial_screening_done in a single conditional
	// update. It reports whether this caller won the claim.
	ClaimScreening(ctx context.Context, db *gorm.DB, id string, at time.Time) (bool, error)
}
