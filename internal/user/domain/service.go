package domain

import (
	"context"
	"errors"
	"time"
)

type RegisterRequest struct {
	CompanyURL string   `json:"company_url"`
	AreaIDs    []string `json:"area_ids"`
}

type RegisterResponse struct {
	Registered  bool      `json:"registered"`
	TrialEndsAt time.Time `json:"trial_ends_at"`
}

type UpdateSettingsRequest struct {
	NotificationThreshold *int    `json:"notification_threshold"`
	EmailNotify           *bool   `json:"email_notify"`
	NotificationEmail     *string `json:"notification_email"`
}

type Service interface {
	Register(ctx context.Context, userID, email string, req RegisterRequest) (RegisterResponse, error)
	Get(ctx context.Context, userID string) (*User, error)
	UpdateSettings(ctx context.Context, userID string, req UpdateSettingsRequest) error
	SetStatus(ctx context.Context, userID string, status Status) error
	ClaimScreening(ctx context.Context, userID string) (bool, error)
}

var (
	ErrInvalidUser       = errors.New("invalid_user")
	ErrInvalidCompanyURL = errors.New("invalid_company_url")
	ErrNotFound          = errors.New("not_found")
)
