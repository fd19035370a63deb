package domain

import (
	"context"
	"errors"
	"time"

	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
)

type SubscriptionInfo struct {
	Subscription *Subscription     `json:"subscription"`
	UserStatus   userdomain.Status `json:"user_status"`
	TrialEndsAt  *time.Time        `json:"trial_ends_at"`
}

type CheckoutRequest struct {
	Plan       string `json:"plan"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`

	// Origin and Email come from the request context, not the body.
	Origin string `json:"-"`
	Email  string `json:"-"`
}

type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type CancelResponse struct {
	Cancelled bool  `json:"cancelled"`
	CancelAt  int64 `json:"cancel_at"`
}

type Service interface {
	GetSubscription(ctx context.Context, userID string) (SubscriptionInfo, error)
	Checkout(ctx context.Context, userID string, req CheckoutRequest) (CheckoutResponse, error)
	Cancel(ctx context.Context, userID string) (CancelResponse, error)
	// HandleWebhook verifies the signature and applies the event. Persistence
	// failures inside event handling are logged, never surfaced.
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

var (
	ErrNoSubscription       = errors.New("subscription_not_found")
	ErrPriceNotConfigured   = errors.New("price_not_configured")
	ErrWebhookNotConfigured = errors.New("webhook_not_configured")
	ErrMissingSignature     = errors.New("missing_signature")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrProvider             = errors.New("payment_provider_error")
)
