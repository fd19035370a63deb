package domain

import "context"

type CheckoutParams struct {
	PriceID         string
	SuccessURL      string
	CancelURL       string
	UserID          string
	Plan            string
	CustomerEmail   string
	TrialPeriodDays int
}

type CheckoutSession struct {
	ID  string
	URL string
}

type CancelResult struct {
	CancelAt int64
}

// Provider is the hosted-payment backend (Stripe in production).
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
	CancelAtPeriodEnd(ctx context.Context, providerSubID string) (CancelResult, error)
}
