package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/makoban/koubo-navi/internal/billing/domain"
	"github.com/makoban/koubo-navi/internal/billing/stripe"
	"github.com/makoban/koubo-navi/internal/clock"
	"github.com/makoban/koubo-navi/internal/config"
	"github.com/makoban/koubo-navi/internal/observability/metrics"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultOrigin = "https://koubo-navi.bantex.jp"

type Params struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Repo     domain.Repository
	UserRepo userdomain.Repository
	Provider domain.Provider
}

type Service struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	metrics  *metrics.Metrics
	repo     domain.Repository
	userRepo userdomain.Repository
	provider domain.Provider
}

func New(p Params) domain.Service {
	return &Service{
		cfg:      p.Config,
		db:       p.DB,
		log:      p.Log.Named("billing.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		metrics:  p.Metrics,
		repo:     p.Repo,
		userRepo: p.UserRepo,
		provider: p.Provider,
	}
}

func (s *Service) GetSubscription(ctx context.Context, userID string) (domain.SubscriptionInfo, error) {
	sub, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return domain.SubscriptionInfo{}, err
	}
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.SubscriptionInfo{}, err
	}

	info := domain.SubscriptionInfo{
		Subscription: sub,
		UserStatus:   userdomain.StatusNone,
	}
	if user != nil {
		info.UserStatus = user.Status
		info.TrialEndsAt = user.TrialEndsAt
	}
	return info, nil
}

func (s *Service) Checkout(ctx context.Context, userID string, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	plan := strings.TrimSpace(req.Plan)
	if plan == "" {
		plan = domain.PlanMonthly
	}

	priceID := s.cfg.StripePriceMonthly
	if plan == domain.PlanYearly {
		priceID = s.cfg.StripePriceYearly
	}
	if priceID == "" {
		return domain.CheckoutResponse{}, domain.ErrPriceNotConfigured
	}

	origin := strings.TrimSpace(req.Origin)
	if origin == "" {
		origin = defaultOrigin
	}
	successURL := strings.TrimSpace(req.SuccessURL)
	if successURL == "" {
		successURL = origin + "/dashboard?session_id={CHECKOUT_SESSION_ID}"
	}
	cancelURL := strings.TrimSpace(req.CancelURL)
	if cancelURL == "" {
		cancelURL = origin + "/"
	}

	session, err := s.provider.CreateCheckoutSession(ctx, domain.CheckoutParams{
		PriceID:         priceID,
		SuccessURL:      successURL,
		CancelURL:       cancelURL,
		UserID:          userID,
		Plan:            plan,
		CustomerEmail:   strings.TrimSpace(req.Email),
		TrialPeriodDays: s.cfg.TrialDays,
	})
	if err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	s.log.Info("checkout session created",
		zap.String("user_id", userID), zap.String("plan", plan))
	return domain.CheckoutResponse{SessionID: session.ID, URL: session.URL}, nil
}

func (s *Service) Cancel(ctx context.Context, userID string) (domain.CancelResponse, error) {
	sub, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return domain.CancelResponse{}, err
	}
	if sub == nil || sub.StripeSubscriptionID == nil || *sub.StripeSubscriptionID == "" {
		return domain.CancelResponse{}, domain.ErrNoSubscription
	}

	result, err := s.provider.CancelAtPeriodEnd(ctx, *sub.StripeSubscriptionID)
	if err != nil {
		return domain.CancelResponse{}, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	now := s.clock.Now()
	if err := s.repo.UpdateByUser(ctx, s.db, userID, map[string]any{
		"status":       domain.SubscriptionCancelling,
		"cancelled_at": now,
		"updated_at":   now,
	}); err != nil {
		s.log.Warn("cancel state not recorded",
			zap.String("user_id", userID), zap.Error(err))
	}

	s.log.Info("subscription cancel requested", zap.String("user_id", userID))
	return domain.CancelResponse{Cancelled: true, CancelAt: result.CancelAt}, nil
}

type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSessionObject struct {
	Mode     string `json:"mode"`
	Customer string `json:"customer"`
	// subscription id on the completed session
	Subscription string `json:"subscription"`
	Metadata     struct {
		UserID string `json:"user_id"`
		Plan   string `json:"plan"`
	} `json:"metadata"`
}

type subscriptionObject struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
}

type invoiceObject struct {
	Subscription string `json:"subscription"`
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if s.cfg.StripeWebhookSecret == "" {
		return domain.ErrWebhookNotConfigured
	}
	if strings.TrimSpace(sigHeader) == "" {
		return domain.ErrMissingSignature
	}
	if err := stripe.VerifySignature(payload, sigHeader, s.cfg.StripeWebhookSecret, s.clock.Now()); err != nil {
		return domain.ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.ErrInvalidPayload
	}

	s.metrics.RecordPaymentEvent(ctx, event.Type)
	s.applyEvent(ctx, event)
	return nil
}

// applyEvent mutates local state from a verified provider event. Failures are
// logged and dropped; the provider retries delivery on its own schedule.
func (s *Service) applyEvent(ctx context.Context, event webhookEvent) {
	switch event.Type {
	case "checkout.session.completed":
		var session checkoutSessionObject
		if err := json.Unmarshal(event.Data.Object, &session); err != nil || session.Mode != "subscription" {
			return
		}
		userID := strings.TrimSpace(session.Metadata.UserID)
		if userID == "" {
			return
		}
		plan := session.Metadata.Plan
		if plan == "" {
			plan = domain.PlanMonthly
		}

		now := s.clock.Now()
		if err := s.userRepo.UpdateFields(ctx, s.db, userID, map[string]any{
			"status":     userdomain.StatusActive,
			"updated_at": now,
		}); err != nil {
			s.log.Warn("user activation dropped",
				zap.String("user_id", userID), zap.Error(err))
		}

		sub := domain.Subscription{
			ID:        s.genID.Generate(),
			UserID:    userID,
			Plan:      plan,
			Status:    domain.SubscriptionActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if session.Customer != "" {
			sub.StripeCustomerID = &session.Customer
		}
		if session.Subscription != "" {
			sub.StripeSubscriptionID = &session.Subscription
		}
		if err := s.repo.Upsert(ctx, s.db, &sub); err != nil {
			s.log.Warn("subscription upsert dropped",
				zap.String("user_id", userID), zap.Error(err))
		}

	case "customer.subscription.updated":
		var sub subscriptionObject
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil || sub.ID == "" {
			return
		}
		status := sub.Status
		if sub.CancelAtPeriodEnd {
			status = domain.SubscriptionCancelling
		}
		updates := map[string]any{
			"status":     status,
			"updated_at": s.clock.Now(),
		}
		if sub.CurrentPeriodEnd > 0 {
			updates["current_period_end"] = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		}
		if err := s.repo.UpdateByProviderSubscription(ctx, s.db, sub.ID, updates); err != nil {
			s.log.Warn("subscription update dropped",
				zap.String("provider_subscription_id", sub.ID), zap.Error(err))
		}

	case "customer.subscription.deleted":
		var sub subscriptionObject
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil || sub.ID == "" {
			return
		}
		now := s.clock.Now()
		if err := s.repo.UpdateByProviderSubscription(ctx, s.db, sub.ID, map[string]any{
			"status":       domain.SubscriptionCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}); err != nil {
			s.log.Warn("subscription delete dropped",
				zap.String("provider_subscription_id", sub.ID), zap.Error(err))
		}

		row, err := s.repo.FindByProviderSubscription(ctx, s.db, sub.ID)
		if err != nil || row == nil {
			return
		}
		if err := s.userRepo.UpdateFields(ctx, s.db, row.UserID, map[string]any{
			"status":     userdomain.StatusCancelled,
			"updated_at": now,
		}); err != nil {
			s.log.Warn("user cancellation dropped",
				zap.String("user_id", row.UserID), zap.Error(err))
		}

	case "invoice.payment_failed":
		var invoice invoiceObject
		if err := json.Unmarshal(event.Data.Object, &invoice); err != nil || invoice.Subscription == "" {
			return
		}
		if err := s.repo.UpdateByProviderSubscription(ctx, s.db, invoice.Subscription, map[string]any{
			"status":     domain.SubscriptionPastDue,
			"updated_at": s.clock.Now(),
		}); err != nil {
			s.log.Warn("past_due update dropped",
				zap.String("provider_subscription_id", invoice.Subscription), zap.Error(err))
		}
	}
}
