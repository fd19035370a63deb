package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/makoban/koubo-navi/internal/billing/domain"
	"github.com/makoban/koubo-navi/internal/billing/repository"
	"github.com/makoban/koubo-navi/internal/billing/stripe"
	"github.com/makoban/koubo-navi/internal/clock"
	"github.com/makoban/koubo-navi/internal/config"
	"github.com/makoban/koubo-navi/internal/observability/metrics"
	userdomain "github.com/makoban/koubo-navi/internal/user/domain"
	userrepository "github.com/makoban/koubo-navi/internal/user/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

const webhookSecret = "whsec_test"

type stubProvider struct {
	checkoutParams *domain.CheckoutParams
	checkoutErr    error
	cancelledSubID string
	cancelErr      error
}

func (p *stubProvider) CreateCheckoutSession(_ context.Context, params domain.CheckoutParams) (domain.CheckoutSession, error) {
	p.checkoutParams = &params
	if p.checkoutErr != nil {
		return domain.CheckoutSession{}, p.checkoutErr
	}
	return domain.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (p *stubProvider) CancelAtPeriodEnd(_ context.Context, providerSubID string) (domain.CancelResult, error) {
	p.cancelledSubID = providerSubID
	if p.cancelErr != nil {
		return domain.CancelResult{}, p.cancelErr
	}
	return domain.CancelResult{CancelAt: testNow.Add(30 * 24 * time.Hour).Unix()}, nil
}

func setupBilling(t *testing.T, provider *stubProvider) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&userdomain.User{}, &domain.Subscription{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	m, err := metrics.New(metrics.Config{}, noop.NewMeterProvider())
	require.NoError(t, err)

	svc := New(Params{
		Config: config.Config{
			StripeWebhookSecret: webhookSecret,
			StripePriceMonthly:  "price_monthly",
			StripePriceYearly:   "price_yearly",
			TrialDays:           14,
		},
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(testNow),
		Metrics:  m,
		Repo:     repository.Provide(),
		UserRepo: userrepository.Provide(),
		Provider: provider,
	})
	return svc, db
}

func seedBillingUser(t *testing.T, db *gorm.DB, status userdomain.Status) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, db.Create(&userdomain.User{
		ID:         id,
		CompanyURL: "https://example.co.jp",
		Status:     status,
	}).Error)
	return id
}

func seedSubscription(t *testing.T, db *gorm.DB, userID, providerSubID string) {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	customer := "cus_123"
	require.NoError(t, db.Create(&domain.Subscription{
		ID:                   node.Generate(),
		UserID:               userID,
		StripeCustomerID:     &customer,
		StripeSubscriptionID: &providerSubID,
		Plan:                 domain.PlanMonthly,
		Status:               domain.SubscriptionActive,
	}).Error)
}

func signedHeader(payload string) string {
	return stripe.SignPayload([]byte(payload), webhookSecret, testNow)
}

func TestGetSubscription(t *testing.T) {
	svc, db := setupBilling(t, &stubProvider{})
	trialEnd := testNow.Add(7 * 24 * time.Hour)
	userID := seedBillingUser(t, db, userdomain.StatusTrial)
	require.NoError(t, db.Model(&userdomain.User{}).Where("id = ?", userID).Update("trial_ends_at", trialEnd).Error)

	info, err := svc.GetSubscription(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, info.Subscription)
	assert.Equal(t, userdomain.StatusTrial, info.UserStatus)
	require.NotNil(t, info.TrialEndsAt)
	assert.True(t, info.TrialEndsAt.Equal(trialEnd))
}

func TestGetSubscriptionUnknownUser(t *testing.T) {
	svc, _ := setupBilling(t, &stubProvider{})

	info, err := svc.GetSubscription(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, info.Subscription)
	assert.Equal(t, userdomain.StatusNone, info.UserStatus)
}

func TestCheckoutBuildsSession(t *testing.T) {
	provider := &stubProvider{}
	svc, db := setupBilling(t, provider)
	userID := seedBillingUser(t, db, userdomain.StatusTrial)

	resp, err := svc.Checkout(context.Background(), userID, domain.CheckoutRequest{
		Plan:  domain.PlanYearly,
		Email: "owner@example.co.jp",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", resp.SessionID)
	assert.NotEmpty(t, resp.URL)

	require.NotNil(t, provider.checkoutParams)
	assert.Equal(t, "price_yearly", provider.checkoutParams.PriceID)
	assert.Equal(t, userID, provider.checkoutParams.UserID)
	assert.Equal(t, domain.PlanYearly, provider.checkoutParams.Plan)
	assert.Equal(t, 14, provider.checkoutParams.TrialPeriodDays)
	assert.Equal(t, "owner@example.co.jp", provider.checkoutParams.CustomerEmail)
	assert.Contains(t, provider.checkoutParams.SuccessURL, "{CHECKOUT_SESSION_ID}")
}

func TestCheckoutDefaultsToMonthly(t *testing.T) {
	provider := &stubProvider{}
	svc, db := setupBilling(t, provider)
	userID := seedBillingUser(t, db, userdomain.StatusTrial)

	_, err := svc.Checkout(context.Background(), userID, domain.CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, "price_monthly", provider.checkoutParams.PriceID)
	assert.Equal(t, domain.PlanMonthly, provider.checkoutParams.Plan)
}

func TestCheckoutProviderFailure(t *testing.T) {
	provider := &stubProvider{checkoutErr: errors.New("stripe down")}
	svc, db := setupBilling(t, provider)
	userID := seedBillingUser(t, db, userdomain.StatusTrial)

	_, err := svc.Checkout(context.Background(), userID, domain.CheckoutRequest{})
	assert.ErrorIs(t, err, domain.ErrProvider)
}

func TestCancelWithoutSubscription(t *testing.T) {
	svc, db := setupBilling(t, &stubProvider{})
	userID := seedBillingUser(t, db, userdomain.StatusActive)

	_, err := svc.Cancel(context.Background(), userID)
	assert.ErrorIs(t, err, domain.ErrNoSubscription)
}

func TestCancelMarksCancelling(t *testing.T) {
	provider := &stubProvider{}
	svc, db := setupBilling(t, provider)
	userID := seedBillingUser(t, db, userdomain.StatusActive)
	seedSubscription(t, db, userID, "sub_123")

	resp, err := svc.Cancel(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	assert.NotZero(t, resp.CancelAt)
	assert.Equal(t, "sub_123", provider.cancelledSubID)

	var sub domain.Subscription
	require.NoError(t, db.Where("user_id = ?", userID).Take(&sub).Error)
	assert.Equal(t, domain.SubscriptionCancelling, sub.Status)
	require.NotNil(t, sub.CancelledAt)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	svc, _ := setupBilling(t, &stubProvider{})

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "")
	assert.ErrorIs(t, err, domain.ErrMissingSignature)

	err = svc.HandleWebhook(context.Background(), []byte(`{}`), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// header signed over a different body
	header := signedHeader(`{"type":"x"}`)
	err = svc.HandleWebhook(context.Background(), []byte(`{"type":"y"}`), header)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	svc, db := setupBilling(t, &stubProvider{})
	userID := seedBillingUser(t, db, userdomain.StatusTrial)

	payload := fmt.Sprintf(`{
  "id": "evt_1",
  "type": "checkout.session.completed",
  "data": {"object": {
    "mode": "subscription",
    "customer": "cus_9",
    "subscription": "sub_9",
    "metadata": {"user_id": %q, "plan": "yearly"}
  }}
}`, userID)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(payload), signedHeader(payload)))

	var user userdomain.User
	require.NoError(t, db.Where("id = ?", userID).Take(&user).Error)
	assert.Equal(t, userdomain.StatusActive, user.Status)

	var sub domain.Subscription
	require.NoError(t, db.Where("user_id = ?", userID).Take(&sub).Error)
	assert.Equal(t, domain.PlanYearly, sub.Plan)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.StripeSubscriptionID)
	assert.Equal(t, "sub_9", *sub.StripeSubscriptionID)
}

func TestWebhookCheckoutIgnoresNonSubscriptionMode(t *testing.T) {
	svc, db := setupBilling(t, &stubProvider{})
	userID := seedBillingUser(t, db, userdomain.StatusTrial)

	payload := fmt.Sprintf(`{
  "type": "checkout.session.completed",
  "data": {"object": {"mode": "payment", "metadata": {"user_id": %q}}}
}`, userID)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(payload), signedHeader(payload)))

	var user userdomain.User
	require.NoError(t, db.Where("id = ?", userID).Take(&user).Error)
	assert.Equal(t, userdomain.StatusTrial, user.Status)
}

func TestWebhookSubscriptionUpdated(t *testing.T) {
	svc, db := setupBilling(t, &stubProvider{})
	userID := seedBillingUser(t, db, userdomain.StatusActive)
	seedSubscription(t, db, userID, "sub_42")

	periodEnd := testNow.Add(30 * 24 * time.Hour).Unix()
	payload := fmt.Sprintf(`{
  "type": "customer.subscription.updated",
  "data": {"object": {"id": "sub_42", "status": "active", "cancel_at_period_end": true, "current_period_end": %d}}
}`, periodEnd)

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(payload), signedHeader(payload)))

	var sub domain.Subscription
	require.NoError(t, db.Where("user_id = ?", userID).Take(&sub).Error)
	assert.Equal(t, domain.SubscriptionCancelling, sub.Status)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, sub.CurrentPeriodEnd.Unix())
}

func TestWebhookSubscriptionDeleted(t *testing.T) {
	svc, db := setupBilling(t, &stubProvider{})
	userID := seedBillingUser(t, db, userdomain.StatusActive)
	seedSubscription(t, db, userID, "sub_77")

	payload := `{
  "type": "customer.subscription.deleted",
  "data": {"object": {"id": "sub_77", "status": "canceled"}}
}`

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(payload), signedHeader(payload)))

	var sub domain.Subscription
	require.NoError(t, db.Where("user_id = ?", userID).Take(&sub).Error)
	assert.Equal(t, domain.SubscriptionCancelled, sub.Status)
	require.NotNil(t, sub.CancelledAt)

	var user userdomain.User
	require.NoError(t, db.Where("id = ?", userID).Take(&user).Error)
	assert.Equal(t, userdomain.StatusCancelled, user.Status)
}

func TestWebhookPaymentFailed(t *testing.T) {
	svc, db := setupBilling(t, &stubProvider{})
	userID := seedBillingUser(t, db, userdomain.StatusActive)
	seedSubscription(t, db, userID, "sub_11")

	payload := `{
  "type": "invoice.payment_failed",
  "data": {"object": {"subscription": "sub_11"}}
}`

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte(payload), signedHeader(payload)))

	var sub domain.Subscription
	require.NoError(t, db.Where("user_id = ?", userID).Take(&sub).Error)
	assert.Equal(t, domain.SubscriptionPastDue, sub.Status)
}

func TestWebhookUnknownEventAccepted(t *testing.T) {
	svc, _ := setupBilling(t, &stubProvider{})

	payload := `{"type": "customer.created", "data": {"object": {}}}`
	assert.NoError(t, svc.HandleWebhook(context.Background(), []byte(payload), signedHeader(payload)))
}
