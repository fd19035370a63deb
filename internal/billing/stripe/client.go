package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/makoban/koubo-navi/internal/billing/domain"
	"github.com/makoban/koubo-navi/internal/config"
	"go.uber.org/fx"
)

const apiVersion = "2024-06-20"

type checkoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type subscriptionResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	CancelAt int64  `json:"cancel_at"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(cfg config.Config) domain.Provider {
	return &Client{
		apiKey:  strings.TrimSpace(cfg.StripeSecretKey),
		baseURL: "https://api.stripe.com",
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params domain.CheckoutParams) (domain.CheckoutSession, error) {
	values := url.Values{}
	values.Set("mode", "subscription")
	values.Set("line_items[0][price]", params.PriceID)
	values.Set("line_items[0][quantity]", "1")
	values.Set("success_url", params.SuccessURL)
	values.Set("cancel_url", params.CancelURL)
	values.Set("metadata[user_id]", params.UserID)
	values.Set("metadata[plan]", params.Plan)
	values.Set("subscription_data[trial_period_days]", strconv.Itoa(params.TrialPeriodDays))
	values.Set("locale", "ja")
	values.Set("payment_method_types[0]", "card")
	if params.CustomerEmail != "" {
		values.Set("customer_email", params.CustomerEmail)
	}

	var session checkoutSessionResponse
	if err := c.doRequest(ctx, "/v1/checkout/sessions", values, &session); err != nil {
		return domain.CheckoutSession{}, err
	}
	if session.ID == "" {
		return domain.CheckoutSession{}, errors.New("stripe_response_invalid")
	}
	return domain.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (c *Client) CancelAtPeriodEnd(ctx context.Context, providerSubID string) (domain.CancelResult, error) {
	values := url.Values{}
	values.Set("cancel_at_period_end", "true")

	var sub subscriptionResponse
	if err := c.doRequest(ctx, "/v1/subscriptions/"+providerSubID, values, &sub); err != nil {
		return domain.CancelResult{}, err
	}
	return domain.CancelResult{CancelAt: sub.CancelAt}, nil
}

func (c *Client) doRequest(ctx context.Context, path string, values url.Values, out any) error {
	if c.apiKey == "" {
		return errors.New("stripe_key_not_configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return errors.New(message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

var Module = fx.Module("billing.stripe",
	fx.Provide(NewClient),
)
