package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	SubscriptionActive     = "active"
	SubscriptionCancelling = "cancelling"
	SubscriptionCancelled  = "cancelled"
	SubscriptionPastDue    = "past_due"
)

const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

type Subscription struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID               string       `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	StripeCustomerID     *string      `json:"stripe_customer_id"`
	StripeSubscriptionID *string      `json:"stripe_subscription_id"`
	Plan                 string       `gorm:"not null;default:monthly" json:"plan"`
	Status               string       `gorm:"not null;default:active" json:"status"`
	CurrentPeriodEnd     *time.Time   `json:"current_period_end"`
	CancelledAt          *time.Time   `json:"cancelled_at"`
	CreatedAt            time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Subscription) TableName() string {
	return "koubo_subscriptions"
}
