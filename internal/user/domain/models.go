package domain

import "time"

type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusNone      Status = "none"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPaid Tier = "paid"
)

type User struct {
	ID                    string     `gorm:"primaryKey;type:uuid" json:"id"`
	CompanyURL            string     `gorm:"not null;default:''" json:"company_url"`
	NotificationEmail     *string    `json:"notification_email"`
	NotificationThreshold int        `gorm:"default:40" json:"notification_threshold"`
	EmailNotify           bool       `gorm:"default:true" json:"email_notify"`
	Status                Status     `gorm:"default:trial" json:"status"`
	TrialEndsAt           *time.Time `json:"trial_ends_at"`
	InitialScreeningDone  bool       `gorm:"not null;default:false" json:"initial_screening_done"`
	InitialScreeningAt    *time.Time `json:"initial_screening_at,omitempty"`
	CreatedAt             time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "koubo_users"
}

// Tier is a pure function of status and trial expiry: paid while the
// subscription is active or the trial has not ended, free otherwise.
func (u *User) Tier(now time.Time) Tier {
	if u == nil {
		return TierFree
	}
	switch u.Status {
	case StatusActive:
		return TierPaid
	case StatusTrial:
		if u.TrialEndsAt != nil && u.TrialEndsAt.After(now) {
			return TierPaid
		}
	}
	return TierFree
}
