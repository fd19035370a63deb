package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTierActiveIsPaid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	u := &User{Status: StatusActive}
	assert.Equal(t, TierPaid, u.Tier(now))
}

func TestTierTrialBeforeExpiryIsPaid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ends := now.Add(time.Hour)
	u := &User{Status: StatusTrial, TrialEndsAt: &ends}
	assert.Equal(t, TierPaid, u.Tier(now))
}

func TestTierExpiredTrialIsFree(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ends := now.Add(-time.Second)
	u := &User{Status: StatusTrial, TrialEndsAt: &ends}
	assert.Equal(t, TierFree, u.Tier(now))
}

func TestTierTrialWithoutExpiryIsFree(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	u := &User{Status: StatusTrial}
	assert.Equal(t, TierFree, u.Tier(now))
}

func TestTierCancelledIsFree(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ends := now.Add(time.Hour)
	u := &User{Status: StatusCancelled, TrialEndsAt: &ends}
	assert.Equal(t, TierFree, u.Tier(now))
}

func TestTierNilUserIsFree(t *testing.T) {
	var u *User
	assert.Equal(t, TierFree, u.Tier(time.Now()))
}
