package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tiertrainer-backend/internal/domain/subscribers"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrString(s string) *string     { return &s }
func ptrInt(i int) *int              { return &i }

func TestDeriveModeTrialWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &subscribers.Subscriber{TrialStart: &start, TrialUsed: true}

	assert.Equal(t, ModeTrial, DeriveMode(time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), s))
	assert.Equal(t, ModeTrial, DeriveMode(start.Add(subscribers.TrialDuration-time.Nanosecond), s))
	assert.Equal(t, ModeTrialExpired, DeriveMode(start.Add(subscribers.TrialDuration), s))
	assert.Equal(t, ModeTrialExpired, DeriveMode(time.Date(2024, 1, 8, 0, 1, 0, 0, time.UTC), s))
}

func TestDeriveMode(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		sub  *subscribers.Subscriber
		want Mode
	}{
		{"no row", nil, ModeFree},
		{"empty row", &subscribers.Subscriber{}, ModeFree},
		{
			"trial start without trial_used is ignored",
			&subscribers.Subscriber{TrialStart: ptrTime(now.Add(-time.Hour))},
			ModeFree,
		},
		{
			"legacy trialing status",
			&subscribers.Subscriber{SubscriptionStatus: "trialing"},
			ModeTrial,
		},
		{
			"trial fields win over trialing status",
			&subscribers.Subscriber{TrialStart: ptrTime(now.AddDate(0, 0, -10)), TrialUsed: true, SubscriptionStatus: "trialing"},
			ModeTrialExpired,
		},
		{
			"active subscription without end",
			&subscribers.Subscriber{Subscribed: true, SubscriptionStatus: "active"},
			ModePremium,
		},
		{
			"active subscription with future end",
			&subscribers.Subscriber{Subscribed: true, SubscriptionStatus: "active", SubscriptionEnd: ptrTime(now.Add(time.Hour))},
			ModePremium,
		},
		{
			"active subscription already ended",
			&subscribers.Subscriber{Subscribed: true, SubscriptionStatus: "active", SubscriptionEnd: ptrTime(now.Add(-time.Hour))},
			ModeFree,
		},
		{
			"active status but not subscribed",
			&subscribers.Subscriber{Subscribed: false, SubscriptionStatus: "active"},
			ModeFree,
		},
		{
			"past due",
			&subscribers.Subscriber{Subscribed: true, SubscriptionStatus: "past_due"},
			ModeFree,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveMode(now, tc.sub))
		})
	}
}

func TestMaxPetsAllowed(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	premium := func() *subscribers.Subscriber {
		return &subscribers.Subscriber{Subscribed: true, SubscriptionStatus: "active"}
	}

	assert.Equal(t, 1, MaxPetsAllowed(now, nil))

	s := premium()
	s.TierLimit = ptrInt(3)
	s.SubscriptionTier = ptrString("plan4")
	assert.Equal(t, 3, MaxPetsAllowed(now, s), "tier_limit wins over tier")

	s = premium()
	s.SubscriptionTier = ptrString("plan4")
	assert.Equal(t, 8, MaxPetsAllowed(now, s))

	s = premium()
	s.SubscriptionTier = ptrString("gold")
	assert.Equal(t, 1, MaxPetsAllowed(now, s), "unknown tier")

	s = &subscribers.Subscriber{Subscribed: true, SubscriptionStatus: "past_due", TierLimit: ptrInt(4)}
	assert.Equal(t, 4, MaxPetsAllowed(now, s), "tier_limit applies regardless of mode")

	s = &subscribers.Subscriber{SubscriptionTier: ptrString("plan2")}
	assert.Equal(t, 2, MaxPetsAllowed(now, s), "tier map before the unsubscribed default")

	s = &subscribers.Subscriber{}
	assert.Equal(t, 1, MaxPetsAllowed(now, s), "unsubscribed without tier")

	s = &subscribers.Subscriber{TrialStart: ptrTime(now.Add(-time.Hour)), TrialUsed: true, TierLimit: ptrInt(3)}
	assert.Equal(t, 3, MaxPetsAllowed(now, s))

	s = &subscribers.Subscriber{TrialStart: ptrTime(now.Add(-time.Hour)), TrialUsed: true}
	assert.Equal(t, TrialPetLimit, MaxPetsAllowed(now, s), "trial without tier")

	s = &subscribers.Subscriber{TrialStart: ptrTime(now.Add(-30 * 24 * time.Hour)), TrialUsed: true}
	assert.Equal(t, 1, MaxPetsAllowed(now, s), "expired trial")
}

func TestTrialCapabilitiesMatchPetLimit(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s := &subscribers.Subscriber{TrialStart: ptrTime(now.Add(-time.Hour)), TrialUsed: true}

	p := ComputePolicy(now, s)
	assert.Equal(t, ModeTrial, p.Mode)
	assert.Contains(t, p.Capabilities, "multi_pet")
	assert.Greater(t, p.MaxPets, 1)
}

func TestCanAddPet(t *testing.T) {
	assert.True(t, CanAddPet(0, 1))
	assert.False(t, CanAddPet(1, 1))
	assert.False(t, CanAddPet(3, 2))
	assert.True(t, CanAddPet(100, -1))
}

func TestComputePolicy(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &subscribers.Subscriber{TrialStart: &start, TrialUsed: true}

	p := ComputePolicy(now, s)
	assert.Equal(t, ModeTrial, p.Mode)
	assert.Equal(t, 5, p.TrialDaysLeft)
	assert.Equal(t, start.Add(subscribers.TrialDuration), *p.TrialEndsAt)
	assert.Contains(t, p.Capabilities, "ai_chat")

	free := ComputePolicy(now, nil)
	assert.Equal(t, ModeFree, free.Mode)
	assert.Nil(t, free.TrialEndsAt)
	assert.Equal(t, 1, free.MaxPets)
}
