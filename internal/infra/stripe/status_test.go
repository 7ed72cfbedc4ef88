package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripeStatus(t *testing.T) {
	s := func(v string) *string { return &v }

	assert.Equal(t, "none", NormalizeStripeStatus(nil))
	assert.Equal(t, "none", NormalizeStripeStatus(s("  ")))
	assert.Equal(t, "active", NormalizeStripeStatus(s(" Active ")))
	assert.Equal(t, "trialing", NormalizeStripeStatus(s("trialing")))
	assert.Equal(t, "past_due", NormalizeStripeStatus(s("unpaid")))
	assert.Equal(t, "past_due", NormalizeStripeStatus(s("incomplete")))
	assert.Equal(t, "canceled", NormalizeStripeStatus(s("incomplete_expired")))
	assert.Equal(t, "inactive", NormalizeStripeStatus(s("inactive")))
}

func TestEntitled(t *testing.T) {
	assert.True(t, Entitled("active"))
	assert.True(t, Entitled(" trialing"))
	assert.False(t, Entitled("past_due"))
	assert.False(t, Entitled("canceled"))
	assert.False(t, Entitled(""))
}
