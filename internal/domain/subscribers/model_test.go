package subscribers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrialDaysLeft(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Subscriber{TrialStart: &start, TrialUsed: true}

	assert.Equal(t, 7, s.TrialDaysLeft(start))
	assert.Equal(t, 7, s.TrialDaysLeft(start.Add(time.Minute)))
	assert.Equal(t, 1, s.TrialDaysLeft(start.Add(6*24*time.Hour)))
	assert.Equal(t, 0, s.TrialDaysLeft(start.Add(TrialDuration)))
	assert.Equal(t, 0, (&Subscriber{}).TrialDaysLeft(start))
}

func TestTrialEnd(t *testing.T) {
	var nilSub *Subscriber
	assert.Nil(t, nilSub.TrialEnd())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := (&Subscriber{TrialStart: &start}).TrialEnd()
	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), *end)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "anna@example.com", NormalizeEmail("  Anna@Example.COM "))
}
