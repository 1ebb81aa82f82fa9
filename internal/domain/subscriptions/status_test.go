package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusActive, StatusCanceled, StatusTrial} {
		assert.True(t, s.Valid(), "expected %q to be valid", s)
	}
	for _, s := range []Status{"", "past_due", "trialing", "ACTIVE"} {
		assert.False(t, s.Valid(), "expected %q to be invalid", s)
	}
}

func TestTrialStatusOrdering(t *testing.T) {
	order := []TrialStatus{TrialNone, TrialCreated, TrialWeekEmailSent, TrialDayEmailSent, TrialEnded}
	for i := 0; i < len(order)-1; i++ {
		assert.True(t, order[i].Before(order[i+1]),
			"expected %q to come before %q", order[i], order[i+1])
		assert.False(t, order[i+1].Before(order[i]),
			"expected %q not to come before %q", order[i+1], order[i])
	}
}

func TestTrialStatusUnknownNeverReachable(t *testing.T) {
	unknown := TrialStatus("bogus")
	assert.False(t, unknown.Valid())
	// unknown values sort below everything, so no forward move can
	// ever land on them
	assert.True(t, unknown.Before(TrialNone))
}
