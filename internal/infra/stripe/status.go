package stripe

import (
	"fmt"
	"strings"

	"flowhost/internal/domain/subscriptions"
)

// NormalizeSubscriptionStatus collapses a raw Stripe subscription
// status into the platform's closed status set. This is deliberately
// coarse: anything Stripe still considers collectible (past_due,
// unpaid) stays active at this layer — dunning is Stripe's problem.
// https://stripe.com/docs/billing/subscriptions/overview#subscription-statuses
func NormalizeSubscriptionStatus(raw string) (subscriptions.Status, error) {
	switch strings.TrimSpace(raw) {
	case "active", "trialing", "past_due", "unpaid", "incomplete":
		return subscriptions.StatusActive, nil
	case "canceled", "incomplete_expired":
		return subscriptions.StatusCanceled, nil
	default:
		return "", fmt.Errorf("unrecognized stripe subscription status %q", raw)
	}
}
