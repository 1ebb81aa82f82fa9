package stripewebhooks

import (
	"fmt"

	"flowhost/internal/domain/subscriptions"
	stripeinfra "flowhost/internal/infra/stripe"

	"github.com/stripe/stripe-go/v75"
)

// handleSubscriptionUpdated folds a provider status change into the
// record. The customer id is the only identifier trusted here — the
// subscription id is not stable across plan changes.
func handleSubscriptionUpdated(lc *subscriptions.Lifecycle, sub *stripe.Subscription) error {
	if sub.Customer == nil || sub.Customer.ID == "" {
		return fmt.Errorf("subscription event missing customer")
	}

	status, err := stripeinfra.NormalizeSubscriptionStatus(string(sub.Status))
	if err != nil {
		return err
	}

	return lc.ApplyProviderStatus(sub.Customer.ID, status)
}
