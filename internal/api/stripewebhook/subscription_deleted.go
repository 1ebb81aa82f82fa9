package stripewebhooks

import (
	"fmt"

	"flowhost/internal/domain/subscriptions"

	"github.com/stripe/stripe-go/v75"
)

// handleSubscriptionDeleted marks the record canceled. The record
// itself is kept as history; a later checkout revives it through
// checkout.session.completed.
func handleSubscriptionDeleted(lc *subscriptions.Lifecycle, sub *stripe.Subscription) error {
	if sub.Customer == nil || sub.Customer.ID == "" {
		return fmt.Errorf("subscription event missing customer")
	}
	return lc.ApplyProviderStatus(sub.Customer.ID, subscriptions.StatusCanceled)
}
