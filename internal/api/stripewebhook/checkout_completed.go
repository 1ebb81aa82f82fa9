package stripewebhooks

import (
	"errors"
	"fmt"
	"strconv"

	"flowhost/internal/domain/subscriptions"

	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/subscription"
)

// handleCheckoutSessionCompleted attaches the new Stripe subscription
// to the team. Two paths: a team that trialed already has a record
// (swap in the real provider ids, flip to active), a fresh team gets a
// record created here.
func handleCheckoutSessionCompleted(lc *subscriptions.Lifecycle, repo subscriptions.Repository, session *stripe.CheckoutSession) error {
	// Fetch full session with expansions
	fullSession, err := checkoutsession.Get(session.ID, &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Expand: []*string{
				stripe.String("subscription"),
				stripe.String("customer"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to fetch expanded checkout session: %w", err)
	}

	if fullSession.Subscription == nil || fullSession.Subscription.ID == "" {
		return errors.New("checkout session missing subscription")
	}
	if fullSession.Customer == nil || fullSession.Customer.ID == "" {
		return errors.New("checkout session missing customer")
	}
	subscriptionID := fullSession.Subscription.ID
	customerID := fullSession.Customer.ID

	subData, err := subscription.Get(subscriptionID, nil)
	if err != nil || subData == nil {
		return fmt.Errorf("failed to fetch subscription: %w", err)
	}

	teamID, err := teamIDFromSubscriptionOrRef(subData, fullSession.ClientReferenceID)
	if err != nil {
		return err
	}

	sub, err := repo.ByTeamID(teamID)
	switch {
	case errors.Is(err, subscriptions.ErrNotFound):
		if _, err := repo.Create(teamID, subscriptionID, customerID); err != nil {
			return fmt.Errorf("failed to create subscription for team %d: %w", teamID, err)
		}
		return nil

	case err != nil:
		return err
	}

	// Existing record: trial converting to paid. TrialStatus stays
	// where it is — it is a historical marker, not re-derived. Activate
	// resumes anything suspended while the trial was lapsed.
	if err := repo.SetProviderIdentity(sub, customerID, subscriptionID); err != nil {
		return err
	}
	return lc.Activate(sub)
}

func teamIDFromSubscriptionOrRef(sub *stripe.Subscription, clientRef string) (uint, error) {
	teamIDStr := ""
	if sub.Metadata != nil {
		teamIDStr = sub.Metadata["team_id"]
	}
	if teamIDStr == "" {
		teamIDStr = clientRef
	}
	if teamIDStr == "" {
		return 0, errors.New("missing team_id (metadata.team_id or client_reference_id)")
	}

	tid64, err := strconv.ParseUint(teamIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid team_id %q: %w", teamIDStr, err)
	}
	return uint(tid64), nil
}
