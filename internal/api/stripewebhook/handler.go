package stripewebhooks

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"flowhost/database"
	"flowhost/internal/domain/billing"
	"flowhost/internal/domain/subscriptions"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

// StripeWebhook handles POST /webhook. Signature-verified, replay-safe
// (event ids are recorded once), and deliberately forgiving: a bad
// event is logged and acknowledged so it never blocks the ones behind
// it.
func StripeWebhook(lc *subscriptions.Lifecycle, repo subscriptions.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Stripe key is required for any follow-up API calls
		// (checkoutsession.Get, subscription.Get, etc.)
		stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
		if stripe.Key == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_SECRET_KEY not configured"})
			return
		}

		endpointSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		if endpointSecret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
			return
		}

		payload, err := readStripeBody(c, 65536)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
			return
		}

		event, err := webhook.ConstructEventWithOptions(
			payload,
			c.GetHeader("Stripe-Signature"),
			endpointSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
		)
		if err != nil {
			log.Warn().Err(err).Msg("stripe signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
			return
		}

		fresh, err := billing.RecordEventOnce(database.DB, &billing.WebhookEvent{
			StripeEventID: event.ID,
			Type:          string(event.Type),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event"})
			return
		}
		if !fresh {
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}

		switch event.Type {
		case "checkout.session.completed":
			var session stripe.CheckoutSession
			if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse session"})
				return
			}
			if err := handleCheckoutSessionCompleted(lc, repo, &session); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

		case "customer.subscription.updated":
			var sub stripe.Subscription
			if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
				return
			}
			// errors here are non-retryable (unknown customer, odd
			// status) — log, acknowledge, move on
			if err := handleSubscriptionUpdated(lc, &sub); err != nil {
				log.Warn().Err(err).Str("event_id", event.ID).Msg("subscription.updated dropped")
			}

		case "customer.subscription.deleted":
			var sub stripe.Subscription
			if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
				return
			}
			if err := handleSubscriptionDeleted(lc, &sub); err != nil {
				log.Warn().Err(err).Str("event_id", event.ID).Msg("subscription.deleted dropped")
			}

		default:
			// Acknowledge unknown events to avoid retries
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "received"})
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
