package billing

import (
	"errors"
	"net/http"
	"os"
	"time"

	"flowhost/internal/domain/subscriptions"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	portalSession "github.com/stripe/stripe-go/v75/billingportal/session"
)

// TeamBilling handles GET /teams/:ref/billing — the billing state the
// UI renders banners and gates from.
func TeamBilling(repo subscriptions.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := repo.ByTeam(c.Param("ref"))
		if err != nil {
			if errors.Is(err, subscriptions.ErrNotFound) {
				// non-billed team: usable nowhere, but not an error
				c.JSON(http.StatusOK, gin.H{
					"billing_enabled": false,
					"active":          false,
					"trial":           false,
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load subscription"})
			return
		}

		now := time.Now()
		c.JSON(http.StatusOK, gin.H{
			"billing_enabled": true,
			"status":          sub.Status,
			"active":          sub.IsActive(),
			"canceled":        sub.IsCanceled(),
			"trial":           sub.IsTrial(),
			"trial_status":    sub.TrialStatus,
			"trial_ended":     sub.IsTrialEnded(now),
			"trial_ends_at":   sub.TrialEndsAt,
			"days_remaining":  sub.TrialDaysRemaining(now),
		})
	}
}

// CreateBillingPortal handles POST /teams/:ref/billing-portal. Only
// teams with a real Stripe customer (i.e. past checkout) can open the
// portal; trial placeholders cannot.
func CreateBillingPortal(repo subscriptions.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
		if stripe.Key == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
			return
		}

		sub, err := repo.ByTeam(c.Param("ref"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No subscription for team"})
			return
		}
		if sub.Customer == subscriptions.TrialCustomerID(sub.TeamID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Team has no billing account yet"})
			return
		}

		appURL := os.Getenv("APP_URL")
		if appURL == "" {
			appURL = "http://localhost:5173"
		}

		ps, err := portalSession.New(&stripe.BillingPortalSessionParams{
			Customer:  stripe.String(sub.Customer),
			ReturnURL: stripe.String(appURL + "/team/billing"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create billing portal session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"url": ps.URL})
	}
}
