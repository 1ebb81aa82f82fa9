package middleware

import (
	"net/http"
	"time"

	"flowhost/internal/domain/subscriptions"

	"github.com/gin-gonic/gin"
)

// RequireUsableBilling guards team-scoped routes that need a usable
// billing account: an active subscription, or a trial that has not yet
// lapsed. The team is taken from the :ref route param.
func RequireUsableBilling(repo subscriptions.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := repo.ByTeam(c.Param("ref"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Billing not set up for this team",
			})
			return
		}

		now := time.Now()
		usable := sub.IsActive() ||
			(sub.Status == subscriptions.StatusTrial && !sub.IsTrialEnded(now))
		if !usable {
			c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
				"error": "Your subscription is canceled or your trial has ended",
			})
			return
		}

		c.Next()
	}
}
