package billing

import (
	"fmt"
	"net/http"
	"os"

	"flowhost/database"
	"flowhost/internal/domain/plans"
	"flowhost/internal/domain/teams"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
)

// CreateCheckoutSession handles POST /teams/:ref/checkout. The session
// carries the team id in ClientReferenceID and subscription metadata so
// the webhook can attach the resulting subscription to the right team.
func CreateCheckoutSession(c *gin.Context) {
	var body struct {
		PriceID string `json:"price_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid price_id"})
		return
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	teamID, err := teams.ParseRef(c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	var team teams.Team
	if err := database.DB.Where("id = ?", teamID).First(&team).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	// allow-list price id
	var teamType plans.TeamType
	if err := database.DB.Where("stripe_price_id = ?", body.PriceID).First(&teamType).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown team type/price_id"})
		return
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:5173"
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(appURL + "/team/" + team.HashID() + "/billing"),
		CancelURL:  stripe.String(appURL + "/team/" + team.HashID() + "/billing?canceled=1"),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),

		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(teamType.StripePriceID), Quantity: stripe.Int64(1)},
		},

		ClientReferenceID: stripe.String(fmt.Sprint(team.ID)),
		CustomerEmail:     stripe.String(team.ContactEmail),

		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"team_id": fmt.Sprint(team.ID),
				"app_env": os.Getenv("APP_ENV"),
			},
		},
	}

	session, err := checkoutsession.New(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": session.URL})
}
