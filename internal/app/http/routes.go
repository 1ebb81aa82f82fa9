package routes

import (
	authapi "flowhost/internal/api/auth"
	billingapi "flowhost/internal/api/billing"
	instancesapi "flowhost/internal/api/instances"
	stripewebhooks "flowhost/internal/api/stripewebhook"
	teamsapi "flowhost/internal/api/teams"
	usersapi "flowhost/internal/api/users"
	"flowhost/internal/app/http/middleware"
	"flowhost/internal/domain/subscriptions"

	"github.com/gin-gonic/gin"
)

// Deps carries the shared billing collaborators the handlers close
// over. Built once in main.
type Deps struct {
	Repo      subscriptions.Repository
	Lifecycle *subscriptions.Lifecycle
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.POST("/webhook", stripewebhooks.StripeWebhook(deps.Lifecycle, deps.Repo))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeInputMiddleware())

	auth.GET("/me", usersapi.GetCurrentUser(deps.Repo))

	auth.POST("/teams", teamsapi.CreateTeam)
	auth.GET("/teams/:ref", teamsapi.GetTeam)
	auth.POST("/teams/:ref/trial", teamsapi.StartTrial(deps.Lifecycle))

	auth.GET("/teams/:ref/billing", billingapi.TeamBilling(deps.Repo))
	auth.POST("/teams/:ref/checkout", billingapi.CreateCheckoutSession)
	auth.POST("/teams/:ref/billing-portal", billingapi.CreateBillingPortal(deps.Repo))

	auth.GET("/teams/:ref/applications", instancesapi.ListApplications)

	// creating things requires usable billing (active or live trial)
	gated := auth.Group("/")
	gated.Use(middleware.RequireUsableBilling(deps.Repo))
	gated.POST("/teams/:ref/applications", instancesapi.CreateApplication)

	auth.POST("/applications/:id/instances", instancesapi.CreateInstance(deps.Lifecycle))
}
