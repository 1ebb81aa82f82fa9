package main

import (
	"context"
	"os"
	"time"

	"flowhost/config"
	"flowhost/database"
	routes "flowhost/internal/app/http"
	"flowhost/internal/app/sweeper"
	"flowhost/internal/domain/instances"
	"flowhost/internal/domain/subscriptions"
	"flowhost/internal/domain/teams"
	"flowhost/internal/infra/email"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	teams.SetHashIDSalt(config.HASHID_SALT)

	repo := subscriptions.NewRepository(database.DB)
	lifecycle := subscriptions.NewLifecycle(
		repo,
		email.NewReminderMailer(),
		config.TRIAL_DURATION_DAYS,
		log.With().Str("component", "trial-lifecycle").Logger(),
	)
	lifecycle.OnTrialEnded = func(sub *subscriptions.Subscription) error {
		return instances.SuspendForTeam(database.DB, sub.TeamID)
	}
	lifecycle.OnReactivated = func(sub *subscriptions.Subscription) error {
		return instances.ResumeForTeam(database.DB, sub.TeamID)
	}

	runner := sweeper.New(
		lifecycle,
		time.Duration(config.TRIAL_SWEEP_INTERVAL)*time.Hour,
		log.With().Str("component", "trial-sweeper").Logger(),
	)
	runner.Start(context.Background())

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("CORS_ORIGIN")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{Repo: repo, Lifecycle: lifecycle})

	r.Run(":" + config.PORT)
}
