package users

import (
	"net/http"
	"time"

	"flowhost/database"
	"flowhost/internal/domain/subscriptions"
	"flowhost/internal/domain/teams"
	"flowhost/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// GetCurrentUser handles GET /me — the user plus their default team's
// billing state, which the UI uses for trial banners.
func GetCurrentUser(repo subscriptions.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString("email")
		if email == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var user users.User
		if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		resp := gin.H{
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		}

		if user.DefaultTeamID != nil {
			var team teams.Team
			if err := database.DB.Where("id = ?", *user.DefaultTeamID).First(&team).Error; err == nil {
				teamDTO := gin.H{
					"id":   team.HashID(),
					"name": team.Name,
					"slug": team.Slug,
				}
				if sub, err := repo.ByTeamID(team.ID); err == nil {
					now := time.Now()
					teamDTO["billing"] = gin.H{
						"active":         sub.IsActive(),
						"trial":          sub.IsTrial(),
						"trial_ended":    sub.IsTrialEnded(now),
						"days_remaining": sub.TrialDaysRemaining(now),
					}
				}
				resp["team"] = teamDTO
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}
