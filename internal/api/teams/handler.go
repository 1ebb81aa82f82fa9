package teams

import (
	"errors"
	"net/http"
	"time"

	"flowhost/database"
	"flowhost/internal/domain/subscriptions"
	"flowhost/internal/domain/teams"
	"flowhost/internal/domain/users"

	"github.com/gin-gonic/gin"
)

// POST /teams
func CreateTeam(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	team := teams.Team{
		Name:         input.Name,
		Slug:         teams.MakeSlug(input.Name),
		ContactEmail: user.Email,
		OwnerID:      user.ID,
	}
	if err := database.DB.Create(&team).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Team name already taken"})
		return
	}

	c.JSON(http.StatusOK, teamResponse(&team))
}

// GET /teams/:ref
func GetTeam(c *gin.Context) {
	team, ok := loadTeam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, teamResponse(team))
}

// StartTrial handles POST /teams/:ref/trial. It creates the team's
// subscription record and starts the trial clock. A team that already
// engaged billing gets a conflict, not a second trial.
func StartTrial(lc *subscriptions.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		team, ok := loadTeam(c)
		if !ok {
			return
		}

		sub, err := lc.CreateTrial(team.ID, time.Now())
		if err != nil {
			if errors.Is(err, subscriptions.ErrDuplicateSubscription) {
				c.JSON(http.StatusConflict, gin.H{"error": "Team already has a subscription"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start trial"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"trial_status":  sub.TrialStatus,
			"trial_ends_at": sub.TrialEndsAt,
		})
	}
}

func loadTeam(c *gin.Context) (*teams.Team, bool) {
	teamID, err := teams.ParseRef(c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return nil, false
	}

	var team teams.Team
	if err := database.DB.Where("id = ?", teamID).First(&team).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return nil, false
	}
	return &team, true
}

func teamResponse(team *teams.Team) gin.H {
	return gin.H{
		"id":   team.HashID(),
		"name": team.Name,
		"slug": team.Slug,
	}
}
