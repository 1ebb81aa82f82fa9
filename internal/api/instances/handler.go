package instances

import (
	"net/http"
	"time"

	"flowhost/database"
	"flowhost/internal/domain/instances"
	"flowhost/internal/domain/plans"
	"flowhost/internal/domain/subscriptions"
	"flowhost/internal/domain/teams"

	"github.com/gin-gonic/gin"
)

// POST /teams/:ref/applications
func CreateApplication(c *gin.Context) {
	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	teamID, err := teams.ParseRef(c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	app := instances.Application{
		TeamID: teamID,
		Name:   input.Name,
	}
	if err := database.DB.Create(&app).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create application"})
		return
	}

	c.JSON(http.StatusOK, app)
}

// GET /teams/:ref/applications
func ListApplications(c *gin.Context) {
	teamID, err := teams.ParseRef(c.Param("ref"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
		return
	}

	var apps []instances.Application
	if err := database.DB.Preload("Instances").
		Where("team_id = ?", teamID).
		Order("created_at").
		Find(&apps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

// CreateInstance handles POST /applications/:id/instances. This is
// where the billing gate bites: trial teams get exactly one instance,
// everyone else is limited by their team type.
func CreateInstance(lc *subscriptions.Lifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var app instances.Application
		if err := database.DB.Where("id = ?", c.Param("id")).First(&app).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
			return
		}

		var team teams.Team
		if err := database.DB.Where("id = ?", app.TeamID).First(&team).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Team not found"})
			return
		}

		running, err := instances.CountForTeam(database.DB, team.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count instances"})
			return
		}

		if !lc.CanCreateInstance(team.HashID(), int(running), instanceLimit(&team), time.Now()) {
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Billing required to create more instances"})
			return
		}

		inst := instances.Instance{
			ApplicationID: app.ID,
			TeamID:        team.ID,
			Name:          input.Name,
			State:         instances.StateRunning,
		}
		if err := database.DB.Create(&inst).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create instance"})
			return
		}

		c.JSON(http.StatusOK, inst)
	}
}

func instanceLimit(team *teams.Team) int {
	if team.TeamTypeID == nil {
		return 0 // unlimited; gate still requires an active subscription
	}
	var tt plans.TeamType
	if err := database.DB.Where("id = ?", *team.TeamTypeID).First(&tt).Error; err != nil {
		return 0
	}
	return tt.InstanceLimit
}
