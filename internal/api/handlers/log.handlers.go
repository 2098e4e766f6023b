package routes

import (
	"net/http"

	"bustrack/internal/service/activity"

	"github.com/gin-gonic/gin"
)

// SetupLogHandlers registers the activity log endpoint
func SetupLogHandlers(router *gin.RouterGroup, logbook *activity.ActivityService) {
	router.GET("/logs", func(c *gin.Context) {
		limit := parseLimit(c.Query("limit"), activity.DefaultLogLimit)
		actor := c.Query("actor")

		var entries any
		var err error
		if actor != "" {
			entries, err = logbook.RecentFor(c.Request.Context(), actor, limit)
		} else {
			entries, err = logbook.Recent(c.Request.Context(), limit)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": entries})
	})
}
