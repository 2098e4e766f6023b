package routes

import (
	"errors"
	"net/http"

	"bustrack/internal/service/activity"
	"bustrack/internal/service/driver"

	"github.com/gin-gonic/gin"
)

type createDriverRequest struct {
	FullName  string `json:"full_name" binding:"required"`
	Contact   string `json:"contact"`
	Email     string `json:"email"`
	VehicleID string `json:"vehicle_id"`
}

type assignVehicleRequest struct {
	VehicleID string `json:"vehicle_id"`
}

// SetupDriverHandlers registers the driver roster and registration endpoints
func SetupDriverHandlers(router *gin.RouterGroup, drivers *driver.DriverService, logbook *activity.ActivityService) {
	driverGroup := router.Group("/drivers")

	driverGroup.GET("", func(c *gin.Context) {
		list, err := drivers.ListDrivers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"drivers": list})
	})

	driverGroup.POST("", func(c *gin.Context) {
		var req createDriverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		d, err := drivers.CreateDriver(c.Request.Context(), req.FullName, req.Contact, req.Email, req.VehicleID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logbook.Record(c.Request.Context(), "driver_created", d.ID, map[string]any{
			"full_name": d.FullName,
		})
		c.JSON(http.StatusCreated, gin.H{"driver": d})
	})

	driverGroup.GET("/:id", func(c *gin.Context) {
		d, err := drivers.GetDriver(c.Request.Context(), c.Param("id"))
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, driver.ErrDriverNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"driver": d})
	})

	driverGroup.DELETE("/:id", func(c *gin.Context) {
		id := c.Param("id")
		if err := drivers.DeleteDriver(c.Request.Context(), id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, driver.ErrDriverNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		logbook.Record(c.Request.Context(), "driver_deleted", id, nil)
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	driverGroup.POST("/:id/vehicle", func(c *gin.Context) {
		var req assignVehicleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id := c.Param("id")
		if err := drivers.AssignVehicle(c.Request.Context(), id, req.VehicleID); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, driver.ErrDriverNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		logbook.Record(c.Request.Context(), "vehicle_assigned", id, map[string]any{
			"vehicle_id": req.VehicleID,
		})
		c.JSON(http.StatusOK, gin.H{"status": "assigned"})
	})

	// Driver-side registration with an invite code. Unknown codes fail
	// explicitly with no partial state left behind.
	router.POST("/register", func(c *gin.Context) {
		var reg driver.Registration
		if err := c.ShouldBindJSON(&reg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		d, user, err := drivers.RegisterWithInvite(c.Request.Context(), reg)
		if err != nil {
			switch {
			case errors.Is(err, driver.ErrInviteNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, driver.ErrAmbiguousInvite):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
			return
		}

		logbook.Record(c.Request.Context(), "driver_registered", user.ID, map[string]any{
			"driver_id": d.ID,
		})
		c.JSON(http.StatusCreated, gin.H{"driver": d, "user": user})
	})
}
