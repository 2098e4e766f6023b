package routes

import (
	"errors"
	"net/http"
	"time"

	"bustrack/internal/model"
	"bustrack/internal/service/activity"
	"bustrack/internal/service/ingest"

	"github.com/gin-gonic/gin"
)

type startSessionRequest struct {
	VehicleID       string  `json:"vehicle_id" binding:"required"`
	DriverID        string  `json:"driver_id"`
	IntervalSeconds float64 `json:"interval_seconds"`
}

type fixRequest struct {
	// Pointers so that 0 (equator, prime meridian) still binds
	Lat        *float64  `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng        *float64  `json:"lng" binding:"required,gte=-180,lte=180"`
	Accuracy   *float64  `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	CapturedAt time.Time `json:"captured_at"`
}

// SetupTrackHandlers registers the tracking session endpoints
func SetupTrackHandlers(router *gin.RouterGroup, manager *ingest.Manager, logbook *activity.ActivityService) {
	trackGroup := router.Group("/track")

	// Starting a session replaces any previous session for the device,
	// so there is never more than one producer loop per device
	trackGroup.POST("/:deviceID/start", func(c *gin.Context) {
		deviceID := c.Param("deviceID")

		var req startSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cfg := ingest.SessionConfig{
			VehicleID: req.VehicleID,
			DriverID:  req.DriverID,
			Interval:  time.Duration(req.IntervalSeconds * float64(time.Second)),
		}
		session, err := manager.StartSession(deviceID, cfg)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logbook.Record(c.Request.Context(), "tracking_started", req.DriverID, map[string]any{
			"device_id":  deviceID,
			"vehicle_id": req.VehicleID,
		})

		effective := session.Config()
		c.JSON(http.StatusOK, gin.H{
			"status":              "started",
			"vehicle_id":          effective.VehicleID,
			"interval_seconds":    effective.Interval.Seconds(),
			"fix_timeout_seconds": effective.FixTimeout.Seconds(),
			"max_fix_age_seconds": effective.MaxFixAge.Seconds(),
		})
	})

	// A dropped fix is a designed outcome, not an error: 204 says the
	// throttle absorbed it
	trackGroup.POST("/:deviceID/fix", func(c *gin.Context) {
		deviceID := c.Param("deviceID")

		var req fixRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		fix := model.Fix{
			Lat:        *req.Lat,
			Lng:        *req.Lng,
			Accuracy:   req.Accuracy,
			Speed:      req.Speed,
			Heading:    req.Heading,
			CapturedAt: req.CapturedAt,
		}
		if fix.CapturedAt.IsZero() {
			fix.CapturedAt = time.Now()
		}

		admitted, err := manager.Offer(c.Request.Context(), deviceID, fix)
		if err != nil {
			switch {
			case errors.Is(err, ingest.ErrNoActiveSession), errors.Is(err, ingest.ErrSessionStopped):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				// The throttle has already advanced; the fix is not retried
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			}
			return
		}

		if !admitted {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "forwarded"})
	})

	trackGroup.POST("/:deviceID/stop", func(c *gin.Context) {
		deviceID := c.Param("deviceID")

		if !manager.StopSession(deviceID) {
			c.JSON(http.StatusNotFound, gin.H{"error": ingest.ErrNoActiveSession.Error()})
			return
		}

		logbook.Record(c.Request.Context(), "tracking_stopped", "", map[string]any{
			"device_id": deviceID,
		})
		c.JSON(http.StatusOK, gin.H{"status": "stopped"})
	})
}
