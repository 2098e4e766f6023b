package routes

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bustrack/internal/service/activity"
	"bustrack/internal/service/vehicle"
	"bustrack/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	defaultSampleLimit = 100
	maxSampleLimit     = 1000

	// Gaps longer than this get an interpolated midpoint so the exported
	// trail does not render as a jagged jump
	trailGapMeters = 1000.0
)

// SetupBusHandlers registers the vehicle roster endpoints
func SetupBusHandlers(router *gin.RouterGroup, vehicles *vehicle.VehicleService, logbook *activity.ActivityService) {
	busGroup := router.Group("/buses")

	busGroup.GET("", func(c *gin.Context) {
		now := time.Now()
		list := vehicles.ListVehicles()
		out := make([]gin.H, 0, len(list))
		for _, v := range list {
			out = append(out, gin.H{
				"vehicle": v,
				"active":  vehicles.IsActive(v, now),
				"tracked": vehicles.IsTracked(v),
			})
		}
		c.JSON(http.StatusOK, gin.H{"buses": out})
	})

	busGroup.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, vehicles.ComputeStats(time.Now()))
	})

	busGroup.GET("/:id", func(c *gin.Context) {
		v, ok := vehicles.GetVehicle(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": vehicle.ErrVehicleNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"vehicle": v,
			"active":  vehicles.IsActive(v, time.Now()),
			"tracked": vehicles.IsTracked(v),
		})
	})

	// PUT is an upsert-merge: absent fields are preserved, never cleared
	busGroup.PUT("/:id", func(c *gin.Context) {
		var patch vehicle.VehiclePatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		v, err := vehicles.UpsertVehicle(c.Param("id"), patch)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logbook.Record(c.Request.Context(), "bus_saved", "", map[string]any{
			"vehicle_id": v.ID,
		})
		c.JSON(http.StatusOK, gin.H{"vehicle": v})
	})

	busGroup.DELETE("/:id", func(c *gin.Context) {
		id := c.Param("id")
		if err := vehicles.DeleteVehicle(c.Request.Context(), id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, vehicle.ErrVehicleNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		logbook.Record(c.Request.Context(), "bus_deleted", "", map[string]any{
			"vehicle_id": id,
		})
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	// Clearing the position makes observers tear down the marker
	busGroup.DELETE("/:id/position", func(c *gin.Context) {
		id := c.Param("id")
		if err := vehicles.ClearPosition(id); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "position cleared"})
	})

	busGroup.GET("/:id/samples", func(c *gin.Context) {
		limit := parseLimit(c.Query("limit"), defaultSampleLimit)

		samples, err := vehicles.Samples(c.Request.Context(), c.Param("id"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"samples": samples})
	})

	busGroup.GET("/:id/trail", func(c *gin.Context) {
		id := c.Param("id")
		limit := parseLimit(c.Query("limit"), maxSampleLimit)

		samples, err := vehicles.Trail(c.Request.Context(), id, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		line := orb.LineString{}
		for i, s := range samples {
			if i > 0 && s.DistanceM > trailGapMeters {
				prev := samples[i-1]
				midLat, midLng := util.InterpolatePosition(prev.Lat, prev.Lng, s.Lat, s.Lng, 0.5)
				line = append(line, orb.Point{midLng, midLat})
			}
			line = append(line, orb.Point{s.Lng, s.Lat})
		}

		feature := geojson.NewFeature(line)
		feature.Properties["vehicle_id"] = id
		feature.Properties["samples"] = len(samples)

		fc := geojson.NewFeatureCollection()
		fc.Append(feature)
		c.JSON(http.StatusOK, fc)
	})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > maxSampleLimit {
		return maxSampleLimit
	}
	return limit
}
