package api

import (
	routes "bustrack/internal/api/handlers"
	"bustrack/internal/hub"
	"bustrack/internal/service/activity"
	"bustrack/internal/service/driver"
	"bustrack/internal/service/ingest"
	"bustrack/internal/service/vehicle"

	"github.com/gin-gonic/gin"
)

// Services bundles everything the handlers need
type Services struct {
	Vehicles *vehicle.VehicleService
	Drivers  *driver.DriverService
	Activity *activity.ActivityService
	Tracking *ingest.Manager
	Hub      *hub.Hub
}

// SetupRouter initializes all application routes
func SetupRouter(r *gin.Engine, config map[string]string, svc Services) {
	// API group
	api := r.Group("/api")

	// Setup main handlers
	routes.SetupMainHandlers(r.Group(""), config)

	// Setup tracking session handlers
	routes.SetupTrackHandlers(api, svc.Tracking, svc.Activity)

	// Setup vehicle roster handlers
	routes.SetupBusHandlers(api, svc.Vehicles, svc.Activity)

	// Setup driver roster handlers
	routes.SetupDriverHandlers(api, svc.Drivers, svc.Activity)

	// Setup activity log handlers
	routes.SetupLogHandlers(api, svc.Activity)

	// Observer websocket
	if svc.Hub != nil {
		api.GET("/ws", gin.WrapF(svc.Hub.HandleWebSocket))
	}
}
