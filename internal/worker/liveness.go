package worker

import (
	"log"
	"time"

	"bustrack/internal/config"
	"bustrack/internal/service/vehicle"
)

// StartLivenessWorker starts the worker that re-derives liveness
// classifications on a wall-clock tick. A vehicle goes inactive purely
// from elapsed time, with no new write, so the data feed alone would
// never surface the transition.
func StartLivenessWorker() {
	vehicleService := vehicle.GetVehicleService()

	ticker := time.NewTicker(config.LivenessWorkerInterval)
	go func() {
		for range ticker.C {
			if flipped := vehicleService.RecomputeLiveness(); flipped > 0 {
				log.Printf("Liveness worker: %d vehicles changed classification", flipped)
			}
		}
	}()

	log.Println("Liveness worker started with interval:", config.LivenessWorkerInterval)
}
