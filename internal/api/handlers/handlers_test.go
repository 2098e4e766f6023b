package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"bustrack/internal/model"
	"bustrack/internal/service/activity"
	"bustrack/internal/service/ingest"
	"bustrack/internal/service/vehicle"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLedger struct {
	mu      sync.Mutex
	samples []*model.PositionSample
}

func (l *memLedger) Append(ctx context.Context, sample *model.PositionSample) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples = append(l.samples, sample)
	return nil
}

func (l *memLedger) Recent(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*model.PositionSample
	for i := len(l.samples) - 1; i >= 0 && len(out) < limit; i-- {
		if l.samples[i].VehicleID == vehicleID {
			out = append(out, l.samples[i])
		}
	}
	return out, nil
}

func (l *memLedger) Trail(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*model.PositionSample
	for _, s := range l.samples {
		if s.VehicleID == vehicleID && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

type memActivityStore struct {
	mu      sync.Mutex
	entries []*model.ActivityEntry
}

func (s *memActivityStore) Append(ctx context.Context, entry *model.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memActivityStore) Recent(ctx context.Context, actorID string, limit int) ([]*model.ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ActivityEntry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if actorID == "" || s.entries[i].ActorID == actorID {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

type testEnv struct {
	router   *gin.Engine
	vehicles *vehicle.VehicleService
	ledger   *memLedger
	logs     *memActivityStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := &memLedger{}
	vehicles := vehicle.NewVehicleService(ledger)
	logs := &memActivityStore{}
	logbook := activity.NewActivityService(logs)
	manager := ingest.NewManager(vehicles)

	r := gin.New()
	api := r.Group("/api")
	SetupTrackHandlers(api, manager, logbook)
	SetupBusHandlers(api, vehicles, logbook)
	SetupLogHandlers(api, logbook)

	return &testEnv{router: r, vehicles: vehicles, ledger: ledger, logs: logs}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestTrackEndpoints(t *testing.T) {
	t.Run("start then fix forwards the first sample", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/track/device-1/start", gin.H{
			"vehicle_id": "bus-1", "driver_id": "driver-9", "interval_seconds": 8,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var started map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
		assert.Equal(t, 8.0, started["interval_seconds"])
		assert.Equal(t, 10.0, started["fix_timeout_seconds"])
		assert.Equal(t, 2.0, started["max_fix_age_seconds"])

		w = env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 50.06, "lng": 19.94})
		assert.Equal(t, http.StatusAccepted, w.Code)

		v, ok := env.vehicles.GetVehicle("bus-1")
		require.True(t, ok)
		assert.True(t, v.HasPosition)
	})

	t.Run("burst inside the window is absorbed with 204", func(t *testing.T) {
		env := newTestEnv(t)

		env.do(t, http.MethodPost, "/api/track/device-1/start", gin.H{"vehicle_id": "bus-1"})

		w := env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 50.06, "lng": 19.94})
		require.Equal(t, http.StatusAccepted, w.Code)

		w = env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 50.07, "lng": 19.95})
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("interval below the floor is clamped", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/track/device-1/start", gin.H{
			"vehicle_id": "bus-1", "interval_seconds": 1,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var started map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
		assert.Equal(t, 3.0, started["interval_seconds"])
	})

	t.Run("fix without a session conflicts", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 50.06, "lng": 19.94})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("stop ends the session", func(t *testing.T) {
		env := newTestEnv(t)

		env.do(t, http.MethodPost, "/api/track/device-1/start", gin.H{"vehicle_id": "bus-1"})

		w := env.do(t, http.MethodPost, "/api/track/device-1/stop", nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 50.06, "lng": 19.94})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = env.do(t, http.MethodPost, "/api/track/device-1/stop", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("zero coordinates are valid", func(t *testing.T) {
		env := newTestEnv(t)
		env.do(t, http.MethodPost, "/api/track/device-1/start", gin.H{"vehicle_id": "bus-1"})

		// Greenwich sits on the prime meridian; lng 0 must not read as absent
		w := env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 51.4779, "lng": 0.0})
		require.Equal(t, http.StatusAccepted, w.Code)

		v, ok := env.vehicles.GetVehicle("bus-1")
		require.True(t, ok)
		assert.Equal(t, 0.0, v.Lng)
		assert.Equal(t, 51.4779, v.Lat)
	})

	t.Run("out of range coordinates are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.do(t, http.MethodPost, "/api/track/device-1/start", gin.H{"vehicle_id": "bus-1"})

		w := env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 91.0, "lng": 0.0})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 50.0, "lng": -180.5})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing coordinates are rejected", func(t *testing.T) {
		env := newTestEnv(t)
		env.do(t, http.MethodPost, "/api/track/device-1/start", gin.H{"vehicle_id": "bus-1"})

		w := env.do(t, http.MethodPost, "/api/track/device-1/fix", gin.H{"lat": 50.06})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBusEndpoints(t *testing.T) {
	t.Run("put is an upsert merge", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPut, "/api/buses/bus-1", gin.H{"label": "Route 7"})
		require.Equal(t, http.StatusOK, w.Code)

		// Second patch without a label keeps it
		w = env.do(t, http.MethodPut, "/api/buses/bus-1", gin.H{"driver_id": "driver-9"})
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, http.MethodGet, "/api/buses/bus-1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Route 7")
		assert.Contains(t, w.Body.String(), "driver-9")
	})

	t.Run("stats count tracked independent of active", func(t *testing.T) {
		env := newTestEnv(t)

		env.do(t, http.MethodPut, "/api/buses/bus-1", gin.H{"label": "Route 7"})
		require.NoError(t, env.vehicles.ApplyFix(context.Background(), "bus-2", "", model.Fix{Lat: 50.0, Lng: 19.9}))

		w := env.do(t, http.MethodGet, "/api/buses/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var stats vehicle.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.Total)
		assert.Equal(t, 1, stats.Tracked)
		assert.Equal(t, 1, stats.Active)
	})

	t.Run("clearing the position marks the bus untracked", func(t *testing.T) {
		env := newTestEnv(t)

		require.NoError(t, env.vehicles.ApplyFix(context.Background(), "bus-1", "", model.Fix{Lat: 50.0, Lng: 19.9}))

		w := env.do(t, http.MethodDelete, "/api/buses/bus-1/position", nil)
		require.Equal(t, http.StatusOK, w.Code)

		v, ok := env.vehicles.GetVehicle("bus-1")
		require.True(t, ok)
		assert.False(t, v.HasPosition)
	})

	t.Run("unknown bus is 404", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodGet, "/api/buses/none", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = env.do(t, http.MethodDelete, "/api/buses/none/position", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("trail exports geojson", func(t *testing.T) {
		env := newTestEnv(t)

		for _, p := range [][2]float64{{50.0, 19.9}, {50.001, 19.9}, {50.002, 19.9}} {
			require.NoError(t, env.vehicles.ApplyFix(context.Background(), "bus-1", "", model.Fix{Lat: p[0], Lng: p[1]}))
		}

		w := env.do(t, http.MethodGet, "/api/buses/bus-1/trail", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "FeatureCollection")
		assert.Contains(t, w.Body.String(), "LineString")
		assert.Contains(t, w.Body.String(), "bus-1")
	})

	t.Run("samples returns ledger rows newest first", func(t *testing.T) {
		env := newTestEnv(t)

		require.NoError(t, env.vehicles.ApplyFix(context.Background(), "bus-1", "", model.Fix{Lat: 50.0, Lng: 19.9}))

		w := env.do(t, http.MethodGet, "/api/buses/bus-1/samples?limit=5", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Samples []*model.PositionSample `json:"samples"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Samples, 1)
		assert.Equal(t, "bus-1", resp.Samples[0].VehicleID)
	})
}

func TestLogEndpoint(t *testing.T) {
	t.Run("returns recorded activity", func(t *testing.T) {
		env := newTestEnv(t)

		env.do(t, http.MethodPut, "/api/buses/bus-1", gin.H{"label": "Route 7"})

		w := env.do(t, http.MethodGet, "/api/logs", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "bus_saved")
	})
}
