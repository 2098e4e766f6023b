package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bustrack/internal/model"
	"bustrack/internal/service/vehicle"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLedger struct{}

func (nopLedger) Append(ctx context.Context, sample *model.PositionSample) error { return nil }
func (nopLedger) Recent(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error) {
	return nil, nil
}
func (nopLedger) Trail(ctx context.Context, vehicleID string, limit int) ([]*model.PositionSample, error) {
	return nil, nil
}

func TestToMessage(t *testing.T) {
	svc := vehicle.NewVehicleService(nopLedger{})
	h := NewHub(svc)

	t.Run("update carries the marker view", func(t *testing.T) {
		v := &model.Vehicle{ID: "bus-1", Label: "Route 7", Lat: 50.0, Lng: 19.9, LastSeen: time.Now()}
		msg := h.toMessage(vehicle.Event{Type: vehicle.EventUpdate, VehicleID: "bus-1", Vehicle: v})

		assert.Equal(t, "update", msg.Type)
		require.NotNil(t, msg.Vehicle)
		assert.Equal(t, "Route 7", msg.Vehicle.Label)
		assert.Equal(t, 50.0, msg.Vehicle.Lat)
		assert.True(t, msg.Vehicle.Active)
	})

	t.Run("remove tears the marker down", func(t *testing.T) {
		msg := h.toMessage(vehicle.Event{Type: vehicle.EventRemove, VehicleID: "bus-1"})
		assert.Equal(t, "remove", msg.Type)
		assert.Equal(t, "bus-1", msg.VehicleID)
		assert.Nil(t, msg.Vehicle)
	})

	t.Run("status reports the liveness flip", func(t *testing.T) {
		msg := h.toMessage(vehicle.Event{Type: vehicle.EventStatus, VehicleID: "bus-1", Active: false})
		assert.Equal(t, "status", msg.Type)
		assert.False(t, msg.Active)
	})
}

func TestSnapshot(t *testing.T) {
	t.Run("skips vehicles without a position", func(t *testing.T) {
		svc := vehicle.NewVehicleService(nopLedger{})

		require.NoError(t, svc.ApplyFix(context.Background(), "bus-1", "", model.Fix{Lat: 50.0, Lng: 19.9, CapturedAt: time.Now()}))
		label := "Route 12"
		_, err := svc.UpsertVehicle("bus-2", vehicle.VehiclePatch{Label: &label})
		require.NoError(t, err)

		h := NewHub(svc)
		views := h.snapshot()
		require.Len(t, views, 1)
		assert.Equal(t, "bus-1", views[0].VehicleID)
	})
}

func TestHandleWebSocket(t *testing.T) {
	t.Run("nothing published after the snapshot is lost", func(t *testing.T) {
		svc := vehicle.NewVehicleService(nopLedger{})
		require.NoError(t, svc.ApplyFix(context.Background(), "bus-1", "", model.Fix{Lat: 50.0, Lng: 19.9, CapturedAt: time.Now()}))

		h := NewHub(svc)
		h.Start()
		defer h.Stop()

		srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
		defer srv.Close()

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		var snap Message
		require.NoError(t, conn.ReadJSON(&snap))
		require.Equal(t, "snapshot", snap.Type)
		require.Len(t, snap.Vehicles, 1)

		// Registration is complete once the snapshot frame is out, so an
		// update published now must reach the client
		require.NoError(t, svc.ApplyFix(context.Background(), "bus-2", "", model.Fix{Lat: 50.1, Lng: 19.8, CapturedAt: time.Now()}))

		var update Message
		require.NoError(t, conn.ReadJSON(&update))
		assert.Equal(t, "update", update.Type)
		assert.Equal(t, "bus-2", update.VehicleID)
	})
}
