package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"bustrack/internal/model"
	"bustrack/internal/service/vehicle"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// VehicleView is the wire shape observers consume: just enough to place
// and label a marker. The rendering collaborator owns all animation.
type VehicleView struct {
	VehicleID string    `json:"vehicle_id"`
	Label     string    `json:"label"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Active    bool      `json:"active"`
	LastSeen  time.Time `json:"last_seen"`
}

// Message is one websocket frame. Snapshot is sent once on connect;
// update and status follow vehicle changes; remove tells the observer to
// tear down the marker, not leave it showing stale data.
type Message struct {
	Type      string        `json:"type"`
	VehicleID string        `json:"vehicle_id,omitempty"`
	Vehicle   *VehicleView  `json:"vehicle,omitempty"`
	Vehicles  []VehicleView `json:"vehicles,omitempty"`
	Active    bool          `json:"active"`
}

// Hub relays the vehicle change feed to websocket observers
type Hub struct {
	svc *vehicle.VehicleService

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	cancel func()
}

// NewHub creates a hub over the vehicle service
func NewHub(svc *vehicle.VehicleService) *Hub {
	return &Hub{
		svc:     svc,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Start subscribes the hub to the change feed and begins relaying
func (h *Hub) Start() {
	events, cancel := h.svc.Subscribe()
	h.cancel = cancel

	go func() {
		for ev := range events {
			h.broadcast(h.toMessage(ev))
		}
	}()

	log.Println("Observer hub started")
}

// Stop unsubscribes from the feed; connected clients are closed
func (h *Hub) Stop() {
	if h.cancel != nil {
		h.cancel()
	}

	h.mu.Lock()
	for c := range h.clients {
		c.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
}

func (h *Hub) toMessage(ev vehicle.Event) Message {
	switch ev.Type {
	case vehicle.EventRemove:
		return Message{Type: "remove", VehicleID: ev.VehicleID}
	case vehicle.EventStatus:
		return Message{Type: "status", VehicleID: ev.VehicleID, Active: ev.Active}
	default:
		view := h.view(ev.Vehicle)
		return Message{Type: "update", VehicleID: ev.VehicleID, Vehicle: &view, Active: view.Active}
	}
}

func (h *Hub) view(v *model.Vehicle) VehicleView {
	return VehicleView{
		VehicleID: v.ID,
		Label:     v.Label,
		Lat:       v.Lat,
		Lng:       v.Lng,
		Active:    h.svc.IsActive(v, time.Now()),
		LastSeen:  v.LastSeen,
	}
}

// HandleWebSocket upgrades the connection, replays the current snapshot
// so the observer can draw the map immediately, and registers the client
// for subsequent events.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}

	// Snapshot and registration happen under the broadcast lock, so an
	// event published while the snapshot is being written cannot be lost
	// in between
	h.mu.Lock()
	snapshot := h.snapshot()
	if err := h.write(conn, Message{Type: "snapshot", Vehicles: snapshot}); err != nil {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.readPump(conn)
}

func (h *Hub) snapshot() []VehicleView {
	vehicles := h.svc.ListVehicles()
	views := make([]VehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		if !v.HasPosition {
			continue
		}
		views = append(views, h.view(v))
	}
	return views
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	h.mu.Lock()
	for c := range h.clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			c.Close()
			delete(h.clients, c)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(c *websocket.Conn) {
	defer func() {
		h.remove(c)
		_ = c.Close()
	}()
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) write(c *websocket.Conn, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

// ClientCount returns the number of connected observers
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
