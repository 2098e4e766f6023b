package model

import (
	"time"

	"gorm.io/gorm"
)

// Fix is one raw geolocation reading reported by a device sensor.
// Accuracy, Speed and Heading are nil when the sensor did not report them;
// nil is persisted as an explicit null so readers can tell "not reported"
// from "not yet set".
type Fix struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Accuracy   *float64  `json:"accuracy"`
	Speed      *float64  `json:"speed"`
	Heading    *float64  `json:"heading"`
	CapturedAt time.Time `json:"captured_at"`
}

// VehiclePG model for PostgreSQL storage
type VehiclePG struct {
	ID       string `gorm:"primaryKey"`
	Label    string `gorm:"size:255"`
	DriverID string `gorm:"size:64;index"`

	HasPosition bool `gorm:"not null;default:false"`
	Lat         float64
	Lng         float64
	Accuracy    *float64
	Speed       *float64
	Heading     *float64
	CapturedAt  time.Time

	LastSeen  time.Time      `gorm:"column:last_seen;index"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// TableName overrides the table name
func (VehiclePG) TableName() string {
	return "vehicles"
}

// VehicleRedis is the light representation stored as JSON in Redis.
// It carries only the fields the ingestion path mutates.
type VehicleRedis struct {
	ID          string    `json:"id"`
	HasPosition bool      `json:"has_position"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Accuracy    *float64  `json:"accuracy"`
	Speed       *float64  `json:"speed"`
	Heading     *float64  `json:"heading"`
	CapturedAt  time.Time `json:"captured_at"`
	LastSeen    time.Time `json:"last_seen"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Vehicle is the in-memory model, one per physical bus. The ID is an
// externally assigned key; Label is the human-facing bus number.
type Vehicle struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	DriverID string `json:"driver_id"`

	HasPosition bool      `json:"has_position"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	Accuracy    *float64  `json:"accuracy"`
	Speed       *float64  `json:"speed"`
	Heading     *float64  `json:"heading"`
	CapturedAt  time.Time `json:"captured_at"`

	// LastSeen is set from the service clock on every accepted write,
	// whether or not the position changed.
	LastSeen time.Time `json:"last_seen"`

	UpdatedAt time.Time      `json:"updated_at"`
	CreatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `json:"-"`
}

// Clone returns a copy so observers never share the registry's instance.
func (v *Vehicle) Clone() *Vehicle {
	c := *v
	return &c
}

// ToRedis strips the vehicle down to the fields the ingestion path mutates.
func (v *Vehicle) ToRedis() *VehicleRedis {
	return &VehicleRedis{
		ID:          v.ID,
		HasPosition: v.HasPosition,
		Lat:         v.Lat,
		Lng:         v.Lng,
		Accuracy:    v.Accuracy,
		Speed:       v.Speed,
		Heading:     v.Heading,
		CapturedAt:  v.CapturedAt,
		LastSeen:    v.LastSeen,
		UpdatedAt:   v.UpdatedAt,
	}
}

// ToPG converts the in-memory model to the PostgreSQL model.
func (v *Vehicle) ToPG() *VehiclePG {
	return &VehiclePG{
		ID:          v.ID,
		Label:       v.Label,
		DriverID:    v.DriverID,
		HasPosition: v.HasPosition,
		Lat:         v.Lat,
		Lng:         v.Lng,
		Accuracy:    v.Accuracy,
		Speed:       v.Speed,
		Heading:     v.Heading,
		CapturedAt:  v.CapturedAt,
		LastSeen:    v.LastSeen,
		UpdatedAt:   v.UpdatedAt,
		CreatedAt:   v.CreatedAt,
		DeletedAt:   v.DeletedAt,
	}
}

// VehicleFromPG creates a Vehicle from VehiclePG
func VehicleFromPG(pg *VehiclePG) *Vehicle {
	return &Vehicle{
		ID:          pg.ID,
		Label:       pg.Label,
		DriverID:    pg.DriverID,
		HasPosition: pg.HasPosition,
		Lat:         pg.Lat,
		Lng:         pg.Lng,
		Accuracy:    pg.Accuracy,
		Speed:       pg.Speed,
		Heading:     pg.Heading,
		CapturedAt:  pg.CapturedAt,
		LastSeen:    pg.LastSeen,
		UpdatedAt:   pg.UpdatedAt,
		CreatedAt:   pg.CreatedAt,
		DeletedAt:   pg.DeletedAt,
	}
}

// VehicleFromRedis creates a Vehicle from the Redis representation.
// Fields not stored in Redis (Label, DriverID, CreatedAt) are zero and
// must be filled in from the PostgreSQL copy by the caller.
func VehicleFromRedis(r *VehicleRedis) *Vehicle {
	return &Vehicle{
		ID:          r.ID,
		HasPosition: r.HasPosition,
		Lat:         r.Lat,
		Lng:         r.Lng,
		Accuracy:    r.Accuracy,
		Speed:       r.Speed,
		Heading:     r.Heading,
		CapturedAt:  r.CapturedAt,
		LastSeen:    r.LastSeen,
		UpdatedAt:   r.UpdatedAt,
	}
}
