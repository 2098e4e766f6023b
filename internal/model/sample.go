package model

import "time"

// PositionSample is one row of the append-only history ledger. Rows are
// immutable once written; retention and cleanup are handled elsewhere.
type PositionSample struct {
	ID        string `gorm:"primaryKey" json:"id"`
	VehicleID string `gorm:"size:64;not null;index:idx_samples_vehicle_captured,priority:1" json:"vehicle_id"`
	DriverID  string `gorm:"size:64" json:"driver_id"`

	Lat      float64  `gorm:"not null" json:"lat"`
	Lng      float64  `gorm:"not null" json:"lng"`
	Accuracy *float64 `json:"accuracy"`
	Speed    *float64 `json:"speed"`
	Heading  *float64 `json:"heading"`

	// DistanceM is the great-circle distance in meters from the previous
	// sample of the same vehicle, 0 for the first.
	DistanceM float64 `json:"distance_m"`

	CapturedAt time.Time `gorm:"index:idx_samples_vehicle_captured,priority:2" json:"captured_at"`
	RecordedAt time.Time `gorm:"not null" json:"recorded_at"`
}

// TableName overrides the table name
func (PositionSample) TableName() string {
	return "position_samples"
}
