package model

import (
	"time"

	"gorm.io/gorm"
)

// Driver is a roster entry created by an admin. UserID stays empty until
// the driver registers with their invite code; VehicleID is a weak
// reference, the vehicle does not own the driver lifecycle.
type Driver struct {
	ID         string `gorm:"primaryKey" json:"id"`
	FullName   string `gorm:"size:255" json:"full_name"`
	Contact    string `gorm:"size:64" json:"contact"`
	Email      string `gorm:"size:255" json:"email"`
	InviteCode string `gorm:"size:32;uniqueIndex;not null" json:"invite_code"`
	UserID     string `gorm:"size:64;index" json:"user_id"`
	VehicleID  string `gorm:"size:64;index" json:"vehicle_id"`

	LinkedAt  *time.Time     `json:"linked_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName overrides the table name
func (Driver) TableName() string {
	return "drivers"
}
