package model

import "time"

// User roles
const (
	RoleUser   = "user"
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

// User is the identity record kept alongside the identity provider's
// account, keyed by the provider uid.
type User struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"size:255;index" json:"email"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	Role        string    `gorm:"size:16;not null;default:user" json:"role"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}
