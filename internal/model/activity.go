package model

import "time"

// ActivityEntry is one row of the append-only activity log shown on the
// admin dashboard. Entries are never updated or deleted.
type ActivityEntry struct {
	ID      string    `gorm:"primaryKey" json:"id"`
	Action  string    `gorm:"size:64;not null" json:"action"`
	ActorID string    `gorm:"size:64;index" json:"actor_id"`
	Meta    string    `gorm:"type:text" json:"meta"`
	TS      time.Time `gorm:"column:ts;index" json:"ts"`
}

// TableName overrides the table name
func (ActivityEntry) TableName() string {
	return "activity_entries"
}
