package models

import "time"

// AdminLog is an append-only audit row for administrative actions. Rows are
// never updated or deleted.
type AdminLog struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	AdminID uint `gorm:"index;not null" json:"admin_id"`

	Action     string `gorm:"size:50;not null" json:"action"`      // e.g. "update_status"
	TargetType string `gorm:"size:50;not null" json:"target_type"` // e.g. "post"
	TargetID   uint   `gorm:"not null" json:"target_id"`

	Details string `gorm:"type:text" json:"details"` // JSON payload

	CreatedAt time.Time `json:"created_at"`
}
