package models

import "time"

// EmpathyThresholdEvent records the one-time crossing of the empathy
// threshold for a post. The unique index on PostID is what makes the
// escalation fire exactly once, even if the count later drops below the
// threshold and crosses it again.
//
// NotificationSent is kept for parity with the stored shape; in practice the
// escalation notifications are written inline in the same request that
// creates the event.
type EmpathyThresholdEvent struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	PostID           uint      `gorm:"uniqueIndex;not null" json:"post_id"`
	ThresholdReached int       `gorm:"not null" json:"threshold_reached"`
	NotificationSent bool      `gorm:"default:false" json:"notification_sent"`
	CreatedAt        time.Time `json:"created_at"`
}
