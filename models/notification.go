package models

import "time"

// NotificationType enumerates the five system-generated alert kinds.
type NotificationType string

const (
	NotificationCommentOnPost     NotificationType = "comment_on_post"
	NotificationEmpathyOnPost     NotificationType = "empathy_on_post"
	NotificationPostStatusChanged NotificationType = "post_status_changed"
	NotificationThresholdReached  NotificationType = "empathy_threshold_reached"
	NotificationAdminNotice       NotificationType = "admin_notice"
)

// Notification is a per-user inbox entry. Rows are written only by server
// side effects, never directly by a client call, and are mutated only by the
// mark-read operations.
type Notification struct {
	ID     uint             `gorm:"primaryKey" json:"id"`
	UserID uint             `gorm:"index;not null" json:"user_id"`
	Type   NotificationType `gorm:"size:32;not null" json:"type"`

	Title   string `gorm:"size:100;not null" json:"title"`
	Content string `gorm:"type:text" json:"content"`

	PostID    *uint `json:"post_id"`
	CommentID *uint `json:"comment_id"`

	IsRead    bool      `gorm:"default:false;index" json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
