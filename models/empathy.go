package models

import "time"

// Empathy is a one-per-user reaction to a post. The composite unique index
// is what makes a duplicate add fail instead of double counting.
type Empathy struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uniq_empathy_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:uniq_empathy_user_post;index" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
