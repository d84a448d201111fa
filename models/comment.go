package models

import "time"

// Comment is a reply to a post. Deletion is author-only and must decrement
// the parent post's comment counter.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"index;not null" json:"post_id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Content     string    `gorm:"size:500;not null" json:"content"`
	IsAnonymous bool      `gorm:"default:false" json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
