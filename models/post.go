package models

import "time"

// Category is the closed set of report kinds a post can carry.
type Category string

const (
	CategoryInconvenience Category = "inconvenience"
	CategorySuggestion    Category = "suggestion"
	CategoryPraise        Category = "praise"
	CategoryChat          Category = "chat"
	CategoryEmergency     Category = "emergency"
)

// Categories lists every valid category, in display order.
var Categories = []Category{
	CategoryInconvenience,
	CategorySuggestion,
	CategoryPraise,
	CategoryChat,
	CategoryEmergency,
}

// ValidCategory reports whether s names a known category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// AdminStatus is the administrative handling state of a post.
//
// The enum suggests pending -> in_progress -> completed | rejected, but no
// transition graph is enforced: any admin may overwrite any status with any
// other at any time.
type AdminStatus string

const (
	StatusPending    AdminStatus = "pending"
	StatusInProgress AdminStatus = "in_progress"
	StatusCompleted  AdminStatus = "completed"
	StatusRejected   AdminStatus = "rejected"
)

// AdminStatuses lists every valid admin status.
var AdminStatuses = []AdminStatus{StatusPending, StatusInProgress, StatusCompleted, StatusRejected}

// ValidAdminStatus reports whether s names a known admin status.
func ValidAdminStatus(s string) bool {
	for _, st := range AdminStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// StatusLabel returns the user-facing label used in status-change notifications.
func StatusLabel(s AdminStatus) string {
	switch s {
	case StatusPending:
		return "검토 대기 중"
	case StatusInProgress:
		return "행정 처리 중"
	case StatusCompleted:
		return "처리 완료"
	case StatusRejected:
		return "반려됨"
	}
	return string(s)
}

// Post is a neighborhood report. EmpathyCount and CommentCount are
// denormalized caches over the empathies/comments tables: empathy is kept
// consistent by recompute-from-ledger, comments by increment with a guarded
// decrement.
type Post struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"index;not null" json:"user_id"`

	Category Category `gorm:"size:32;not null;default:'inconvenience'" json:"category"`
	Title    string   `gorm:"size:100" json:"title"`
	Content  string   `gorm:"size:200;not null" json:"content"`
	Images   string   `gorm:"type:text" json:"images"` // JSON array of URLs, max 3

	Neighborhood string   `gorm:"size:100;index;not null" json:"neighborhood"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`

	EmpathyCount int `gorm:"default:0;index" json:"empathy_count"`
	CommentCount int `gorm:"default:0" json:"comment_count"`

	AdminStatus AdminStatus `gorm:"size:16;default:'pending'" json:"admin_status"`
	AdminNotes  string      `gorm:"type:text" json:"admin_notes"`

	IsAnonymous bool `gorm:"default:false" json:"is_anonymous"`
	IsVisible   bool `gorm:"default:true" json:"is_visible"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Comments []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments"`
}
