package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the two-valued access level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a resident account. Rows are created on first OAuth login
// and never hard-deleted. The Total* columns are denormalized lifetime
// counters maintained best-effort by post/comment/empathy side effects.
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OpenID      string `gorm:"size:64;uniqueIndex;not null" json:"open_id"`
	Name        string `gorm:"size:255" json:"name"`
	Email       string `gorm:"size:320" json:"email"`
	LoginMethod string `gorm:"size:64" json:"login_method"`
	Role        Role   `gorm:"size:16;default:'user'" json:"role"`

	Nickname     string `gorm:"size:50" json:"nickname"`
	ProfileImage string `gorm:"size:512" json:"profile_image"`
	Bio          string `gorm:"type:text" json:"bio"`

	Neighborhood         string   `gorm:"size:100" json:"neighborhood"`
	Latitude             *float64 `json:"latitude"`
	Longitude            *float64 `json:"longitude"`
	NeighborhoodVerified bool     `gorm:"default:false" json:"neighborhood_verified"`

	TotalPosts    int `gorm:"default:0" json:"total_posts"`
	TotalEmpathy  int `gorm:"default:0" json:"total_empathy"`
	TotalComments int `gorm:"default:0" json:"total_comments"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastSignedIn time.Time `json:"last_signed_in"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName returns the name shown next to user-authored content.
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	if u.Name != "" {
		return u.Name
	}
	return "익명"
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.LastSignedIn.IsZero() {
		u.LastSignedIn = now
	}
	u.UpdatedAt = now
	return nil
}
