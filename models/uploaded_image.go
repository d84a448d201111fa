package models

import "time"

// UploadedImage records every image stored through the upload endpoint, so
// attachments remain traceable to the uploading user.
type UploadedImage struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UserID   uint   `gorm:"index;not null" json:"user_id"`
	Key      string `gorm:"size:255;not null" json:"key"` // e.g. posts/<uuid>.jpg
	URL      string `gorm:"size:1024;not null" json:"url"`
	MimeType string `gorm:"size:64" json:"mime_type"`
	Size     int64  `json:"size"`

	CreatedAt time.Time `json:"created_at"`
}
