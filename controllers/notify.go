package controllers

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

// createNotification writes an inbox row best-effort. Notification failures
// are logged but never surfaced: the mutation that triggered them has
// already succeeded from the caller's point of view.
func createNotification(db *gorm.DB, n models.Notification) {
	if err := db.Create(&n).Error; err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("notification create failed user=%d type=%s err=%v", n.UserID, n.Type, err)
		}
	}
}

// notifyOwner escalates to the site owner: an admin_notice inbox row when an
// owner account exists, plus an email when SMTP and an owner address are
// configured. Both paths are best-effort.
func notifyOwner(db *gorm.DB, title, content string, postID *uint) {
	cfg := config.Get()

	if cfg.OwnerOpenID != "" {
		var owner models.User
		if err := db.Where("open_id = ?", cfg.OwnerOpenID).First(&owner).Error; err == nil {
			createNotification(db, models.Notification{
				UserID:  owner.ID,
				Type:    models.NotificationAdminNotice,
				Title:   title,
				Content: content,
				PostID:  postID,
			})
		}
	}

	if cfg.OwnerEmail != "" && cfg.SMTPHost != "" {
		go func() {
			if err := utils.SendMail(cfg.OwnerEmail, title, content); err != nil {
				if utils.Sugar != nil {
					utils.Sugar.Warnf("owner mail failed: %v", err)
				}
			}
		}()
	}
}

// excerpt truncates user text for notification bodies.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

// postRef formats the standard post reference used in notification bodies.
func postRef(postID uint, content string) string {
	return fmt.Sprintf("게시글 #%d: %s", postID, excerpt(content, 50))
}
