package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

// NotificationController exposes the per-user inbox. Rows are created only
// by server side effects; the only client mutations are the mark-read
// operations, always scoped to the recipient.
type NotificationController struct {
	db *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{db: db}
}

// List returns the caller's notifications, newest first.
func (n *NotificationController) List(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	limit, offset := pageParams(ctx)

	items := make([]models.Notification, 0)
	if err := n.db.Where("user_id = ?", user.ID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		utils.Internal(ctx, 50040, "failed to list notifications")
		return
	}

	var unread int64
	_ = n.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).Count(&unread).Error

	utils.Success(ctx, gin.H{"items": items, "unread_count": unread})
}

// MarkRead flags one of the caller's notifications as read. A notification
// belonging to someone else is indistinguishable from a missing one.
func (n *NotificationController) MarkRead(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var notif models.Notification
	err := n.db.Where("id = ? AND user_id = ?", ctx.Param("id"), user.ID).First(&notif).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40440, "notification not found")
			return
		}
		utils.Internal(ctx, 50041, "failed to get notification")
		return
	}

	if !notif.IsRead {
		if err := n.db.Model(&notif).UpdateColumn("is_read", true).Error; err != nil {
			utils.Internal(ctx, 50042, "failed to mark notification read")
			return
		}
	}
	utils.Success(ctx, gin.H{"read": true})
}

// MarkAllRead flags every unread notification of the caller as read.
func (n *NotificationController) MarkAllRead(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	res := n.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		UpdateColumn("is_read", true)
	if res.Error != nil {
		utils.Internal(ctx, 50043, "failed to mark notifications read")
		return
	}
	utils.Success(ctx, gin.H{"updated": res.RowsAffected})
}
