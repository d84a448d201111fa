package controllers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

// AdminController handles the administrative status workflow. Any admin may
// write any status over any other at any time; there is deliberately no
// transition graph.
type AdminController struct {
	db *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

type updateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// UpdatePostStatus overwrites a post's admin status, appends an audit row
// and notifies the author. The role check runs before any mutation.
func (a *AdminController) UpdatePostStatus(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	if !user.IsAdmin() {
		utils.Forbidden(ctx, 40360, "admin role required")
		return
	}

	var req updateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, 40060, "invalid request payload")
		return
	}
	if !models.ValidAdminStatus(req.Status) {
		utils.BadRequest(ctx, 40061, "unknown status")
		return
	}

	var post models.Post
	if err := a.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40420, "post not found")
			return
		}
		utils.Internal(ctx, 50060, "failed to get post")
		return
	}

	oldStatus := post.AdminStatus
	newStatus := models.AdminStatus(req.Status)

	updates := map[string]interface{}{"admin_status": newStatus}
	if req.Notes != nil {
		updates["admin_notes"] = utils.Sanitize(*req.Notes)
	}
	if err := a.db.Model(&post).Updates(updates).Error; err != nil {
		utils.Internal(ctx, 50061, "failed to update status")
		return
	}

	details, _ := json.Marshal(map[string]interface{}{
		"old_status": oldStatus,
		"new_status": newStatus,
		"notes":      req.Notes,
	})
	if err := a.db.Create(&models.AdminLog{
		AdminID:    user.ID,
		Action:     "update_status",
		TargetType: "post",
		TargetID:   post.ID,
		Details:    string(details),
	}).Error; err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Errorf("admin log append failed post=%d err=%v", post.ID, err)
		}
	}

	createNotification(a.db, models.Notification{
		UserID:  post.UserID,
		Type:    models.NotificationPostStatusChanged,
		Title:   "게시글 상태 변경",
		Content: fmt.Sprintf("%s — 처리 상태가 '%s'(으)로 변경되었습니다.", postRef(post.ID, post.Content), models.StatusLabel(newStatus)),
		PostID:  &post.ID,
	})

	utils.InvalidateByPrefix(postCachePrefix)
	utils.Success(ctx, gin.H{
		"post_id":    post.ID,
		"old_status": oldStatus,
		"new_status": newStatus,
	})
}
