package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

// EmpathyController handles the one-per-user reaction ledger. The post
// counter is always recomputed from the ledger after a mutation so it
// converges to ledger truth even under concurrent writers.
type EmpathyController struct {
	db *gorm.DB
}

func NewEmpathyController(db *gorm.DB) *EmpathyController {
	return &EmpathyController{db: db}
}

// Add inserts an empathy row, refreshes the counter and runs the
// notification pipeline. Duplicate adds fail with CONFLICT.
func (e *EmpathyController) Add(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var post models.Post
	if err := e.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40420, "post not found")
			return
		}
		utils.Internal(ctx, 50030, "failed to get post")
		return
	}

	var existing int64
	if err := e.db.Model(&models.Empathy{}).
		Where("user_id = ? AND post_id = ?", user.ID, post.ID).
		Count(&existing).Error; err != nil {
		utils.Internal(ctx, 50031, "failed to check empathy")
		return
	}
	if existing > 0 {
		utils.Conflict(ctx, 40930, "already empathized")
		return
	}

	empathy := models.Empathy{UserID: user.ID, PostID: post.ID}
	if err := e.db.Create(&empathy).Error; err != nil {
		// The unique index catches the race between check and insert.
		if isDuplicateErr(err) {
			utils.Conflict(ctx, 40930, "already empathized")
			return
		}
		utils.Internal(ctx, 50032, "failed to add empathy")
		return
	}

	count, err := e.refreshCount(post.ID)
	if err != nil {
		utils.Internal(ctx, 50033, "failed to refresh empathy count")
		return
	}

	_ = e.db.Model(&models.User{}).Where("id = ?", post.UserID).
		UpdateColumn("total_empathy", gorm.Expr("total_empathy + 1")).Error

	e.runNotificationPipeline(&post, user, count)

	utils.InvalidateByPrefix(postCachePrefix)
	utils.Success(ctx, gin.H{"empathy_count": count})
}

// Remove deletes the caller's empathy row if present; removing a
// never-added empathy is a no-op.
func (e *EmpathyController) Remove(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var post models.Post
	if err := e.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40420, "post not found")
			return
		}
		utils.Internal(ctx, 50030, "failed to get post")
		return
	}

	res := e.db.Where("user_id = ? AND post_id = ?", user.ID, post.ID).Delete(&models.Empathy{})
	if res.Error != nil {
		utils.Internal(ctx, 50034, "failed to remove empathy")
		return
	}

	count, err := e.refreshCount(post.ID)
	if err != nil {
		utils.Internal(ctx, 50033, "failed to refresh empathy count")
		return
	}

	if res.RowsAffected > 0 {
		_ = e.db.Model(&models.User{}).
			Where("id = ? AND total_empathy > 0", post.UserID).
			UpdateColumn("total_empathy", gorm.Expr("total_empathy - 1")).Error
		utils.InvalidateByPrefix(postCachePrefix)
	}

	utils.Success(ctx, gin.H{"empathy_count": count})
}

// HasEmpathized reports whether the caller has empathized with the post.
func (e *EmpathyController) HasEmpathized(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var count int64
	if err := e.db.Model(&models.Empathy{}).
		Where("user_id = ? AND post_id = ?", user.ID, ctx.Param("id")).
		Count(&count).Error; err != nil {
		utils.Internal(ctx, 50031, "failed to check empathy")
		return
	}
	utils.Success(ctx, gin.H{"has_empathized": count > 0})
}

// GetCount returns the live ledger count for a post. Public.
func (e *EmpathyController) GetCount(ctx *gin.Context) {
	var post models.Post
	if err := e.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40420, "post not found")
			return
		}
		utils.Internal(ctx, 50030, "failed to get post")
		return
	}

	var count int64
	if err := e.db.Model(&models.Empathy{}).Where("post_id = ?", post.ID).Count(&count).Error; err != nil {
		utils.Internal(ctx, 50035, "failed to count empathy")
		return
	}
	utils.Success(ctx, gin.H{"empathy_count": count})
}

// refreshCount recomputes the cached counter from the ledger and overwrites
// it (read-recompute-write, never increment).
func (e *EmpathyController) refreshCount(postID uint) (int, error) {
	var count int64
	if err := e.db.Model(&models.Empathy{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	if err := e.db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("empathy_count", count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// runNotificationPipeline applies the escalation and sampling rules after a
// successful empathy add. Everything here is best-effort.
func (e *EmpathyController) runNotificationPipeline(post *models.Post, actor *models.User, count int) {
	threshold := config.Get().EmpathyThreshold

	if count == threshold {
		event := models.EmpathyThresholdEvent{
			PostID:           post.ID,
			ThresholdReached: threshold,
			NotificationSent: true,
		}
		// The unique index on post_id makes this one-shot: a second
		// crossing fails the insert and skips the escalation.
		if err := e.db.Create(&event).Error; err == nil {
			createNotification(e.db, models.Notification{
				UserID:  post.UserID,
				Type:    models.NotificationThresholdReached,
				Title:   "공감 임계치 도달",
				Content: fmt.Sprintf("%s — 공감 %d개를 받아 행정 검토 대상이 되었습니다.", postRef(post.ID, post.Content), threshold),
				PostID:  &post.ID,
			})
			notifyOwner(e.db,
				"공감 임계치 도달",
				fmt.Sprintf("%s — 공감 %d개 도달, 검토가 필요합니다. (동네: %s)", postRef(post.ID, post.Content), threshold, post.Neighborhood),
				&post.ID)
		}
	}

	// Sampling rule: early reactions and every tenth one after that.
	if (count%10 == 0 || count <= 3) && post.UserID != actor.ID {
		createNotification(e.db, models.Notification{
			UserID:  post.UserID,
			Type:    models.NotificationEmpathyOnPost,
			Title:   "공감 알림",
			Content: fmt.Sprintf("%s — 지금까지 %d명이 공감했습니다.", postRef(post.ID, post.Content), count),
			PostID:  &post.ID,
		})
	}
}

// isDuplicateErr detects unique-constraint violations across drivers.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
