package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

const maxCommentContentLen = 500

// CommentController handles replies under a post. The parent post's
// comment_count is incremented on create and guarded-decremented on delete,
// never recomputed.
type CommentController struct {
	db *gorm.DB
}

func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

type createCommentRequest struct {
	Content     string `json:"content" binding:"required"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// Create adds a comment to a post and notifies the post author.
func (c *CommentController) Create(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var req createCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, 40021, "invalid request payload")
		return
	}
	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if content == "" {
		utils.BadRequest(ctx, 40022, "content is required")
		return
	}
	if len([]rune(content)) > maxCommentContentLen {
		utils.BadRequest(ctx, 40023, fmt.Sprintf("content exceeds %d characters", maxCommentContentLen))
		return
	}

	var post models.Post
	if err := c.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40420, "post not found")
			return
		}
		utils.Internal(ctx, 50020, "failed to get post")
		return
	}

	comment := models.Comment{
		PostID:      post.ID,
		UserID:      user.ID,
		Content:     content,
		IsAnonymous: req.IsAnonymous,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Internal(ctx, 50021, "failed to create comment")
		return
	}

	// Increment, not recompute: delete is the only other mutator and it
	// decrements symmetrically.
	_ = c.db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	_ = c.db.Model(&models.User{}).Where("id = ?", post.UserID).
		UpdateColumn("total_comments", gorm.Expr("total_comments + 1")).Error

	if post.UserID != user.ID {
		commenter := user.DisplayName()
		if req.IsAnonymous {
			commenter = "익명"
		}
		createNotification(c.db, models.Notification{
			UserID:    post.UserID,
			Type:      models.NotificationCommentOnPost,
			Title:     "댓글 알림",
			Content:   fmt.Sprintf("%s님이 댓글을 남겼습니다: %s", commenter, excerpt(content, 50)),
			PostID:    &post.ID,
			CommentID: &comment.ID,
		})
	}

	// Whole prefix, not just the detail key: cached feed pages carry
	// comment_count too.
	utils.InvalidateByPrefix(postCachePrefix)
	comment.User = *user
	utils.Success(ctx, maskAnonymousComment(comment))
}

// List returns all comments for a post, oldest first.
func (c *CommentController) List(ctx *gin.Context) {
	var post models.Post
	if err := c.db.First(&post, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40420, "post not found")
			return
		}
		utils.Internal(ctx, 50020, "failed to get post")
		return
	}

	comments := make([]models.Comment, 0)
	if err := c.db.Where("post_id = ?", post.ID).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Internal(ctx, 50022, "failed to list comments")
		return
	}

	ids := make([]uint, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.UserID)
	}
	var users []models.User
	byID := map[uint]models.User{}
	if err := c.db.Where("id IN ?", utils.UniqueUint(ids)).Find(&users).Error; err == nil {
		for _, u := range users {
			byID[u.ID] = u
		}
	}
	out := make([]models.Comment, 0, len(comments))
	for _, cm := range comments {
		cm.User = byID[cm.UserID]
		out = append(out, maskAnonymousComment(cm))
	}
	utils.Success(ctx, out)
}

// Delete removes the caller's own comment and decrements the parent
// counter, guarded to never go below zero.
func (c *CommentController) Delete(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var comment models.Comment
	if err := c.db.First(&comment, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40421, "comment not found")
			return
		}
		utils.Internal(ctx, 50023, "failed to get comment")
		return
	}

	if comment.UserID != user.ID {
		utils.Forbidden(ctx, 40320, "only the author can delete a comment")
		return
	}

	if err := c.db.Delete(&models.Comment{}, comment.ID).Error; err != nil {
		utils.Internal(ctx, 50024, "failed to delete comment")
		return
	}

	_ = c.db.Model(&models.Post{}).
		Where("id = ? AND comment_count > 0", comment.PostID).
		UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error

	utils.InvalidateByPrefix(postCachePrefix)
	utils.Success(ctx, gin.H{"deleted": true})
}
