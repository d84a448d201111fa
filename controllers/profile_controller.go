package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

const maxNicknameLen = 50

// ProfileController handles the caller's own profile.
type ProfileController struct {
	db *gorm.DB
}

func NewProfileController(db *gorm.DB) *ProfileController {
	return &ProfileController{db: db}
}

// GetMe returns the caller's full profile row.
func (p *ProfileController) GetMe(ctx *gin.Context) {
	utils.Success(ctx, middleware.CurrentUser(ctx))
}

type updateProfileRequest struct {
	Nickname             *string  `json:"nickname"`
	Bio                  *string  `json:"bio"`
	ProfileImage         *string  `json:"profile_image"`
	Neighborhood         *string  `json:"neighborhood"`
	Latitude             *float64 `json:"latitude"`
	Longitude            *float64 `json:"longitude"`
	NeighborhoodVerified *bool    `json:"neighborhood_verified"`
}

// Update applies a partial profile update; absent fields stay untouched.
func (p *ProfileController) Update(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var req updateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, 40050, "invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if req.Nickname != nil {
		nickname := utils.Sanitize(strings.TrimSpace(*req.Nickname))
		if len([]rune(nickname)) > maxNicknameLen {
			utils.BadRequest(ctx, 40051, "nickname too long")
			return
		}
		updates["nickname"] = nickname
	}
	if req.Bio != nil {
		updates["bio"] = utils.Sanitize(*req.Bio)
	}
	if req.ProfileImage != nil {
		updates["profile_image"] = strings.TrimSpace(*req.ProfileImage)
	}
	if req.Neighborhood != nil {
		updates["neighborhood"] = strings.TrimSpace(*req.Neighborhood)
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.NeighborhoodVerified != nil {
		updates["neighborhood_verified"] = *req.NeighborhoodVerified
	}

	if len(updates) == 0 {
		utils.Success(ctx, user)
		return
	}

	if err := p.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		utils.Internal(ctx, 50050, "failed to update profile")
		return
	}

	var fresh models.User
	if err := p.db.First(&fresh, user.ID).Error; err != nil {
		utils.Internal(ctx, 50051, "failed to reload profile")
		return
	}
	utils.Success(ctx, fresh)
}

// GetStats computes live engagement aggregates from the ledger tables
// instead of trusting the denormalized columns on the user row.
func (p *ProfileController) GetStats(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var totalPosts int64
	if err := p.db.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&totalPosts).Error; err != nil {
		utils.Internal(ctx, 50052, "failed to compute stats")
		return
	}

	var totalEmpathy int64
	if err := p.db.Model(&models.Empathy{}).
		Joins("JOIN posts ON posts.id = empathies.post_id").
		Where("posts.user_id = ?", user.ID).
		Count(&totalEmpathy).Error; err != nil {
		utils.Internal(ctx, 50052, "failed to compute stats")
		return
	}

	var totalComments int64
	if err := p.db.Model(&models.Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("posts.user_id = ?", user.ID).
		Count(&totalComments).Error; err != nil {
		utils.Internal(ctx, 50052, "failed to compute stats")
		return
	}

	utils.Success(ctx, gin.H{
		"total_posts":    totalPosts,
		"total_empathy":  totalEmpathy,
		"total_comments": totalComments,
	})
}
