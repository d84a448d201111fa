package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

const (
	maxPostContentLen = 200
	maxPostTitleLen   = 100
	maxPostImages     = 3

	defaultFeedLimit = 20
	maxFeedLimit     = 100

	postCachePrefix = "cache:posts:"
)

// PostController handles the report CRUD and feed endpoints.
type PostController struct {
	db *gorm.DB
}

func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

type createPostRequest struct {
	Category     string   `json:"category" binding:"required"`
	Title        string   `json:"title"`
	Content      string   `json:"content" binding:"required"`
	Images       []string `json:"images"`
	Neighborhood string   `json:"neighborhood" binding:"required"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	IsAnonymous  bool     `json:"is_anonymous"`
}

// Create inserts a new post authored by the current user.
func (p *PostController) Create(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var req createPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, 40010, "invalid request payload")
		return
	}

	if !models.ValidCategory(req.Category) {
		utils.BadRequest(ctx, 40011, "unknown category")
		return
	}
	if len([]rune(req.Content)) > maxPostContentLen {
		utils.BadRequest(ctx, 40012, fmt.Sprintf("content exceeds %d characters", maxPostContentLen))
		return
	}
	if len([]rune(req.Title)) > maxPostTitleLen {
		utils.BadRequest(ctx, 40013, fmt.Sprintf("title exceeds %d characters", maxPostTitleLen))
		return
	}
	if len(req.Images) > maxPostImages {
		utils.BadRequest(ctx, 40014, fmt.Sprintf("at most %d images", maxPostImages))
		return
	}

	imagesJSON := "[]"
	if len(req.Images) > 0 {
		b, err := json.Marshal(req.Images)
		if err != nil {
			utils.BadRequest(ctx, 40015, "invalid images")
			return
		}
		imagesJSON = string(b)
	}

	post := models.Post{
		UserID:       user.ID,
		Category:     models.Category(req.Category),
		Title:        utils.Sanitize(strings.TrimSpace(req.Title)),
		Content:      utils.Sanitize(strings.TrimSpace(req.Content)),
		Images:       imagesJSON,
		Neighborhood: strings.TrimSpace(req.Neighborhood),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		AdminStatus:  models.StatusPending,
		IsAnonymous:  req.IsAnonymous,
		IsVisible:    true,
	}
	if post.Content == "" {
		utils.BadRequest(ctx, 40012, "content is required")
		return
	}

	if err := p.db.Create(&post).Error; err != nil {
		utils.Internal(ctx, 50010, "failed to create post")
		return
	}

	// Lifetime counter on the author row is best-effort.
	_ = p.db.Model(&models.User{}).Where("id = ?", user.ID).
		UpdateColumn("total_posts", gorm.Expr("total_posts + 1")).Error

	utils.InvalidateByPrefix(postCachePrefix)
	utils.Success(ctx, gin.H{"post_id": post.ID})
}

// GetPost returns a post and all of its comments.
func (p *PostController) GetPost(ctx *gin.Context) {
	idStr := ctx.Param("id")
	if _, err := strconv.Atoi(idStr); err != nil {
		utils.BadRequest(ctx, 40016, "invalid post id")
		return
	}

	cacheKey := postCachePrefix + "detail:" + idStr
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var post models.Post
	if err := p.db.First(&post, idStr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(ctx, 40420, "post not found")
			return
		}
		utils.Internal(ctx, 50011, "failed to get post")
		return
	}

	comments := make([]models.Comment, 0)
	if err := p.db.Where("post_id = ?", post.ID).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Internal(ctx, 50012, "failed to get comments")
		return
	}

	// Batch-load every author once instead of per-row preloads.
	ids := []uint{post.UserID}
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	authors := map[uint]models.User{}
	var users []models.User
	if err := p.db.Where("id IN ?", utils.UniqueUint(ids)).Find(&users).Error; err == nil {
		for _, u := range users {
			authors[u.ID] = u
		}
	}
	post.User = authors[post.UserID]
	for i := range comments {
		comments[i].User = authors[comments[i].UserID]
	}
	post.Comments = comments

	payload := maskAnonymousPost(post)

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, 5*time.Minute)
	utils.Success(ctx, payload)
}

// List returns the neighborhood feed with scope-prefix filtering.
func (p *PostController) List(ctx *gin.Context) {
	neighborhood := strings.TrimSpace(ctx.Query("neighborhood"))
	if neighborhood == "" {
		utils.BadRequest(ctx, 40017, "neighborhood is required")
		return
	}
	scope := ctx.DefaultQuery("scope", "neighborhood")
	prefix, ok := scopePrefix(neighborhood, scope)
	if !ok {
		utils.BadRequest(ctx, 40018, "unknown scope")
		return
	}
	category := ctx.Query("category")
	if category != "" && !models.ValidCategory(category) {
		utils.BadRequest(ctx, 40011, "unknown category")
		return
	}
	sortBy := ctx.DefaultQuery("sortBy", "recent")
	limit, offset := pageParams(ctx)

	cacheKey := fmt.Sprintf("%sfeed:%s:%s:%s:%s:%d:%d", postCachePrefix, prefix, scope, category, sortBy, limit, offset)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	q := p.db.Model(&models.Post{}).
		Where("is_visible = ?", true).
		Where("neighborhood LIKE ?", prefix+"%")
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var posts []models.Post
	if err := q.Order(orderClause(sortBy)).Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		utils.Internal(ctx, 50013, "failed to list posts")
		return
	}
	p.attachAuthors(posts)

	payload := maskAnonymousPosts(posts)
	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, time.Minute)
	utils.Success(ctx, payload)
}

// GetByBounds returns visible posts inside a lat/lng bounding box.
func (p *PostController) GetByBounds(ctx *gin.Context) {
	north, err1 := strconv.ParseFloat(ctx.Query("north"), 64)
	south, err2 := strconv.ParseFloat(ctx.Query("south"), 64)
	east, err3 := strconv.ParseFloat(ctx.Query("east"), 64)
	west, err4 := strconv.ParseFloat(ctx.Query("west"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		utils.BadRequest(ctx, 40019, "north, south, east and west are required numbers")
		return
	}
	category := ctx.Query("category")
	if category != "" && !models.ValidCategory(category) {
		utils.BadRequest(ctx, 40011, "unknown category")
		return
	}
	sortBy := ctx.DefaultQuery("sortBy", "recent")
	limit, _ := pageParams(ctx)

	q := p.db.Model(&models.Post{}).
		Where("is_visible = ?", true).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Where("latitude BETWEEN ? AND ?", south, north).
		Where("longitude BETWEEN ? AND ?", west, east)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var posts []models.Post
	if err := q.Order(orderClause(sortBy)).Limit(limit).Find(&posts).Error; err != nil {
		utils.Internal(ctx, 50014, "failed to list posts by bounds")
		return
	}
	p.attachAuthors(posts)
	utils.Success(ctx, maskAnonymousPosts(posts))
}

// Search matches keyword as a substring of content or neighborhood.
func (p *PostController) Search(ctx *gin.Context) {
	keyword := strings.TrimSpace(ctx.Query("keyword"))
	if keyword == "" {
		utils.BadRequest(ctx, 40020, "keyword is required")
		return
	}
	category := ctx.Query("category")
	if category != "" && !models.ValidCategory(category) {
		utils.BadRequest(ctx, 40011, "unknown category")
		return
	}
	sortBy := ctx.DefaultQuery("sortBy", "recent")
	limit, offset := pageParams(ctx)

	q := p.db.Model(&models.Post{}).
		Where("is_visible = ?", true).
		Where("content LIKE ? OR neighborhood LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	if nb := strings.TrimSpace(ctx.Query("neighborhood")); nb != "" {
		q = q.Where("neighborhood LIKE ?", nb+"%")
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var posts []models.Post
	if err := q.Order(orderClause(sortBy)).Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		utils.Internal(ctx, 50015, "failed to search posts")
		return
	}
	p.attachAuthors(posts)
	utils.Success(ctx, maskAnonymousPosts(posts))
}

// ListMyPosts returns the caller's own posts, newest first.
func (p *PostController) ListMyPosts(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	limit, offset := pageParams(ctx)

	var posts []models.Post
	if err := p.db.Where("user_id = ?", user.ID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		utils.Internal(ctx, 50016, "failed to list posts")
		return
	}
	for i := range posts {
		posts[i].User = *user
	}
	utils.Success(ctx, posts)
}

// ListMyEmpathized returns posts the caller has empathized with, most
// recently empathized first.
func (p *PostController) ListMyEmpathized(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	limit, offset := pageParams(ctx)

	var posts []models.Post
	err := p.db.Model(&models.Post{}).
		Joins("JOIN empathies ON empathies.post_id = posts.id").
		Where("empathies.user_id = ?", user.ID).
		Order("empathies.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	if err != nil {
		utils.Internal(ctx, 50017, "failed to list empathized posts")
		return
	}
	p.attachAuthors(posts)
	utils.Success(ctx, maskAnonymousPosts(posts))
}

// attachAuthors fills the User association for a post slice in one query.
func (p *PostController) attachAuthors(posts []models.Post) {
	if len(posts) == 0 {
		return
	}
	ids := make([]uint, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.UserID)
	}
	var users []models.User
	if err := p.db.Where("id IN ?", utils.UniqueUint(ids)).Find(&users).Error; err != nil {
		return
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range posts {
		posts[i].User = byID[posts[i].UserID]
	}
}

// scopePrefix derives the LIKE prefix for a hierarchical
// "City District Neighborhood" address, selecting how many leading tokens
// participate in the match.
func scopePrefix(neighborhood, scope string) (string, bool) {
	tokens := strings.Fields(neighborhood)
	var n int
	switch scope {
	case "city":
		n = 1
	case "district":
		n = 2
	case "neighborhood":
		n = 3
	default:
		return "", false
	}
	if n > len(tokens) {
		n = len(tokens)
	}
	return strings.Join(tokens[:n], " "), true
}

// orderClause maps a sort key to SQL ordering; popularity ties break on
// recency.
func orderClause(sortBy string) string {
	if sortBy == "popular" {
		return "empathy_count DESC, created_at DESC"
	}
	return "created_at DESC"
}

// pageParams reads limit/offset with clamped defaults.
func pageParams(ctx *gin.Context) (limit, offset int) {
	limit = defaultFeedLimit
	if v := ctx.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	if v := ctx.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// maskAnonymousPost hides the author identity on anonymous content before it
// leaves the API. The anonymity flag stays so clients can render the badge.
func maskAnonymousPost(post models.Post) models.Post {
	if post.IsAnonymous {
		post.UserID = 0
		post.User = models.User{Nickname: "익명"}
	}
	for i := range post.Comments {
		post.Comments[i] = maskAnonymousComment(post.Comments[i])
	}
	return post
}

func maskAnonymousPosts(posts []models.Post) []models.Post {
	out := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, maskAnonymousPost(p))
	}
	return out
}

func maskAnonymousComment(c models.Comment) models.Comment {
	if c.IsAnonymous {
		c.UserID = 0
		c.User = models.User{Nickname: "익명"}
	}
	return c
}
