package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

// ContextUserKey is where the authenticated user is stored on the request
// context by AuthRequired/AuthOptional.
const ContextUserKey = "current_user"

// extractToken pulls the session token from the cookie, falling back to a
// bearer Authorization header for non-browser clients.
func extractToken(ctx *gin.Context) string {
	cfg := config.Get()
	if token, err := ctx.Cookie(cfg.SessionCookieName); err == nil && token != "" {
		return token
	}
	header := ctx.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// resolveUser validates a token and loads the user row it names. Returns nil
// on any failure; callers decide whether that is fatal.
func resolveUser(db *gorm.DB, token string) *models.User {
	if token == "" || utils.IsTokenBlacklisted(token) {
		return nil
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil
	}
	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil
	}
	return &user
}

// AuthRequired rejects unauthenticated requests with 401 and loads the
// current user into the context otherwise.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := resolveUser(db, extractToken(ctx))
		if user == nil {
			utils.Unauthorized(ctx, 40100, "login required")
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserKey, user)
		ctx.Next()
	}
}

// AuthOptional loads the current user when a valid session is present but
// never rejects the request.
func AuthOptional(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if user := resolveUser(db, extractToken(ctx)); user != nil {
			ctx.Set(ContextUserKey, user)
		}
		ctx.Next()
	}
}

// CurrentUser returns the user placed on the context by the auth middleware,
// or nil when the request is anonymous.
func CurrentUser(ctx *gin.Context) *models.User {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
