package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

// AuthController handles session and OAuth login endpoints. Accounts exist
// only through OAuth: there is no local registration or password flow.
type AuthController struct {
	db *gorm.DB
}

func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Me returns the current user, or null when the request carries no valid
// session. It never errors for anonymous callers.
func (a *AuthController) Me(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)
	if user == nil {
		// Explicit null so clients can tell "no user" from a missing field.
		ctx.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": nil})
		return
	}
	utils.Success(ctx, user)
}

// Logout revokes the current session token and clears the cookie.
func (a *AuthController) Logout(ctx *gin.Context) {
	cfg := config.Get()

	token, err := ctx.Cookie(cfg.SessionCookieName)
	if err != nil || token == "" {
		header := ctx.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
	}
	if token != "" {
		expiresAt := time.Now().Add(time.Duration(cfg.SessionTTLHours) * time.Hour)
		if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		utils.BlacklistToken(token, expiresAt)
	}

	ctx.SetCookie(cfg.SessionCookieName, "", -1, "/", "", cfg.CookieSecure, true)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	provider := ctx.Param("provider")
	cfg, err := a.oauthConfig(provider)
	if err != nil {
		utils.BadRequest(ctx, 40004, err.Error())
		return
	}

	state := uuid.NewString()
	utils.SaveState(state, 10*time.Minute)

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	utils.Success(ctx, gin.H{"authorization_url": url, "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity, upserts
// the account and issues a session cookie.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := ctx.Param("provider")
	code := ctx.Query("code")
	state := ctx.Query("state")

	if code == "" || state == "" {
		utils.BadRequest(ctx, 40005, "missing code or state")
		return
	}
	if !utils.ConsumeState(state) {
		utils.BadRequest(ctx, 40006, "invalid or expired state")
		return
	}

	oc, err := a.oauthConfig(provider)
	if err != nil {
		utils.BadRequest(ctx, 40004, err.Error())
		return
	}

	token, err := oc.Exchange(context.Background(), code)
	if err != nil {
		utils.BadRequest(ctx, 40007, "failed to exchange code")
		return
	}

	info, err := a.fetchOAuthUser(provider, token)
	if err != nil {
		utils.Internal(ctx, 50005, err.Error())
		return
	}

	user, err := a.findOrCreateOAuthUser(provider, info)
	if err != nil {
		utils.Internal(ctx, 50006, "failed to persist user")
		return
	}

	cfg := config.Get()
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	sessionToken, err := utils.GenerateToken(user.ID, user.OpenID, ttl)
	if err != nil {
		utils.Internal(ctx, 50004, "failed to generate token")
		return
	}

	ctx.SetCookie(cfg.SessionCookieName, sessionToken, int(ttl.Seconds()), "/", "", cfg.CookieSecure, true)
	utils.Success(ctx, gin.H{"token": sessionToken, "user": user})
}

func (a *AuthController) oauthConfig(provider string) (*oauth2.Config, error) {
	cfg := config.Get()
	switch strings.ToLower(provider) {
	case "github":
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/github/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  fmt.Sprintf("%s/api/v1/auth/oauth/google/callback", cfg.OAuthRedirectBase),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (a *AuthController) fetchOAuthUser(provider string, token *oauth2.Token) (*oauthUser, error) {
	switch strings.ToLower(provider) {
	case "github":
		return fetchGitHubUser(token)
	case "google":
		return fetchGoogleUser(token)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

type oauthUser struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
}

// findOrCreateOAuthUser upserts the account keyed by the provider-scoped
// open id. The configured owner is promoted to admin on every login, so the
// role survives manual DB edits.
func (a *AuthController) findOrCreateOAuthUser(provider string, data *oauthUser) (*models.User, error) {
	cfg := config.Get()
	openID := strings.ToLower(provider) + ":" + data.ID
	now := time.Now()

	var user models.User
	err := a.db.Where("open_id = ?", openID).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		user = models.User{
			OpenID:       openID,
			Name:         data.DisplayName,
			Email:        strings.TrimSpace(data.Email),
			LoginMethod:  strings.ToLower(provider),
			ProfileImage: data.AvatarURL,
			LastSignedIn: now,
		}
		if openID == cfg.OwnerOpenID {
			user.Role = models.RoleAdmin
		}
		if err := a.db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}

	updates := map[string]interface{}{
		"name":           data.DisplayName,
		"email":          strings.TrimSpace(data.Email),
		"last_signed_in": now,
	}
	if user.ProfileImage == "" && data.AvatarURL != "" {
		updates["profile_image"] = data.AvatarURL
	}
	if openID == cfg.OwnerOpenID && user.Role != models.RoleAdmin {
		updates["role"] = models.RoleAdmin
	}
	if err := a.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := a.db.First(&user, user.ID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func fetchGitHubUser(token *oauth2.Token) (*oauthUser, error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.AccessToken))
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	email, _ := fetchGitHubEmail(token.AccessToken)

	return &oauthUser{
		ID:          fmt.Sprintf("%d", payload.ID),
		DisplayName: fallback(payload.Name, payload.Login),
		Email:       email,
		AvatarURL:   payload.AvatarURL,
	}, nil
}

func fetchGitHubEmail(accessToken string) (string, error) {
	req, _ := http.NewRequest("GET", "https://api.github.com/user/emails", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github emails request failed: %s", resp.Status)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", err
	}

	for _, email := range emails {
		if email.Primary && email.Verified {
			return email.Email, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, nil
	}
	return "", nil
}

func fetchGoogleUser(token *oauth2.Token) (*oauthUser, error) {
	req, _ := http.NewRequest("GET", "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.AccessToken))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info request failed: %s", resp.Status)
	}

	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	return &oauthUser{
		ID:          payload.ID,
		DisplayName: fallback(payload.Name, payload.Email),
		Email:       payload.Email,
		AvatarURL:   payload.Picture,
	}, nil
}

func fallback(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
