package controllers

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

// 5 MiB of decoded image data
const maxUploadBytes = 5 << 20

// StorageController accepts base64 image payloads and stores them on the
// local filesystem behind the public static prefix.
type StorageController struct {
	db *gorm.DB
}

func NewStorageController(db *gorm.DB) *StorageController {
	return &StorageController{db: db}
}

type uploadImageRequest struct {
	Base64   string `json:"base64" binding:"required"`
	MimeType string `json:"mimeType" binding:"required"`
}

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// UploadImage decodes the payload, writes it under posts/<unique>.<ext> and
// returns the public URL together with the storage key.
func (s *StorageController) UploadImage(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx)

	var req uploadImageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, 40070, "invalid request payload")
		return
	}

	ext, ok := imageExtensions[strings.ToLower(req.MimeType)]
	if !ok {
		utils.BadRequest(ctx, 40071, "unsupported mime type")
		return
	}

	// Clients often send the whole data URI; keep only the payload.
	raw := req.Base64
	if idx := strings.Index(raw, ","); idx >= 0 && strings.HasPrefix(raw, "data:") {
		raw = raw[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		utils.BadRequest(ctx, 40072, "invalid base64 payload")
		return
	}
	if len(data) == 0 {
		utils.BadRequest(ctx, 40072, "empty payload")
		return
	}
	if len(data) > maxUploadBytes {
		utils.BadRequest(ctx, 40073, "image too large")
		return
	}

	cfg := config.Get()
	key := fmt.Sprintf("posts/%s.%s", uuid.NewString(), ext)
	path := filepath.Join(cfg.UploadDir, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		utils.Internal(ctx, 50070, "failed to prepare upload directory")
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		utils.Internal(ctx, 50071, "failed to store image")
		return
	}

	url := strings.TrimRight(cfg.UploadBaseURL, "/") + "/" + key
	record := models.UploadedImage{
		UserID:   user.ID,
		Key:      key,
		URL:      url,
		MimeType: strings.ToLower(req.MimeType),
		Size:     int64(len(data)),
	}
	if err := s.db.Create(&record).Error; err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("upload record failed key=%s err=%v", key, err)
		}
	}

	utils.Success(ctx, gin.H{"url": url, "key": key})
}
