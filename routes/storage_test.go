package routes

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/models"
)

func TestUploadImage(t *testing.T) {
	r, db := newTestEnv(t)
	user, token := createUser(t, db, "github:1", models.RoleUser)

	payload := base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))
	w, env := doRequest(t, r, http.MethodPost, "/api/v1/storage/images", gin.H{
		"base64":   "data:image/png;base64," + payload,
		"mimeType": "image/png",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("upload: status %d body=%s", w.Code, w.Body.String())
	}

	var data struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(data.Key, "posts/") || !strings.HasSuffix(data.Key, ".png") {
		t.Fatalf("unexpected key: %s", data.Key)
	}
	if !strings.HasSuffix(data.URL, data.Key) {
		t.Fatalf("url does not end with key: %s", data.URL)
	}

	path := filepath.Join(config.Get().UploadDir, filepath.FromSlash(data.Key))
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if string(content) != "fake-png-bytes" {
		t.Fatalf("stored bytes mismatch")
	}

	var record models.UploadedImage
	if err := db.Where("key = ?", data.Key).First(&record).Error; err != nil {
		t.Fatalf("upload record missing: %v", err)
	}
	if record.UserID != user.ID || record.Size != int64(len("fake-png-bytes")) {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestUploadImageValidation(t *testing.T) {
	r, db := newTestEnv(t)
	_, token := createUser(t, db, "github:1", models.RoleUser)

	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/storage/images", gin.H{
		"base64":   "aGVsbG8=",
		"mimeType": "application/pdf",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad mime: expected 400, got %d", w.Code)
	}

	w, _ = doRequest(t, r, http.MethodPost, "/api/v1/storage/images", gin.H{
		"base64":   "not!!base64??",
		"mimeType": "image/png",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad payload: expected 400, got %d", w.Code)
	}
}
