package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dongnelab/dongbo/config"
	"github.com/dongnelab/dongbo/models"
	"github.com/dongnelab/dongbo/utils"
)

var dbSeq uint64

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("LOG_LEVEL", "error")
	os.Setenv("REDIS_HOST", "")
	// Every httptest request shares one client IP, so the per-IP limiter
	// would throttle the suite itself.
	os.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	os.Setenv("EMPATHY_THRESHOLD", "5")
	os.Setenv("OWNER_OPEN_ID", "github:owner")
	os.Setenv("UPLOAD_DIR", os.TempDir()+"/dongbo-test-uploads")

	cfg := config.Load()
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

// newTestEnv builds an isolated in-memory database and a router over it.
func newTestEnv(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:dongbo_test_%d?mode=memory&cache=shared", atomic.AddUint64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Empathy{},
		&models.Notification{},
		&models.EmpathyThresholdEvent{},
		&models.AdminLog{},
		&models.UploadedImage{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return SetupRouter(db), db
}

// createUser inserts a user row and returns it with a valid session token.
func createUser(t *testing.T, db *gorm.DB, openID string, role models.Role) (*models.User, string) {
	t.Helper()

	user := models.User{
		OpenID:       openID,
		Name:         "user-" + openID,
		Role:         role,
		Neighborhood: "서울시 강남구 역삼동",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", openID, err)
	}
	token, err := utils.GenerateToken(user.ID, user.OpenID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return &user, token
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// doRequest performs an HTTP call against the router, optionally with a JSON
// body and a session cookie.
func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: config.Get().SessionCookieName, Value: token})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %s %s (status %d): %v, body=%s", method, path, w.Code, err, w.Body.String())
	}
	return w, env
}

// createPost inserts a post through the API and returns its id.
func createPost(t *testing.T, r *gin.Engine, token, content string) uint {
	t.Helper()

	w, env := doRequest(t, r, http.MethodPost, "/api/v1/posts", gin.H{
		"category":     "inconvenience",
		"content":      content,
		"neighborhood": "서울시 강남구 역삼동",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("create post: status=%d body=%s", w.Code, w.Body.String())
	}
	var data struct {
		PostID uint `json:"post_id"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode create post data: %v", err)
	}
	return data.PostID
}

// newBearerRequest builds a request authenticated via the Authorization
// header instead of the cookie.
func newBearerRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// countNotifications counts inbox rows for a user, optionally by type.
func countNotifications(t *testing.T, db *gorm.DB, userID uint, typ models.NotificationType) int64 {
	t.Helper()

	q := db.Model(&models.Notification{}).Where("user_id = ?", userID)
	if typ != "" {
		q = q.Where("type = ?", typ)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}
