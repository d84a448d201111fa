package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dongnelab/dongbo/middleware"
	"github.com/dongnelab/dongbo/models"
)

// The suite runs with the limiter disabled; a long sequential burst from the
// single httptest client IP must never be throttled.
func TestSuiteTrafficNotThrottled(t *testing.T) {
	r, db := newTestEnv(t)
	_, token := createUser(t, db, "github:1", models.RoleUser)

	for i := 1; i <= 40; i++ {
		w, _ := doRequest(t, r, http.MethodGet, "/api/v1/profile", nil, token)
		if w.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d throttled with 429", i)
		}
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, w.Code)
		}
	}
}

// With a real limit configured the middleware still throttles a burst well
// past the bucket size.
func TestRateLimitMiddlewareThrottlesBursts(t *testing.T) {
	engine := gin.New()
	engine.GET("/ping", middleware.RateLimit(60), func(ctx *gin.Context) {
		ctx.Status(http.StatusOK)
	})

	throttled := false
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if w.Code == http.StatusTooManyRequests {
			throttled = true
			break
		}
	}
	if !throttled {
		t.Fatal("burst of 100 requests was never throttled at 60/min")
	}
}
