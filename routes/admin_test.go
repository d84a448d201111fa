package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dongnelab/dongbo/models"
)

func TestAdminStatusUpdateForbiddenForNonAdmin(t *testing.T) {
	r, db := newTestEnv(t)
	_, aToken := createUser(t, db, "github:1", models.RoleUser)
	postID := createPost(t, r, aToken, "도로에 포트홀이 있어요")

	w, _ := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/admin/posts/%d/status", postID),
		gin.H{"status": "in_progress"}, aToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	var post models.Post
	db.First(&post, postID)
	if post.AdminStatus != models.StatusPending {
		t.Fatalf("status changed by forbidden call: %s", post.AdminStatus)
	}
	var logs int64
	db.Model(&models.AdminLog{}).Count(&logs)
	if logs != 0 {
		t.Fatalf("audit log written by forbidden call: %d rows", logs)
	}
}

func TestAdminStatusUpdate(t *testing.T) {
	r, db := newTestEnv(t)
	author, aToken := createUser(t, db, "github:1", models.RoleUser)
	admin, adminToken := createUser(t, db, "github:boss", models.RoleAdmin)
	postID := createPost(t, r, aToken, "신호등이 고장났어요")

	w, env := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/admin/posts/%d/status", postID),
		gin.H{"status": "in_progress", "notes": "구청에 접수"}, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var data struct {
		OldStatus models.AdminStatus `json:"old_status"`
		NewStatus models.AdminStatus `json:"new_status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.OldStatus != models.StatusPending || data.NewStatus != models.StatusInProgress {
		t.Fatalf("unexpected transition: %s -> %s", data.OldStatus, data.NewStatus)
	}

	var post models.Post
	db.First(&post, postID)
	if post.AdminStatus != models.StatusInProgress || post.AdminNotes != "구청에 접수" {
		t.Fatalf("post not updated: status=%s notes=%q", post.AdminStatus, post.AdminNotes)
	}

	var log models.AdminLog
	if err := db.First(&log).Error; err != nil {
		t.Fatalf("audit log row missing: %v", err)
	}
	if log.AdminID != admin.ID || log.Action != "update_status" || log.TargetType != "post" || log.TargetID != postID {
		t.Fatalf("unexpected audit row: %+v", log)
	}
	var details map[string]interface{}
	if err := json.Unmarshal([]byte(log.Details), &details); err != nil {
		t.Fatalf("details is not JSON: %v", err)
	}
	if details["old_status"] != "pending" || details["new_status"] != "in_progress" {
		t.Fatalf("unexpected details: %v", details)
	}

	if got := countNotifications(t, db, author.ID, models.NotificationPostStatusChanged); got != 1 {
		t.Fatalf("expected 1 status notification, got %d", got)
	}
}

func TestAdminStatusAllowsArbitraryOverwrites(t *testing.T) {
	r, db := newTestEnv(t)
	_, aToken := createUser(t, db, "github:1", models.RoleUser)
	_, adminToken := createUser(t, db, "github:boss", models.RoleAdmin)
	postID := createPost(t, r, aToken, "아무 게시글")

	// No transition graph: completed can go straight back to pending.
	for _, status := range []string{"completed", "pending", "rejected"} {
		w, _ := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/admin/posts/%d/status", postID),
			gin.H{"status": status}, adminToken)
		if w.Code != http.StatusOK {
			t.Fatalf("set %s: status %d", status, w.Code)
		}
	}

	var post models.Post
	db.First(&post, postID)
	if post.AdminStatus != models.StatusRejected {
		t.Fatalf("expected rejected, got %s", post.AdminStatus)
	}
}

func TestAdminStatusValidation(t *testing.T) {
	r, db := newTestEnv(t)
	_, aToken := createUser(t, db, "github:1", models.RoleUser)
	_, adminToken := createUser(t, db, "github:boss", models.RoleAdmin)
	postID := createPost(t, r, aToken, "게시글")

	w, _ := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/admin/posts/%d/status", postID),
		gin.H{"status": "archived"}, adminToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d", w.Code)
	}

	w, _ = doRequest(t, r, http.MethodPatch, "/api/v1/admin/posts/9999/status",
		gin.H{"status": "completed"}, adminToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing post: expected 404, got %d", w.Code)
	}
}
