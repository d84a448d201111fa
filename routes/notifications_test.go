package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/dongnelab/dongbo/models"
)

func TestNotificationListAndUnreadCount(t *testing.T) {
	r, db := newTestEnv(t)
	_, aToken := createUser(t, db, "github:1", models.RoleUser)
	_, bToken := createUser(t, db, "github:2", models.RoleUser)
	postID := createPost(t, r, aToken, "알림 테스트")

	addComment(t, r, postID, bToken, "첫 댓글")
	addEmpathy(t, r, postID, bToken)

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/notifications", nil, aToken)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var data struct {
		Items []struct {
			ID     uint                    `json:"id"`
			Type   models.NotificationType `json:"type"`
			IsRead bool                    `json:"is_read"`
		} `json:"items"`
		UnreadCount int64 `json:"unread_count"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Items) != 2 || data.UnreadCount != 2 {
		t.Fatalf("expected 2 unread notifications, got items=%d unread=%d", len(data.Items), data.UnreadCount)
	}
}

func TestNotificationMarkReadScopedToRecipient(t *testing.T) {
	r, db := newTestEnv(t)
	author, aToken := createUser(t, db, "github:1", models.RoleUser)
	_, bToken := createUser(t, db, "github:2", models.RoleUser)
	postID := createPost(t, r, aToken, "알림 테스트")
	addComment(t, r, postID, bToken, "댓글")

	var notif models.Notification
	if err := db.Where("user_id = ?", author.ID).First(&notif).Error; err != nil {
		t.Fatalf("seed notification missing: %v", err)
	}

	// Someone else's notification looks like a missing one.
	w, _ := doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", notif.ID), nil, bToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign mark-read: expected 404, got %d", w.Code)
	}

	w, _ = doRequest(t, r, http.MethodPatch, fmt.Sprintf("/api/v1/notifications/%d/read", notif.ID), nil, aToken)
	if w.Code != http.StatusOK {
		t.Fatalf("mark-read: status %d", w.Code)
	}
	db.First(&notif, notif.ID)
	if !notif.IsRead {
		t.Fatal("notification not marked read")
	}
}

func TestNotificationMarkAllRead(t *testing.T) {
	r, db := newTestEnv(t)
	author, aToken := createUser(t, db, "github:1", models.RoleUser)
	_, bToken := createUser(t, db, "github:2", models.RoleUser)
	postID := createPost(t, r, aToken, "알림 테스트")

	addComment(t, r, postID, bToken, "하나")
	addComment(t, r, postID, bToken, "둘")
	addComment(t, r, postID, bToken, "셋")

	w, env := doRequest(t, r, http.MethodPatch, "/api/v1/notifications/read-all", nil, aToken)
	if w.Code != http.StatusOK {
		t.Fatalf("read-all: status %d", w.Code)
	}
	var data struct {
		Updated int64 `json:"updated"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Updated != 3 {
		t.Fatalf("expected 3 updated, got %d", data.Updated)
	}

	var unread int64
	db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", author.ID, false).Count(&unread)
	if unread != 0 {
		t.Fatalf("unread rows remain: %d", unread)
	}
}
