package routes

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dongnelab/dongbo/models"
)

func TestProfileGetAndUpdate(t *testing.T) {
	r, db := newTestEnv(t)
	user, token := createUser(t, db, "github:1", models.RoleUser)

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/profile", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("get profile: status %d", w.Code)
	}
	var me struct {
		ID       uint   `json:"id"`
		Nickname string `json:"nickname"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.ID != user.ID {
		t.Fatalf("wrong profile returned: %d", me.ID)
	}

	lat := 37.501
	w, env = doRequest(t, r, http.MethodPatch, "/api/v1/profile", gin.H{
		"nickname": "역삼주민",
		"bio":      "동네 소식을 올립니다",
		"latitude": lat,
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update profile: status %d body=%s", w.Code, w.Body.String())
	}

	var fresh models.User
	db.First(&fresh, user.ID)
	if fresh.Nickname != "역삼주민" || fresh.Bio != "동네 소식을 올립니다" {
		t.Fatalf("profile not updated: %+v", fresh)
	}
	if fresh.Latitude == nil || *fresh.Latitude != lat {
		t.Fatalf("latitude not updated")
	}
	// Untouched fields survive a partial update.
	if fresh.Neighborhood != user.Neighborhood {
		t.Fatalf("neighborhood clobbered by partial update")
	}
}

func TestProfileNicknameTooLong(t *testing.T) {
	r, db := newTestEnv(t)
	_, token := createUser(t, db, "github:1", models.RoleUser)

	w, _ := doRequest(t, r, http.MethodPatch, "/api/v1/profile",
		gin.H{"nickname": repeatRunes("가", 51)}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestProfileStatsComputedFromLedgers(t *testing.T) {
	r, db := newTestEnv(t)
	_, aToken := createUser(t, db, "github:1", models.RoleUser)
	_, bToken := createUser(t, db, "github:2", models.RoleUser)

	p1 := createPost(t, r, aToken, "첫 게시글")
	p2 := createPost(t, r, aToken, "둘째 게시글")
	addEmpathy(t, r, p1, bToken)
	addEmpathy(t, r, p2, bToken)
	addComment(t, r, p1, bToken, "댓글")

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/profile/stats", nil, aToken)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: status %d", w.Code)
	}
	var stats struct {
		TotalPosts    int64 `json:"total_posts"`
		TotalEmpathy  int64 `json:"total_empathy"`
		TotalComments int64 `json:"total_comments"`
	}
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalPosts != 2 || stats.TotalEmpathy != 2 || stats.TotalComments != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
