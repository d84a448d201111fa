package routes

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dongnelab/dongbo/models"
)

func TestAuthMeWithoutSession(t *testing.T) {
	r, _ := newTestEnv(t)

	w, _ := doRequest(t, r, http.MethodGet, "/api/v1/auth/me", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("me: status %d", w.Code)
	}
	// The data key must be present and explicitly null, not omitted.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := raw["data"]
	if !ok {
		t.Fatalf("data key missing from anonymous me response: %s", w.Body.String())
	}
	if string(data) != "null" {
		t.Fatalf("anonymous me should be null, got %s", data)
	}
}

func TestAuthMeWithSession(t *testing.T) {
	r, db := newTestEnv(t)
	user, token := createUser(t, db, "github:1", models.RoleUser)

	w, env := doRequest(t, r, http.MethodGet, "/api/v1/auth/me", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("me: status %d", w.Code)
	}
	var me struct {
		ID     uint   `json:"id"`
		OpenID string `json:"open_id"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.ID != user.ID || me.OpenID != user.OpenID {
		t.Fatalf("wrong identity: %+v", me)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	r, db := newTestEnv(t)
	_, token := createUser(t, db, "github:1", models.RoleUser)

	w, _ := doRequest(t, r, http.MethodPost, "/api/v1/auth/logout", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}

	// The blacklisted token no longer authenticates protected calls.
	w, _ = doRequest(t, r, http.MethodGet, "/api/v1/profile", nil, token)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestBearerHeaderFallback(t *testing.T) {
	r, db := newTestEnv(t)
	user, token := createUser(t, db, "github:1", models.RoleUser)

	req := newBearerRequest(http.MethodGet, "/api/v1/profile", token)
	w := serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("bearer auth: status %d", w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var me struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.ID != user.ID {
		t.Fatalf("wrong identity via bearer: %d", me.ID)
	}
}
