package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/enki09/borg-collective/internal/models"
)

func registerTestSession(t *testing.T, e *testEnv, site, url string) RegisterSessionResponse {
	t.Helper()

	body, _ := json.Marshal(RegisterSessionRequest{Site: site, URL: url})
	req := httptest.NewRequest("POST", "/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp RegisterSessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestRegisterSessionResolvesSite(t *testing.T) {
	e := newTestEnv(t)

	resp := registerTestSession(t, e, "", "https://gemini.google.com/app")
	if resp.ID == "" {
		t.Fatal("session should get an id")
	}
	if resp.Site != "gemini" {
		t.Fatalf("site should be resolved from url, got %q", resp.Site)
	}
}

func TestRegisterSessionRequiresURL(t *testing.T) {
	e := newTestEnv(t)

	body, _ := json.Marshal(RegisterSessionRequest{Site: "claude"})
	req := httptest.NewRequest("POST", "/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHeartbeat(t *testing.T) {
	e := newTestEnv(t)
	sess := registerTestSession(t, e, "claude", "https://claude.ai/chat/1")

	req := httptest.NewRequest("POST", "/sessions/"+sess.ID+"/heartbeat", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest("POST", "/sessions/unknown-id/heartbeat", nil)
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestListSessions(t *testing.T) {
	e := newTestEnv(t)
	registerTestSession(t, e, "claude", "https://claude.ai/chat/1")
	registerTestSession(t, e, "chatgpt", "https://chatgpt.com/c/2")
	registerTestSession(t, e, "unknown", "https://example.com/")

	req := httptest.NewRequest("GET", "/sessions", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp SessionListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 sessions on supported hosts, got %d", resp.Total)
	}
}

func TestPollInboxEmpty(t *testing.T) {
	e := newTestEnv(t)
	sess := registerTestSession(t, e, "claude", "https://claude.ai/chat/1")

	req := httptest.NewRequest("GET", "/sessions/"+sess.ID+"/inbox", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp InboxResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 0 || resp.Frames == nil {
		t.Fatalf("empty inbox should return an empty array, got %+v", resp)
	}
}

func TestPollInboxDrains(t *testing.T) {
	e := newTestEnv(t)
	sess := registerTestSession(t, e, "claude", "https://claude.ai/chat/1")

	frame, err := models.BroadcastFrame(submitEnvelope("b1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.inbox.Deliver(context.Background(), sess.ID, frame); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/sessions/"+sess.ID+"/inbox", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp InboxResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Frames[0].Type != models.FrameBroadcast {
		t.Fatalf("unexpected inbox %+v", resp)
	}

	// Second poll finds nothing: polling drains.
	rec = httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest("GET", "/sessions/"+sess.ID+"/inbox", nil))
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 0 {
		t.Fatalf("inbox should be drained, got %d frames", resp.Count)
	}
}

func TestPollInboxLimit(t *testing.T) {
	e := newTestEnv(t)
	sess := registerTestSession(t, e, "claude", "https://claude.ai/chat/1")

	for i := 0; i < 5; i++ {
		frame, _ := models.BroadcastFrame(submitEnvelope("b" + string(rune('0'+i))))
		e.inbox.Deliver(context.Background(), sess.ID, frame)
	}

	req := httptest.NewRequest("GET", "/sessions/"+sess.ID+"/inbox?limit=2", nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp InboxResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("limit not honored, got %d frames", resp.Count)
	}
}
