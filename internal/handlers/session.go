package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/enki09/borg-collective/internal/metrics"
	"github.com/enki09/borg-collective/internal/models"
	"github.com/enki09/borg-collective/internal/profile"
)

// RegisterSessionRequest represents the session registration request.
type RegisterSessionRequest struct {
	Site string `json:"site,omitempty"`
	URL  string `json:"url"`
}

// RegisterSessionResponse represents the session registration response.
type RegisterSessionResponse struct {
	ID   string `json:"id"`
	Site string `json:"site"`
}

// SessionListResponse represents the session list response.
type SessionListResponse struct {
	Sessions []models.Session `json:"sessions"`
	Total    int              `json:"total"`
}

// InboxResponse represents the pending frames for one session.
type InboxResponse struct {
	Frames []models.Frame `json:"frames"`
	Count  int            `json:"count"`
}

// RegisterSession handles session registration for a newly observed tab.
func (h *Handler) RegisterSession(w http.ResponseWriter, r *http.Request) {
	var req RegisterSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		h.Error(w, http.StatusBadRequest, "url is required")
		return
	}

	site := req.Site
	if site == "" {
		site = profile.Resolve(req.URL).Site
	}

	sess := h.registry.Register(site, req.URL)
	metrics.SessionsRegistered.Inc()

	h.JSON(w, http.StatusCreated, RegisterSessionResponse{ID: sess.ID, Site: sess.Site})
}

// Heartbeat refreshes a session's liveness.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.registry.Touch(id) {
		h.Error(w, http.StatusNotFound, "session not found")
		return
	}
	h.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListSessions lists currently live sessions on supported hosts.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.Sessions(r.Context())
	h.JSON(w, http.StatusOK, SessionListResponse{Sessions: sessions, Total: len(sessions)})
}

// PollInbox drains pending broadcast frames for a session.
func (h *Handler) PollInbox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 500 {
		limit = 500
	}

	frames, err := h.inbox.Poll(r.Context(), id, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to poll inbox")
		return
	}
	if frames == nil {
		frames = []models.Frame{}
	}

	h.JSON(w, http.StatusOK, InboxResponse{Frames: frames, Count: len(frames)})
}
