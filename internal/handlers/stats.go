package handlers

import (
	"fmt"
	"net/http"
	"time"
)

// StatsResponse represents relay statistics.
type StatsResponse struct {
	Conversations int            `json:"conversations"`
	Messages      int            `json:"messages"`
	Sessions      int            `json:"sessions"`
	LastMessageID string         `json:"last_message_id,omitempty"`
	LastActivity  string         `json:"last_activity,omitempty"`
	BySite        map[string]int `json:"by_site"`
}

// Stats handles the statistics endpoint.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	state := h.relay.State()

	resp := StatsResponse{
		Conversations: len(state.Conversations),
		Sessions:      h.registry.Len(),
		LastMessageID: state.LastMessageID,
		BySite:        make(map[string]int),
	}

	var lastActivity time.Time
	for _, conv := range state.Conversations {
		resp.Messages += len(conv.Messages)
		if conv.UpdatedAt.After(lastActivity) {
			lastActivity = conv.UpdatedAt
		}
		for _, msg := range conv.Messages {
			resp.BySite[msg.Site]++
		}
	}

	if !lastActivity.IsZero() {
		resp.LastActivity = formatTimeAgo(lastActivity)
	}

	h.JSON(w, http.StatusOK, resp)
}

// formatTimeAgo formats a time as a human-readable "time ago" string.
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
