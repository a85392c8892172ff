package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/enki09/borg-collective/internal/relay"
	"github.com/enki09/borg-collective/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	relay    *relay.Relay
	registry *relay.Registry
	inbox    store.Inbox
	snap     store.SnapshotStore
}

// NewHandler creates a new Handler with the given relay and collaborators.
func NewHandler(r *relay.Relay, reg *relay.Registry, inbox store.Inbox, snap store.SnapshotStore) *Handler {
	return &Handler{relay: r, registry: reg, inbox: inbox, snap: snap}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
