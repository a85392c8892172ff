package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/enki09/borg-collective/internal/capture"
	"github.com/enki09/borg-collective/internal/models"
	"github.com/enki09/borg-collective/internal/profile"
	"github.com/enki09/borg-collective/internal/relay"
)

// SessionHeader carries the originating session id on submitted frames.
// Without it, fan-out is skipped (the origin peer set is unknown).
const SessionHeader = "X-Borg-Session"

// operatorBuilder stamps operator-composed broadcasts with the same envelope
// invariants the capture pipeline applies, under the control pseudo-site.
var operatorBuilder = capture.NewBuilder(profile.Profile{Site: "control", ModelLabel: "Operator"}, "")

// FrameResponse is the uniform response for all relay-boundary frames.
type FrameResponse struct {
	OK    bool          `json:"ok"`
	Error string        `json:"error,omitempty"`
	State *models.State `json:"state,omitempty"`
	Reset bool          `json:"reset,omitempty"`
}

// Relay handles the relay boundary: it dispatches message frames to the
// orchestration core. Every frame completes with an explicit ok/error result.
func (h *Handler) Relay(w http.ResponseWriter, r *http.Request) {
	var frame models.Frame
	if err := json.NewDecoder(r.Body).Decode(&frame); err != nil {
		h.JSON(w, http.StatusBadRequest, FrameResponse{OK: false, Error: "invalid JSON body"})
		return
	}
	if frame.Type == "" {
		h.JSON(w, http.StatusBadRequest, FrameResponse{OK: false, Error: "no type"})
		return
	}

	switch frame.Type {
	case models.FrameMessageSubmit:
		h.handleSubmit(w, r, frame.Payload)
	case models.FrameGetState:
		h.JSON(w, http.StatusOK, FrameResponse{OK: true, State: h.relay.State()})
	case models.FrameResetState:
		h.relay.Reset(r.Context())
		h.JSON(w, http.StatusOK, FrameResponse{OK: true, Reset: true})
	case models.FrameUserBroadcast:
		h.handleUserBroadcast(w, r, frame.Payload)
	default:
		h.JSON(w, http.StatusBadRequest, FrameResponse{OK: false, Error: "unrecognized message type"})
	}
}

// handleSubmit appends a captured envelope and triggers fan-out for
// AI-authored turns.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, payload json.RawMessage) {
	var env models.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		h.JSON(w, http.StatusBadRequest, FrameResponse{OK: false, Error: "invalid envelope"})
		return
	}

	origin := r.Header.Get(SessionHeader)
	if err := h.relay.Submit(r.Context(), env, origin); err != nil {
		if errors.Is(err, relay.ErrMissingMessageID) {
			h.JSON(w, http.StatusBadRequest, FrameResponse{OK: false, Error: "invalid envelope"})
			return
		}
		h.JSON(w, http.StatusInternalServerError, FrameResponse{OK: false, Error: "submit failed"})
		return
	}

	h.JSON(w, http.StatusOK, FrameResponse{OK: true})
}

// handleUserBroadcast injects an operator-composed message as a human-authored
// turn in the default conversation. Human turns are never fanned out.
func (h *Handler) handleUserBroadcast(w http.ResponseWriter, r *http.Request, payload json.RawMessage) {
	var ub models.UserBroadcast
	if err := json.Unmarshal(payload, &ub); err != nil {
		h.JSON(w, http.StatusBadRequest, FrameResponse{OK: false, Error: "invalid payload"})
		return
	}

	text := strings.TrimSpace(ub.Text)
	if text == "" {
		h.JSON(w, http.StatusBadRequest, FrameResponse{OK: false, Error: "text is required"})
		return
	}

	mode := ub.Mode
	if mode != models.TypeQuestion && mode != models.TypeNote {
		mode = models.TypeQuestion
	}

	env := operatorBuilder.Build(capture.BuildInput{
		Content:     text,
		Speaker:     models.HumanSpeakerPrefix + "Operator",
		MessageType: mode,
		Tags:        []string{"operator"},
	})

	if err := h.relay.Submit(r.Context(), env, ""); err != nil {
		h.JSON(w, http.StatusInternalServerError, FrameResponse{OK: false, Error: "submit failed"})
		return
	}

	h.JSON(w, http.StatusOK, FrameResponse{OK: true})
}
