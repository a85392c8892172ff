package models

import "encoding/json"

// Frame types exchanged at the relay boundary.
const (
	FrameMessageSubmit = "message_submit"
	FrameBroadcast     = "broadcast"
	FrameGetState      = "get_state"
	FrameResetState    = "reset_state"
	FrameUserBroadcast = "user_broadcast"
)

// Frame is the generic message exchanged with the relay.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UserBroadcast is the payload of a user_broadcast frame: an operator-composed
// message injected as a human-authored turn.
type UserBroadcast struct {
	Text string `json:"text"`
	Mode string `json:"mode"` // question | note
}

// BroadcastFrame wraps an envelope for delivery to a peer session.
func BroadcastFrame(env Envelope) (Frame, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: FrameBroadcast, Payload: payload}, nil
}
