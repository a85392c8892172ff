package models

import (
	"strings"
	"time"
)

// HumanSpeakerPrefix marks envelopes authored by a human participant.
// It is the sole discriminator for AI-to-AI fan-out eligibility.
const HumanSpeakerPrefix = "Human@"

// Message type tags carried in an envelope.
const (
	TypeQuestion = "question"
	TypeAnswer   = "answer"
	TypeNote     = "note"
)

// Envelope is the unit of exchange between sessions. Immutable once created.
type Envelope struct {
	MessageID      string    `json:"message_id"`                // ULID
	Timestamp      time.Time `json:"timestamp"`                 // creation instant
	Speaker        string    `json:"speaker"`                   // "Human@ChatGPT", "ChatGPT", ...
	ReplyTo        string    `json:"reply_to,omitempty"`        // optional parent message id
	Content        string    `json:"content"`                   // plain text
	MessageType    string    `json:"message_type"`              // question | answer | note
	Confidence     float64   `json:"confidence"`                // [0,1], reserved for model self-assessment
	Tags           []string  `json:"tags"`                      // always includes the originating site id
	Site           string    `json:"site"`                      // site identifier
	ModelHint      string    `json:"model_hint"`                // human-readable model label
	URL            string    `json:"url"`                       // originating page address
	ConversationID string    `json:"conversation_id,omitempty"` // addressed conversation, default if empty
}

// HumanAuthored reports whether the envelope was authored by a human
// participant and is therefore excluded from AI-to-AI fan-out.
func (e *Envelope) HumanAuthored() bool {
	return strings.HasPrefix(e.Speaker, HumanSpeakerPrefix)
}
