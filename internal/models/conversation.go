package models

import "time"

// DefaultConversationID is the implicit conversation used when an envelope
// does not address one explicitly.
const DefaultConversationID = "default"

// Conversation is an ordered, append-only log of message envelopes.
type Conversation struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created"`
	UpdatedAt time.Time  `json:"updated"`
	Messages  []Envelope `json:"messages"`
}

// State is the full relay store: every conversation plus the marker of the
// most recently accepted message.
type State struct {
	Conversations map[string]*Conversation `json:"conversations"`
	LastMessageID string                   `json:"last_message_id,omitempty"`
}

// NewState returns an empty state ready for appends.
func NewState() *State {
	return &State{Conversations: make(map[string]*Conversation)}
}

// Clone returns a deep copy safe to hand to callers.
func (s *State) Clone() *State {
	out := &State{
		Conversations: make(map[string]*Conversation, len(s.Conversations)),
		LastMessageID: s.LastMessageID,
	}
	for id, conv := range s.Conversations {
		c := &Conversation{
			ID:        conv.ID,
			CreatedAt: conv.CreatedAt,
			UpdatedAt: conv.UpdatedAt,
			Messages:  make([]Envelope, len(conv.Messages)),
		}
		copy(c.Messages, conv.Messages)
		for i := range c.Messages {
			if tags := c.Messages[i].Tags; tags != nil {
				c.Messages[i].Tags = append([]string(nil), tags...)
			}
		}
		out.Conversations[id] = c
	}
	return out
}

// MessageCount returns the total number of messages across conversations.
func (s *State) MessageCount() int {
	n := 0
	for _, conv := range s.Conversations {
		n += len(conv.Messages)
	}
	return n
}
