package models

import "time"

// Session describes one active capture session (one observed chat tab).
type Session struct {
	ID           string    `json:"id"` // UUID
	Site         string    `json:"site"`
	URL          string    `json:"url"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}
