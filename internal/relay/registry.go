package relay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/enki09/borg-collective/internal/models"
	"github.com/enki09/borg-collective/internal/profile"
)

// DefaultSessionTTL is how long a registered session stays enumerable
// without a heartbeat.
const DefaultSessionTTL = 5 * time.Minute

// Registry tracks active capture sessions in memory. Entries expire after the
// TTL unless refreshed; enumeration returns only sessions on supported hosts.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates an empty session registry. A non-positive ttl uses
// DefaultSessionTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Registry{
		sessions: make(map[string]models.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Register records a new session and returns it with an assigned id.
func (r *Registry) Register(site, url string) models.Session {
	now := r.now().UTC()
	sess := models.Session{
		ID:           uuid.NewString(),
		Site:         site,
		URL:          url,
		RegisteredAt: now,
		LastSeenAt:   now,
	}
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	return sess
}

// Touch refreshes a session's liveness. Returns false for unknown sessions.
func (r *Registry) Touch(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return false
	}
	sess.LastSeenAt = r.now().UTC()
	r.sessions[id] = sess
	return true
}

// Sessions enumerates live sessions whose address matches a supported chat
// host, pruning expired entries as a side effect.
func (r *Registry) Sessions(ctx context.Context) []models.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	out := make([]models.Session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		if sess.LastSeenAt.Before(cutoff) {
			delete(r.sessions, id)
			continue
		}
		if !profile.SupportedURL(sess.URL) {
			continue
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out
}

// Len returns the number of tracked sessions, expired or not.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
