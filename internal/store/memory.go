package store

import (
	"context"
	"sync"

	"github.com/enki09/borg-collective/internal/models"
)

// maxQueuedFrames bounds each session's pending queue. Delivery is
// best-effort; the oldest frames are dropped past the cap.
const maxQueuedFrames = 1000

// MemoryInbox is an in-process delivery inbox, used when no Redis is
// configured and in tests.
type MemoryInbox struct {
	mu     sync.Mutex
	queues map[string][]models.Frame
}

// NewMemoryInbox creates an empty inbox.
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{queues: make(map[string][]models.Frame)}
}

// Ping always succeeds.
func (m *MemoryInbox) Ping(ctx context.Context) error {
	return nil
}

// Deliver enqueues a frame for the session.
func (m *MemoryInbox) Deliver(ctx context.Context, sessionID string, frame models.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := append(m.queues[sessionID], frame)
	if len(q) > maxQueuedFrames {
		q = q[len(q)-maxQueuedFrames:]
	}
	m.queues[sessionID] = q
	return nil
}

// Poll drains up to limit frames for the session, oldest first.
func (m *MemoryInbox) Poll(ctx context.Context, sessionID string, limit int) ([]models.Frame, error) {
	if limit <= 0 {
		limit = maxQueuedFrames
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[sessionID]
	if len(q) == 0 {
		return nil, nil
	}
	n := limit
	if n > len(q) {
		n = len(q)
	}
	out := make([]models.Frame, n)
	copy(out, q[:n])
	rest := q[n:]
	if len(rest) == 0 {
		delete(m.queues, sessionID)
	} else {
		m.queues[sessionID] = rest
	}
	return out, nil
}
