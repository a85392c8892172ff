package store

import (
	"context"

	"github.com/enki09/borg-collective/internal/models"
)

// SnapshotStore defines the interface for durable persistence of the relay's
// conversation log. Both PostgresStore and SQLiteStore implement it.
type SnapshotStore interface {
	Close()
	Ping(ctx context.Context) error

	// SaveState persists a full store snapshot. The conversation log is
	// append-only, so replaying a snapshot only ever adds rows; an empty
	// snapshot signals a reset and clears the durable log.
	SaveState(ctx context.Context, state *models.State) error
}

// Inbox is the best-effort delivery transport between the relay and capture
// sessions. Pushes must not block on the recipient; frames may be dropped.
type Inbox interface {
	Ping(ctx context.Context) error

	// Deliver enqueues a frame for one session.
	Deliver(ctx context.Context, sessionID string, frame models.Frame) error

	// Poll drains up to limit pending frames for a session, oldest first.
	Poll(ctx context.Context, sessionID string, limit int) ([]models.Frame, error)
}
