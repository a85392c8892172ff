// Package relay implements the orchestration core: it accepts envelopes from
// any session, appends them to the conversation store, requests durable
// snapshots, and fans AI-authored envelopes out to peer sessions.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/enki09/borg-collective/internal/metrics"
	"github.com/enki09/borg-collective/internal/models"
)

// ErrMissingMessageID rejects envelopes without an identifier.
var ErrMissingMessageID = errors.New("envelope has no message_id")

// Directory enumerates the currently known capture sessions.
type Directory interface {
	Sessions(ctx context.Context) []models.Session
}

// Deliverer hands a frame to one session, best-effort. No delivery guarantee;
// implementations must not block on the recipient.
type Deliverer interface {
	Deliver(ctx context.Context, sessionID string, frame models.Frame) error
}

// Snapshotter durably persists the full store. Called after every accepted
// append; failures are logged, never fatal.
type Snapshotter interface {
	SaveState(ctx context.Context, state *models.State) error
}

// Relay owns the in-memory conversation store for one relay process.
// All mutation goes through Submit and Reset.
type Relay struct {
	mu     sync.Mutex
	state  *models.State
	now    func() time.Time
	dir    Directory
	out    Deliverer
	snap   Snapshotter
	logger zerolog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithDirectory sets the session directory used for fan-out.
func WithDirectory(d Directory) Option { return func(r *Relay) { r.dir = d } }

// WithDeliverer sets the peer delivery transport.
func WithDeliverer(d Deliverer) Option { return func(r *Relay) { r.out = d } }

// WithSnapshotter sets the durable snapshot store.
func WithSnapshotter(s Snapshotter) Option { return func(r *Relay) { r.snap = s } }

// New creates an empty relay.
func New(logger zerolog.Logger, opts ...Option) *Relay {
	r := &Relay{
		state:  models.NewState(),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit validates and appends an envelope, persists a snapshot, and fans the
// envelope out to peers when it is AI-authored and the origin is known.
// Success is determined by validation and append alone; snapshot and fan-out
// outcomes are observed only for logging.
func (r *Relay) Submit(ctx context.Context, env models.Envelope, originSessionID string) error {
	if env.MessageID == "" {
		metrics.EnvelopesRejected.WithLabelValues("missing_id").Inc()
		return ErrMissingMessageID
	}

	convID := env.ConversationID
	if convID == "" {
		convID = models.DefaultConversationID
	}

	r.mu.Lock()
	conv := r.ensureLocked(convID)
	conv.Messages = append(conv.Messages, env)
	conv.UpdatedAt = r.now().UTC()
	r.state.LastMessageID = env.MessageID
	snapshot := r.state.Clone()
	r.mu.Unlock()

	r.logger.Info().
		Str("speaker", env.Speaker).
		Str("site", env.Site).
		Str("conversation", convID).
		Str("message_id", env.MessageID).
		Msg("envelope accepted")
	metrics.EnvelopesSubmitted.WithLabelValues(env.Site).Inc()

	r.persist(ctx, snapshot)

	if !env.HumanAuthored() && originSessionID != "" {
		r.fanOut(ctx, env, originSessionID)
	}

	return nil
}

// State returns a deep-copy snapshot of the full store.
func (r *Relay) State() *models.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Reset clears all conversations and the last-message marker, then persists
// the empty state. The only deletion path.
func (r *Relay) Reset(ctx context.Context) {
	r.mu.Lock()
	r.state = models.NewState()
	snapshot := r.state.Clone()
	r.mu.Unlock()

	r.logger.Info().Msg("relay state reset")
	r.persist(ctx, snapshot)
}

// ensureLocked returns the conversation, creating it if absent.
// Caller holds r.mu.
func (r *Relay) ensureLocked(id string) *models.Conversation {
	if conv, ok := r.state.Conversations[id]; ok {
		return conv
	}
	now := r.now().UTC()
	conv := &models.Conversation{ID: id, CreatedAt: now, UpdatedAt: now}
	r.state.Conversations[id] = conv
	return conv
}

// persist requests a durable snapshot. In-memory state stays authoritative;
// a failed persist is logged and not retried.
func (r *Relay) persist(ctx context.Context, snapshot *models.State) {
	if r.snap == nil {
		return
	}
	if err := r.snap.SaveState(ctx, snapshot); err != nil {
		metrics.SnapshotFailures.Inc()
		r.logger.Warn().Err(err).Msg("snapshot persist failed")
	}
}

// fanOut delivers the envelope to every known session except the origin.
// Per-recipient failure is swallowed and does not affect the others.
func (r *Relay) fanOut(ctx context.Context, env models.Envelope, originSessionID string) {
	if r.dir == nil || r.out == nil {
		return
	}
	frame, err := models.BroadcastFrame(env)
	if err != nil {
		r.logger.Warn().Err(err).Msg("broadcast frame encode failed")
		return
	}
	for _, sess := range r.dir.Sessions(ctx) {
		if sess.ID == originSessionID {
			continue
		}
		if err := r.out.Deliver(ctx, sess.ID, frame); err != nil {
			// Routine: the peer may have no listener yet.
			metrics.DeliveryFailures.Inc()
			r.logger.Debug().Err(err).Str("session", sess.ID).Msg("broadcast delivery failed")
			continue
		}
		metrics.BroadcastsDelivered.Inc()
	}
}
