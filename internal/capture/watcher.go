// Package capture runs the per-session pipeline: observed subtree insertions
// are extracted into raw turns, deduplicated, wrapped into envelopes, and
// submitted to the relay.
package capture

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/enki09/borg-collective/internal/extract"
	"github.com/enki09/borg-collective/internal/metrics"
	"github.com/enki09/borg-collective/internal/models"
)

// Source feeds the watcher with document content. Implementations filter out
// non-element insertions before serializing.
type Source interface {
	// Document returns the full current document markup, for the one-time
	// startup pass over content present before observation began.
	Document(ctx context.Context) (string, error)
	// Mutations streams serialized markup of each subtree inserted after
	// observation begins. The channel closes when observation ends.
	Mutations(ctx context.Context) (<-chan string, error)
}

// Submitter delivers an envelope to the relay.
type Submitter interface {
	Submit(ctx context.Context, env models.Envelope) error
}

// Watcher drives one session's capture pipeline for the session's lifetime.
type Watcher struct {
	source    Source
	extractor extract.Extractor
	dedup     *Deduper
	builder   *Builder
	submitter Submitter
	logger    zerolog.Logger
}

// NewWatcher wires a capture pipeline.
func NewWatcher(src Source, ex extract.Extractor, dedup *Deduper, builder *Builder, sub Submitter, logger zerolog.Logger) *Watcher {
	return &Watcher{
		source:    src,
		extractor: ex,
		dedup:     dedup,
		builder:   builder,
		submitter: sub,
		logger:    logger,
	}
}

// Run performs the startup sweep and then processes mutations until the
// context is canceled or the source closes.
func (w *Watcher) Run(ctx context.Context) error {
	doc, err := w.source.Document(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("initial document sweep failed")
	} else {
		w.process(ctx, doc)
	}

	mutations, err := w.source.Mutations(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case markup, ok := <-mutations:
			if !ok {
				return nil
			}
			w.process(ctx, markup)
		}
	}
}

// process extracts turns from one subtree and submits the accepted ones in
// observation order.
func (w *Watcher) process(ctx context.Context, markup string) {
	if markup == "" {
		return
	}
	root, err := extract.ParseFragment(markup)
	if err != nil {
		w.logger.Debug().Err(err).Msg("unparseable subtree skipped")
		return
	}
	site := w.builder.profile.Site
	for _, cand := range w.extractor.Extract(root) {
		metrics.TurnsExtracted.WithLabelValues(site).Inc()
		if !w.dedup.Accept(site, cand.Role, cand.Text) {
			metrics.DedupSuppressed.WithLabelValues(site).Inc()
			continue
		}

		speaker := w.builder.profile.ModelLabel
		msgType := models.TypeAnswer
		if cand.Role == extract.RoleHuman {
			speaker = models.HumanSpeakerPrefix + w.builder.profile.ModelLabel
			msgType = models.TypeQuestion
		}

		env := w.builder.Build(BuildInput{
			Content:     cand.Text,
			Speaker:     speaker,
			MessageType: msgType,
			Tags:        []string{"auto-captured"},
		})
		if err := w.submitter.Submit(ctx, env); err != nil {
			w.logger.Warn().Err(err).Str("message_id", env.MessageID).Msg("submit failed")
		}
	}
}
