package capture

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/enki09/borg-collective/internal/models"
	"github.com/enki09/borg-collective/internal/profile"
)

// defaultConfidence is a static placeholder; models may self-assess later.
const defaultConfidence = 0.8

// BuildInput carries the caller-supplied parts of an envelope. Malformed
// optional fields are defaulted, never rejected.
type BuildInput struct {
	Content     string
	Speaker     string
	MessageType string
	ReplyTo     string
	Tags        []string
}

// Builder converts accepted raw turns into canonical message envelopes,
// stamping identity, time, and session context.
type Builder struct {
	profile profile.Profile
	pageURL string
	now     func() time.Time
	newID   func() string
}

// NewBuilder returns a builder bound to the session's site profile and page
// address.
func NewBuilder(p profile.Profile, pageURL string) *Builder {
	return &Builder{
		profile: p,
		pageURL: pageURL,
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
	}
}

// Build assembles an envelope. Never fails.
func (b *Builder) Build(in BuildInput) models.Envelope {
	msgType := in.MessageType
	if msgType == "" {
		msgType = models.TypeNote
	}
	tags := make([]string, 0, len(in.Tags)+1)
	tags = append(tags, in.Tags...)
	tags = append(tags, b.profile.Site)
	return models.Envelope{
		MessageID:   b.newID(),
		Timestamp:   b.now().UTC(),
		Speaker:     in.Speaker,
		ReplyTo:     in.ReplyTo,
		Content:     in.Content,
		MessageType: msgType,
		Confidence:  defaultConfidence,
		Tags:        tags,
		Site:        b.profile.Site,
		ModelHint:   b.profile.ModelLabel,
		URL:         b.pageURL,
	}
}
