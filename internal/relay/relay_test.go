package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/enki09/borg-collective/internal/models"
)

type fakeDirectory struct {
	sessions []models.Session
}

func (f *fakeDirectory) Sessions(ctx context.Context) []models.Session {
	return f.sessions
}

type fakeDeliverer struct {
	delivered map[string][]models.Frame
	failFor   map[string]bool
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{delivered: make(map[string][]models.Frame), failFor: make(map[string]bool)}
}

func (f *fakeDeliverer) Deliver(ctx context.Context, sessionID string, frame models.Frame) error {
	if f.failFor[sessionID] {
		return errors.New("recipient unavailable")
	}
	f.delivered[sessionID] = append(f.delivered[sessionID], frame)
	return nil
}

type fakeSnapshotter struct {
	saves []*models.State
	err   error
}

func (f *fakeSnapshotter) SaveState(ctx context.Context, state *models.State) error {
	if f.err != nil {
		return f.err
	}
	f.saves = append(f.saves, state)
	return nil
}

func testEnvelope(id, speaker, site string) models.Envelope {
	return models.Envelope{
		MessageID:   id,
		Timestamp:   time.Now().UTC(),
		Speaker:     speaker,
		Content:     "content of " + id,
		MessageType: models.TypeAnswer,
		Confidence:  0.8,
		Site:        site,
	}
}

func TestSubmitAppendsInArrivalOrder(t *testing.T) {
	r := New(zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		env := testEnvelope(fmt.Sprintf("id-%d", i), "Claude", "claude")
		if err := r.Submit(ctx, env, ""); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	state := r.State()
	conv, ok := state.Conversations[models.DefaultConversationID]
	if !ok {
		t.Fatal("default conversation missing")
	}
	if len(conv.Messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(conv.Messages))
	}
	for i, msg := range conv.Messages {
		if msg.MessageID != fmt.Sprintf("id-%d", i) {
			t.Fatalf("message %d out of order: %q", i, msg.MessageID)
		}
	}
	if state.LastMessageID != "id-4" {
		t.Fatalf("last message id = %q, want id-4", state.LastMessageID)
	}
}

func TestSubmitRejectsMissingMessageID(t *testing.T) {
	r := New(zerolog.Nop())

	env := testEnvelope("", "Claude", "claude")
	err := r.Submit(context.Background(), env, "")
	if !errors.Is(err, ErrMissingMessageID) {
		t.Fatalf("expected ErrMissingMessageID, got %v", err)
	}

	state := r.State()
	if len(state.Conversations) != 0 {
		t.Fatal("rejected envelope must not mutate state")
	}
	if state.LastMessageID != "" {
		t.Fatal("rejected envelope must not advance last message id")
	}
}

func TestSubmitRoutesByConversationID(t *testing.T) {
	r := New(zerolog.Nop())
	ctx := context.Background()

	a := testEnvelope("a1", "Claude", "claude")
	b := testEnvelope("b1", "Gemini", "gemini")
	b.ConversationID = "side-channel"

	if err := r.Submit(ctx, a, ""); err != nil {
		t.Fatal(err)
	}
	if err := r.Submit(ctx, b, ""); err != nil {
		t.Fatal(err)
	}

	state := r.State()
	if len(state.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(state.Conversations))
	}
	if got := len(state.Conversations["side-channel"].Messages); got != 1 {
		t.Fatalf("side-channel should hold 1 message, got %d", got)
	}
}

func TestFanOutSkipsOrigin(t *testing.T) {
	dir := &fakeDirectory{sessions: []models.Session{
		{ID: "origin", Site: "claude"},
		{ID: "peer-1", Site: "chatgpt"},
		{ID: "peer-2", Site: "gemini"},
	}}
	out := newFakeDeliverer()
	r := New(zerolog.Nop(), WithDirectory(dir), WithDeliverer(out))

	env := testEnvelope("m1", "Claude", "claude")
	if err := r.Submit(context.Background(), env, "origin"); err != nil {
		t.Fatal(err)
	}

	if len(out.delivered["origin"]) != 0 {
		t.Fatal("origin session must not receive its own broadcast")
	}
	for _, peer := range []string{"peer-1", "peer-2"} {
		frames := out.delivered[peer]
		if len(frames) != 1 {
			t.Fatalf("peer %s should receive 1 frame, got %d", peer, len(frames))
		}
		if frames[0].Type != models.FrameBroadcast {
			t.Fatalf("peer %s got frame type %q", peer, frames[0].Type)
		}
	}
}

func TestHumanTurnsNotFannedOut(t *testing.T) {
	dir := &fakeDirectory{sessions: []models.Session{
		{ID: "origin"}, {ID: "peer-1"},
	}}
	out := newFakeDeliverer()
	r := New(zerolog.Nop(), WithDirectory(dir), WithDeliverer(out))

	env := testEnvelope("h1", models.HumanSpeakerPrefix+"Claude", "claude")
	env.MessageType = models.TypeQuestion
	if err := r.Submit(context.Background(), env, "origin"); err != nil {
		t.Fatal(err)
	}

	if len(out.delivered) != 0 {
		t.Fatal("human-authored turns must not be rebroadcast")
	}

	// But the turn is still recorded.
	if r.State().LastMessageID != "h1" {
		t.Fatal("human turn should still be appended")
	}
}

func TestNoFanOutWithoutOrigin(t *testing.T) {
	dir := &fakeDirectory{sessions: []models.Session{{ID: "peer-1"}}}
	out := newFakeDeliverer()
	r := New(zerolog.Nop(), WithDirectory(dir), WithDeliverer(out))

	env := testEnvelope("m1", "Operator", "control")
	if err := r.Submit(context.Background(), env, ""); err != nil {
		t.Fatal(err)
	}
	if len(out.delivered) != 0 {
		t.Fatal("unknown origin should suppress fan-out")
	}
}

func TestFanOutSurvivesPerRecipientFailure(t *testing.T) {
	dir := &fakeDirectory{sessions: []models.Session{
		{ID: "origin"}, {ID: "broken"}, {ID: "healthy"},
	}}
	out := newFakeDeliverer()
	out.failFor["broken"] = true
	r := New(zerolog.Nop(), WithDirectory(dir), WithDeliverer(out))

	env := testEnvelope("m1", "Claude", "claude")
	if err := r.Submit(context.Background(), env, "origin"); err != nil {
		t.Fatalf("recipient failure must not fail the submit: %v", err)
	}
	if len(out.delivered["healthy"]) != 1 {
		t.Fatal("healthy peer should still receive the broadcast")
	}
}

func TestSnapshotFailureIsNonFatal(t *testing.T) {
	snap := &fakeSnapshotter{err: errors.New("disk full")}
	r := New(zerolog.Nop(), WithSnapshotter(snap))

	env := testEnvelope("m1", "Claude", "claude")
	if err := r.Submit(context.Background(), env, ""); err != nil {
		t.Fatalf("snapshot failure must not fail the submit: %v", err)
	}
	if r.State().LastMessageID != "m1" {
		t.Fatal("in-memory state stays authoritative after failed persist")
	}
}

func TestSnapshotTakenPerSubmit(t *testing.T) {
	snap := &fakeSnapshotter{}
	r := New(zerolog.Nop(), WithSnapshotter(snap))
	ctx := context.Background()

	r.Submit(ctx, testEnvelope("m1", "Claude", "claude"), "")
	r.Submit(ctx, testEnvelope("m2", "Claude", "claude"), "")

	if len(snap.saves) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snap.saves))
	}
	// Snapshots are deep copies taken at append time.
	if got := len(snap.saves[0].Conversations[models.DefaultConversationID].Messages); got != 1 {
		t.Fatalf("first snapshot should hold 1 message, got %d", got)
	}
	if got := len(snap.saves[1].Conversations[models.DefaultConversationID].Messages); got != 2 {
		t.Fatalf("second snapshot should hold 2 messages, got %d", got)
	}
}

func TestResetClearsStateAndPersistsEmpty(t *testing.T) {
	snap := &fakeSnapshotter{}
	r := New(zerolog.Nop(), WithSnapshotter(snap))
	ctx := context.Background()

	r.Submit(ctx, testEnvelope("m1", "Claude", "claude"), "")
	r.Reset(ctx)

	state := r.State()
	if len(state.Conversations) != 0 || state.LastMessageID != "" {
		t.Fatalf("reset should clear everything, got %+v", state)
	}

	last := snap.saves[len(snap.saves)-1]
	if len(last.Conversations) != 0 {
		t.Fatal("reset should persist an empty snapshot")
	}
}

func TestStateReturnsDeepCopy(t *testing.T) {
	r := New(zerolog.Nop())
	r.Submit(context.Background(), testEnvelope("m1", "Claude", "claude"), "")

	state := r.State()
	state.Conversations[models.DefaultConversationID].Messages[0].Content = "tampered"
	state.LastMessageID = "tampered"

	fresh := r.State()
	if fresh.Conversations[models.DefaultConversationID].Messages[0].Content == "tampered" {
		t.Fatal("callers must not be able to mutate relay state through State()")
	}
	if fresh.LastMessageID != "m1" {
		t.Fatal("last message id leaked by reference")
	}
}

func TestCrossSiteRelayScenario(t *testing.T) {
	// A Claude answer captured in one tab reaches the ChatGPT and Gemini tabs
	// but not the Claude tab it came from.
	dir := &fakeDirectory{sessions: []models.Session{
		{ID: "claude-tab", Site: "claude"},
		{ID: "chatgpt-tab", Site: "chatgpt"},
		{ID: "gemini-tab", Site: "gemini"},
	}}
	out := newFakeDeliverer()
	r := New(zerolog.Nop(), WithDirectory(dir), WithDeliverer(out))
	ctx := context.Background()

	question := testEnvelope("q1", models.HumanSpeakerPrefix+"Claude", "claude")
	question.MessageType = models.TypeQuestion
	answer := testEnvelope("a1", "Claude", "claude")

	r.Submit(ctx, question, "claude-tab")
	r.Submit(ctx, answer, "claude-tab")

	if len(out.delivered["claude-tab"]) != 0 {
		t.Fatal("origin tab must receive nothing")
	}
	if len(out.delivered["chatgpt-tab"]) != 1 || len(out.delivered["gemini-tab"]) != 1 {
		t.Fatalf("peers should each receive exactly the answer: %+v", out.delivered)
	}

	var relayed models.Envelope
	if err := json.Unmarshal(out.delivered["chatgpt-tab"][0].Payload, &relayed); err != nil {
		t.Fatalf("decode broadcast payload: %v", err)
	}
	if relayed.MessageID != "a1" {
		t.Fatalf("relayed envelope id = %q, want a1", relayed.MessageID)
	}
}
