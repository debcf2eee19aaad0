package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nadzzz/storefront/internal/llm"
	"github.com/nadzzz/storefront/internal/persona"
	"github.com/nadzzz/storefront/internal/session"
	"github.com/nadzzz/storefront/internal/summary"
	"github.com/nadzzz/storefront/internal/tone"
	"github.com/nadzzz/storefront/internal/tts"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.text != "" {
		return f.text, nil
	}
	return string(audio), nil
}

// toneBook answers the classifier from a phrase -> label table.
type toneBook struct {
	labels map[string]string
	err    error
}

func (b *toneBook) Complete(_ context.Context, _, user string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	for phrase, label := range b.labels {
		if strings.Contains(user, phrase) {
			return label, nil
		}
	}
	return "professional", nil
}

type fakeResponder struct {
	mu       sync.Mutex
	requests []llm.Request
	err      error
}

func (f *fakeResponder) Respond(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{
		ID:   fmt.Sprintf("resp_%d", len(f.requests)),
		Text: "Reply " + fmt.Sprint(len(f.requests)),
	}, nil
}

func (f *fakeResponder) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeSynthesizer struct {
	err error
}

func (f *fakeSynthesizer) Name() string { return "fake" }

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string, _ tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &tts.SynthesizeResult{Audio: []byte("mp3:" + text), ContentType: "audio/mpeg"}, nil
}

func (f *fakeSynthesizer) Close() error { return nil }

type fakeCritic struct {
	out   string
	err   error
	calls int
}

func (f *fakeCritic) Complete(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.out, f.err
}

type harness struct {
	orch      *Orchestrator
	store     *session.MemoryStore
	stt       *fakeTranscriber
	tones     *toneBook
	responder *fakeResponder
	synth     *fakeSynthesizer
	critic    *fakeCritic
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: session.NewMemoryStore(0),
		stt:   &fakeTranscriber{},
		tones: &toneBook{labels: map[string]string{
			"your fault": "Defensive.",
			"Whatever":   "nonchalant",
			"Not my":     "Nonchalant",
			"Calm down":  "**rude**",
		}},
		responder: &fakeResponder{},
		synth:     &fakeSynthesizer{},
		critic:    &fakeCritic{out: "**Overall Handling**\n- Fine."},
	}
	h.orch = New(Components{
		Store:       h.store,
		Transcriber: h.stt,
		Classifier:  tone.NewClassifier(h.tones),
		Persona:     persona.NewEngine(h.responder, persona.WithThreshold(3)),
		Summarizer:  summary.New(h.critic, 0),
		Synthesizer: h.synth,
	})
	return h
}

func (h *harness) log(t *testing.T, id string) []session.TurnRecord {
	t.Helper()
	st, err := h.store.Load(context.Background(), id)
	require.NoError(t, err)
	return st.Log
}

func TestRunTextTurn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.orch.Run(ctx, "s1", Input{Text: "  Calm down, sir  "})
	require.NoError(t, err)
	require.Equal(t, "Calm down, sir", res.Record.UserUtterance)
	require.Equal(t, tone.Rude, res.Record.Tone)
	require.Equal(t, "Reply 1", res.Record.PersonaReply)
	require.Equal(t, 1, res.Thread.BadStreak)
	require.Equal(t, "resp_1", res.Thread.ResponseID)
	require.Equal(t, 1, res.Turns)
	require.Equal(t, "audio/mpeg", res.AudioContentType)
	require.Equal(t, []byte("mp3:Reply 1"), res.Audio)
	require.Empty(t, res.Warnings())

	log := h.log(t, "s1")
	require.Len(t, log, 1)
	require.Equal(t, res.Record, log[0])
}

func TestRunAudioTurn(t *testing.T) {
	h := newHarness(t)

	res, err := h.orch.Run(context.Background(), "s1", Input{Audio: []byte("This is your fault, not mine"), ContentType: "audio/webm"})
	require.NoError(t, err)
	require.Equal(t, "This is your fault, not mine", res.Record.UserUtterance)
	require.Equal(t, tone.Defensive, res.Record.Tone)
}

func TestScenarioDefensiveThenRefund(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.orch.Run(ctx, "s1", Input{Text: "This is your fault, not mine"})
	require.NoError(t, err)
	require.Equal(t, tone.Defensive, first.Record.Tone)
	require.Equal(t, 1, first.Thread.BadStreak)
	require.Equal(t, persona.OutcomeOngoing, first.Thread.Outcome)
	require.Empty(t, h.responder.last().PreviousResponseID)

	second, err := h.orch.Run(ctx, "s1", Input{Text: "Whatever, here's the refund"})
	require.NoError(t, err)
	require.Contains(t, []tone.Label{tone.Nonchalant, tone.Professional}, second.Record.Tone)
	require.Equal(t, persona.OutcomeResolved, second.Thread.Outcome)
	require.Equal(t, "resp_1", h.responder.last().PreviousResponseID)
	require.Contains(t, h.responder.last().System, "concrete solution")

	require.Len(t, h.log(t, "s1"), 2)
}

func TestFrustrationEnding(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var res *Result
	var err error
	for _, text := range []string{"Calm down", "It's your fault", "Not my problem"} {
		res, err = h.orch.Run(ctx, "s1", Input{Text: text})
		require.NoError(t, err)
	}
	require.Equal(t, 3, res.Thread.BadStreak)
	require.Equal(t, persona.OutcomeFrustrated, res.Thread.Outcome)
	require.Contains(t, h.responder.last().System, "walk away")

	tones := []tone.Label{}
	for _, rec := range h.log(t, "s1") {
		tones = append(tones, rec.Tone)
	}
	require.Equal(t, []tone.Label{tone.Rude, tone.Defensive, tone.Nonchalant}, tones)
}

func TestResolvedAfterAnyHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, text := range []string{"Calm down", "It's your fault", "Not my problem", "Whatever"} {
		_, err := h.orch.Run(ctx, "s1", Input{Text: text})
		require.NoError(t, err)
	}
	res, err := h.orch.Run(ctx, "s1", Input{Text: "Here's a full refund, I'm sorry"})
	require.NoError(t, err)
	require.Equal(t, persona.OutcomeResolved, res.Thread.Outcome)
	require.Len(t, h.log(t, "s1"), 5)
}

func TestTranscriptionFailureCommitsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.orch.Run(ctx, "s1", Input{Text: "hello"})
	require.NoError(t, err)

	h.stt.err = errors.New("whisper down")
	_, err = h.orch.Run(ctx, "s1", Input{Audio: []byte{1, 2, 3}})
	require.ErrorIs(t, err, ErrTranscriptionUnavailable)

	h.stt.err = nil
	h.stt.text = "   "
	_, err = h.orch.Run(ctx, "s1", Input{Audio: []byte{1, 2, 3}})
	require.ErrorIs(t, err, ErrTranscriptionUnavailable)

	require.Len(t, h.log(t, "s1"), 1)
	require.Len(t, h.responder.requests, 1)
}

func TestGenerationFailureCommitsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.orch.Run(ctx, "s1", Input{Text: "It's your fault"})
	require.NoError(t, err)

	h.responder.err = errors.New("503")
	_, err = h.orch.Run(ctx, "s1", Input{Text: "Calm down"})
	require.ErrorIs(t, err, persona.ErrGenerationUnavailable)

	st, err := h.store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, st.Log, 1)
	require.Equal(t, first.Thread, st.Thread)
}

func TestClassificationFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.tones.err = errors.New("timeout")

	res, err := h.orch.Run(context.Background(), "s1", Input{Text: "Calm down"})
	require.NoError(t, err)
	require.Equal(t, tone.Unknown, res.Record.Tone)
	require.Equal(t, 0, res.Thread.BadStreak)
	require.ErrorIs(t, res.ClassificationErr, tone.ErrClassificationUnavailable)
	require.Len(t, res.Warnings(), 1)
	require.Len(t, h.log(t, "s1"), 1)
}

func TestUnmappedToneIsUnknown(t *testing.T) {
	h := newHarness(t)
	h.tones.labels = map[string]string{"hello": "angry"}

	res, err := h.orch.Run(context.Background(), "s1", Input{Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, tone.Unknown, res.Record.Tone)
	require.True(t, res.Record.Tone.Valid())
}

func TestSynthesisFailureDegrades(t *testing.T) {
	h := newHarness(t)
	h.synth.err = errors.New("quota")

	res, err := h.orch.Run(context.Background(), "s1", Input{Text: "hello"})
	require.NoError(t, err)
	require.Nil(t, res.Audio)
	require.ErrorIs(t, res.SynthesisErr, ErrSynthesisUnavailable)
	require.Equal(t, "Reply 1", res.Record.PersonaReply)
	require.Len(t, h.log(t, "s1"), 1)
}

func TestSynthesisDisabled(t *testing.T) {
	h := newHarness(t)
	h.orch.synthesizer = nil

	res, err := h.orch.Run(context.Background(), "s1", Input{Text: "hello"})
	require.NoError(t, err)
	require.Nil(t, res.Audio)
	require.ErrorIs(t, res.SynthesisErr, ErrSynthesisUnavailable)
}

func TestRunRejectsEmptyInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Run(context.Background(), "s1", Input{Text: "  "})
	require.ErrorIs(t, err, ErrNoInput)

	_, err = h.orch.Run(context.Background(), "", Input{Text: "hi"})
	require.ErrorIs(t, err, session.ErrNoSessionID)
	require.Empty(t, h.responder.requests)
}

func TestSessionsAreIndependent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Run(ctx, "a", Input{Text: "Calm down"})
	require.NoError(t, err)
	res, err := h.orch.Run(ctx, "b", Input{Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, 0, res.Thread.BadStreak)
	require.Empty(t, h.responder.last().PreviousResponseID)
}

func TestStartResets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, text := range []string{"Calm down", "It's your fault"} {
		_, err := h.orch.Run(ctx, "s1", Input{Text: text})
		require.NoError(t, err)
	}

	st, err := h.orch.Start(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, st.Log)
	require.Equal(t, persona.Thread{}, st.Thread)

	st, err = h.orch.State(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, st.Log)
	require.Equal(t, persona.Thread{}, st.Thread)
}

func TestEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, err := h.orch.End(ctx, "s1")
	require.NoError(t, err)
	require.True(t, c.Empty)
	require.Zero(t, h.critic.calls)

	_, err = h.orch.Run(ctx, "s1", Input{Text: "hello"})
	require.NoError(t, err)
	c, err = h.orch.End(ctx, "s1")
	require.NoError(t, err)
	require.False(t, c.Empty)
	require.Equal(t, 1, c.Turns)
	require.Equal(t, 1, h.critic.calls)

	h.critic.err = errors.New("boom")
	_, err = h.orch.End(ctx, "s1")
	require.ErrorIs(t, err, summary.ErrSummaryUnavailable)
	require.Len(t, h.log(t, "s1"), 1)
}
