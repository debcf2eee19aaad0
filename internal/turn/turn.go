// Package turn runs one salesperson utterance through the simulation.
//
// A turn is: load state → transcribe → classify tone → advance persona →
// synthesize reply → commit. Classification and synthesis failures degrade
// the turn; transcription and generation failures abort it and leave the
// session untouched. State changes are made on a copy and saved once.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nadzzz/storefront/internal/observability"
	"github.com/nadzzz/storefront/internal/persona"
	"github.com/nadzzz/storefront/internal/session"
	"github.com/nadzzz/storefront/internal/stt"
	"github.com/nadzzz/storefront/internal/summary"
	"github.com/nadzzz/storefront/internal/tone"
	"github.com/nadzzz/storefront/internal/tts"
)

var (
	// ErrTranscriptionUnavailable aborts a turn whose audio could not be transcribed.
	ErrTranscriptionUnavailable = errors.New("transcription unavailable")

	// ErrSynthesisUnavailable marks a turn that completed without audio.
	ErrSynthesisUnavailable = errors.New("synthesis unavailable")

	// ErrNoInput is returned for a turn with neither audio nor text.
	ErrNoInput = errors.New("turn has no audio and no text")
)

const saveTimeout = 5 * time.Second

// Input is one salesperson utterance. Text, when set, bypasses transcription.
type Input struct {
	Audio       []byte
	ContentType string
	Text        string
}

// Result is the outcome of a committed turn.
type Result struct {
	Record           session.TurnRecord
	Thread           persona.Thread
	Turns            int
	Audio            []byte
	AudioContentType string

	// ClassificationErr is set when the tone fell back to unknown.
	ClassificationErr error

	// SynthesisErr is set when no audio was produced.
	SynthesisErr error
}

// Warnings lists the degraded stages of the turn.
func (r *Result) Warnings() []string {
	var w []string
	if r.ClassificationErr != nil {
		w = append(w, r.ClassificationErr.Error())
	}
	if r.SynthesisErr != nil {
		w = append(w, r.SynthesisErr.Error())
	}
	return w
}

// Components are the collaborators an Orchestrator drives.
type Components struct {
	Store       session.Store
	Transcriber stt.Transcriber
	Classifier  *tone.Classifier
	Persona     *persona.Engine
	Summarizer  *summary.Summarizer

	// Synthesizer is optional; nil disables audio replies.
	Synthesizer tts.Synthesizer

	// Language selects the synthesis voice (ISO-639-1). Defaults to "en".
	Language string
}

// Orchestrator sequences the stages of each turn and the session lifecycle.
type Orchestrator struct {
	store       session.Store
	transcriber stt.Transcriber
	classifier  *tone.Classifier
	persona     *persona.Engine
	summarizer  *summary.Summarizer
	synthesizer tts.Synthesizer
	language    string
	tracer      trace.Tracer
}

// New creates an Orchestrator.
func New(c Components) *Orchestrator {
	lang := c.Language
	if lang == "" {
		lang = "en"
	}
	return &Orchestrator{
		store:       c.Store,
		transcriber: c.Transcriber,
		classifier:  c.Classifier,
		persona:     c.Persona,
		summarizer:  c.Summarizer,
		synthesizer: c.Synthesizer,
		language:    lang,
		tracer:      observability.Tracer(),
	}
}

// Run executes one turn for sessionID. On error nothing is committed.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, in Input) (*Result, error) {
	if sessionID == "" {
		return nil, session.ErrNoSessionID
	}
	ctx, span := o.tracer.Start(ctx, "turn.run", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	start := time.Now()
	logger := slog.With("session_id", sessionID)

	res, err := o.run(ctx, logger, sessionID, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "turn aborted", "error", err, "duration", time.Since(start))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("turn.tone", string(res.Record.Tone)),
		attribute.Int("turn.bad_streak", res.Thread.BadStreak),
		attribute.String("turn.outcome", string(res.Thread.Outcome)),
	)
	logger.InfoContext(ctx, "turn complete",
		"tone", res.Record.Tone,
		"bad_streak", res.Thread.BadStreak,
		"outcome", res.Thread.Outcome,
		"turns", res.Turns,
		"duration", time.Since(start),
	)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, logger *slog.Logger, sessionID string, in Input) (*Result, error) {
	st, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	work := st.Clone()

	// Step 1: Transcribe audio (or take the text as-is).
	utterance, err := o.transcribe(ctx, logger, in)
	if err != nil {
		return nil, err
	}

	// Step 2: Classify tone. Failure degrades to unknown.
	label, classErr := o.classify(ctx, utterance)
	if classErr != nil {
		logger.WarnContext(ctx, "tone classification failed, continuing with unknown", "error", classErr)
	}

	// Step 3: Advance the persona. Failure aborts the turn.
	step, err := o.advance(ctx, work.Thread, utterance, label)
	if err != nil {
		return nil, err
	}

	// Step 4: Speak the reply. Failure degrades to text only.
	res := &Result{
		Thread:            step.Thread,
		ClassificationErr: classErr,
	}
	o.synthesize(ctx, logger, step.Reply, res)

	// Step 5: Commit.
	res.Record = session.TurnRecord{
		UserUtterance: utterance,
		Tone:          label,
		PersonaReply:  step.Reply,
		At:            time.Now().UTC(),
	}
	work.Commit(res.Record, step.Thread)

	// The reply has been paid for; a client hanging up must not lose it.
	saveCtx, cancel := context.WithTimeout(observability.DetachTraceContext(ctx), saveTimeout)
	defer cancel()
	if err := o.store.Save(saveCtx, work); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	res.Turns = work.Turns()
	return res, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, logger *slog.Logger, in Input) (string, error) {
	if text := strings.TrimSpace(in.Text); text != "" {
		logger.DebugContext(ctx, "using text input directly")
		return text, nil
	}
	if len(in.Audio) == 0 {
		return "", ErrNoInput
	}

	ctx, span := o.tracer.Start(ctx, "turn.transcribe", trace.WithAttributes(
		attribute.String("stt.backend", o.transcriber.Name()),
		attribute.Int("audio.bytes", len(in.Audio)),
	))
	defer span.End()

	logger.DebugContext(ctx, "transcribing audio", "content_type", in.ContentType, "bytes", len(in.Audio))
	text, err := o.transcriber.Transcribe(ctx, in.Audio, in.ContentType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcription failed")
		return "", fmt.Errorf("%w: %v", ErrTranscriptionUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		span.SetStatus(codes.Error, "empty transcript")
		return "", fmt.Errorf("%w: empty transcript", ErrTranscriptionUnavailable)
	}
	logger.InfoContext(ctx, "transcription complete", "text_length", len(text))
	return text, nil
}

func (o *Orchestrator) classify(ctx context.Context, utterance string) (tone.Label, error) {
	ctx, span := o.tracer.Start(ctx, "turn.classify")
	defer span.End()

	label, err := o.classifier.Classify(ctx, utterance)
	if err != nil {
		span.RecordError(err)
		return tone.Unknown, err
	}
	span.SetAttributes(attribute.String("tone", string(label)))
	return label, nil
}

func (o *Orchestrator) advance(ctx context.Context, thread persona.Thread, utterance string, label tone.Label) (*persona.Step, error) {
	ctx, span := o.tracer.Start(ctx, "turn.advance", trace.WithAttributes(
		attribute.Bool("persona.continued", thread.ResponseID != ""),
	))
	defer span.End()

	step, err := o.persona.Advance(ctx, thread, utterance, label)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, err
	}
	return step, nil
}

func (o *Orchestrator) synthesize(ctx context.Context, logger *slog.Logger, reply string, res *Result) {
	if o.synthesizer == nil {
		res.SynthesisErr = fmt.Errorf("%w: text-to-speech disabled", ErrSynthesisUnavailable)
		return
	}

	ctx, span := o.tracer.Start(ctx, "turn.synthesize", trace.WithAttributes(
		attribute.String("tts.backend", o.synthesizer.Name()),
	))
	defer span.End()

	out, err := o.synthesizer.Synthesize(ctx, reply, tts.SynthesizeOpts{Language: o.language})
	if err == nil && len(out.Audio) == 0 {
		err = errors.New("no audio returned")
	}
	if err != nil {
		span.RecordError(err)
		res.SynthesisErr = fmt.Errorf("%w: %v", ErrSynthesisUnavailable, err)
		logger.WarnContext(ctx, "TTS synthesis failed, continuing without audio", "error", err)
		return
	}
	res.Audio = out.Audio
	res.AudioContentType = out.ContentType
	logger.InfoContext(ctx, "TTS synthesis complete", "audio_bytes", len(out.Audio))
}

// Start resets sessionID to an empty log and initial thread.
func (o *Orchestrator) Start(ctx context.Context, sessionID string) (*session.State, error) {
	if sessionID == "" {
		return nil, session.ErrNoSessionID
	}
	st, err := o.store.Reset(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resetting session: %w", err)
	}
	slog.InfoContext(ctx, "session started", "session_id", sessionID)
	return st, nil
}

// State returns the committed state of sessionID.
func (o *Orchestrator) State(ctx context.Context, sessionID string) (*session.State, error) {
	if sessionID == "" {
		return nil, session.ErrNoSessionID
	}
	st, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return st, nil
}

// End critiques the committed log of sessionID. The session is left as is.
func (o *Orchestrator) End(ctx context.Context, sessionID string) (*summary.Critique, error) {
	if sessionID == "" {
		return nil, session.ErrNoSessionID
	}
	ctx, span := o.tracer.Start(ctx, "session.end", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	st, err := o.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	critique, err := o.summarizer.Summarize(ctx, st.Log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "summary failed")
		slog.WarnContext(ctx, "session summary failed", "session_id", sessionID, "turns", st.Turns(), "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("session.turns", critique.Turns))
	slog.InfoContext(ctx, "session ended", "session_id", sessionID, "turns", st.Turns(), "empty", critique.Empty)
	return critique, nil
}
