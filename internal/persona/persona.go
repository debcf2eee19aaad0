// Package persona drives the simulated angry customer.
//
// Each turn renders a tone-conditioned instruction, tracks the run of bad
// interactions and hands the utterance to a Responder together with the
// continuation token of the previous turn. Conversational memory lives with
// the provider; the engine never replays history.
package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nadzzz/storefront/internal/llm"
	"github.com/nadzzz/storefront/internal/tone"
)

// DefaultFrustrationThreshold is the number of consecutive negative turns
// after which the customer walks away.
const DefaultFrustrationThreshold = 3

// ErrGenerationUnavailable is returned when no reply could be generated.
// The turn must be aborted.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// Outcome records how (and whether) the conversation ended.
type Outcome string

const (
	OutcomeOngoing    Outcome = ""
	OutcomeResolved   Outcome = "resolved"
	OutcomeFrustrated Outcome = "frustrated"
)

// Ended reports whether the conversation reached an ending.
func (o Outcome) Ended() bool { return o != OutcomeOngoing }

// Thread is the per-session conversation state. The zero value is the
// state before the first turn.
type Thread struct {
	// ResponseID is the provider-issued continuation token of the last turn.
	ResponseID string `json:"response_id,omitempty"`

	// BadStreak counts consecutive rude, defensive or nonchalant turns.
	BadStreak int `json:"bad_streak"`

	// Outcome is the ending reached on the most recent turn, if any.
	Outcome Outcome `json:"outcome,omitempty"`
}

// NextBadStreak returns the counter after a turn with the given tone.
func NextBadStreak(prev int, l tone.Label) int {
	if l.Negative() {
		return prev + 1
	}
	return 0
}

var remedyPattern = regexp.MustCompile(`(?i)\b(refund(ed|ing|s)?|repair(ed|ing|s)?|replace(d|ment|ments)?|exchange|store credit|i['’]?m (so |very |truly |really )?sorry|i am (so |very |truly |really )?sorry|(i|we) apologi[sz]e|my apologies)\b`)

var (
	clauseBoundary  = regexp.MustCompile(`(?i)[.,;:!?]+|\b(but|however|although)\b`)
	negationPattern = regexp.MustCompile(`(?i)\b(no|not|never|cannot|unable|nothing|without|dont|wont|cant|doesnt|isnt)\b|n['’]t\b`)
)

// DetectRemedy reports whether utterance offers a concrete solution:
// a refund, repair, replacement, exchange, store credit or an apology.
// A match preceded by a negation in the same clause ("no refunds",
// "we don't do repairs") is a refusal, not an offer.
func DetectRemedy(utterance string) bool {
	for _, clause := range clauseBoundary.Split(utterance, -1) {
		for _, loc := range remedyPattern.FindAllStringIndex(clause, -1) {
			if !negationPattern.MatchString(clause[:loc[0]]) {
				return true
			}
		}
	}
	return false
}

// Step is the result of advancing the conversation by one turn.
type Step struct {
	Reply  string
	Thread Thread
}

// Engine advances persona conversations.
type Engine struct {
	responder llm.Responder
	scenario  Scenario
	threshold int
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the frustration threshold. Non-positive values are ignored.
func WithThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.threshold = n
		}
	}
}

// WithScenario overrides the default broken-product scenario.
func WithScenario(s Scenario) Option {
	return func(e *Engine) { e.scenario = s }
}

// NewEngine creates an Engine using r for generation.
func NewEngine(r llm.Responder, opts ...Option) *Engine {
	e := &Engine{
		responder: r,
		scenario:  DefaultScenario,
		threshold: DefaultFrustrationThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured frustration threshold.
func (e *Engine) Threshold() int { return e.threshold }

// Instruction renders the system instruction for a turn without calling the backend.
func (e *Engine) Instruction(thread Thread, utterance string, l tone.Label) (string, Thread, error) {
	if !l.Valid() {
		l = tone.Unknown
	}
	next := Thread{
		ResponseID: thread.ResponseID,
		BadStreak:  NextBadStreak(thread.BadStreak, l),
	}

	remedy := DetectRemedy(utterance)
	switch {
	case remedy:
		next.Outcome = OutcomeResolved
	case next.BadStreak >= e.threshold:
		next.Outcome = OutcomeFrustrated
	}

	system, err := renderSystem(promptData{
		Scenario:   e.scenario,
		Tone:       l,
		Reaction:   Reaction(l),
		Threshold:  e.threshold,
		BadStreak:  next.BadStreak,
		Remedy:     remedy,
		Frustrated: next.Outcome == OutcomeFrustrated,
	})
	if err != nil {
		return "", thread, err
	}
	return system, next, nil
}

// Advance produces the customer's reply to utterance. The returned Step
// carries the thread to store for the next turn; thread itself is not modified.
func (e *Engine) Advance(ctx context.Context, thread Thread, utterance string, l tone.Label) (*Step, error) {
	system, next, err := e.Instruction(thread, utterance, l)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	resp, err := e.responder.Respond(ctx, llm.Request{
		System:             system,
		User:               utterance,
		PreviousResponseID: thread.ResponseID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrGenerationUnavailable)
	}

	next.ResponseID = resp.ID
	slog.Debug("persona advanced",
		"tone", l,
		"bad_streak", next.BadStreak,
		"outcome", next.Outcome,
		"threaded", thread.ResponseID != "")

	return &Step{Reply: reply, Thread: next}, nil
}
