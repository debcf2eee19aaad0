// Package summary turns a finished session's transcript into a mentor critique.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nadzzz/storefront/internal/llm"
	"github.com/nadzzz/storefront/internal/session"
)

// DefaultMaxWords bounds the critique length.
const DefaultMaxWords = 200

// NoConversation is the critique text for a session without turns.
const NoConversation = "No conversation to review yet."

// ErrSummaryUnavailable is returned when the critique could not be generated.
var ErrSummaryUnavailable = errors.New("summary unavailable")

// Sections are the critique headings, in order.
var Sections = []string{
	"Overall Handling",
	"Career Suitability",
	"Strengths",
	"Areas for Improvement",
}

// Critique is the mentor feedback for one session.
type Critique struct {
	// Markdown is the critique in lightweight markup.
	Markdown string

	// Turns is the number of turns reviewed.
	Turns int

	// Empty is set when there was nothing to review; Markdown is NoConversation.
	Empty bool
}

// Summarizer produces critiques using a completion backend.
type Summarizer struct {
	completer llm.Completer
	maxWords  int
}

// New creates a Summarizer. Non-positive maxWords selects DefaultMaxWords.
func New(c llm.Completer, maxWords int) *Summarizer {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Summarizer{completer: c, maxWords: maxWords}
}

// Transcript renders the log as alternating salesperson and customer lines.
func Transcript(log []session.TurnRecord) string {
	var sb strings.Builder
	for _, rec := range log {
		fmt.Fprintf(&sb, "Salesperson (%s): %s\n", rec.Tone, strings.TrimSpace(rec.UserUtterance))
		fmt.Fprintf(&sb, "Customer: %s\n", strings.TrimSpace(rec.PersonaReply))
	}
	return sb.String()
}

// Instruction returns the system instruction for the critique.
func (s *Summarizer) Instruction() string {
	var sb strings.Builder
	sb.WriteString("You are an experienced retail sales mentor reviewing a trainee's conversation with an angry customer ")
	sb.WriteString("whose product broke after two days. Each salesperson line is annotated with the tone detected for it.\n\n")
	sb.WriteString("Write a critique with exactly these four sections, in this order:\n")
	for _, name := range Sections {
		sb.WriteString("**" + name + "**\n")
	}
	sb.WriteString("\nFormatting rules:\n")
	sb.WriteString("- Each section heading is bold on its own line, exactly as written above.\n")
	sb.WriteString("- Under each heading write 1 to 3 bullet points starting with \"- \".\n")
	sb.WriteString("- Career Suitability states plainly whether the trainee seems suited to customer-facing sales.\n")
	sb.WriteString("- Quote the trainee's words where it helps.\n")
	fmt.Fprintf(&sb, "- Keep the whole critique under %d words.\n", s.maxWords)
	return sb.String()
}

// Summarize critiques log. An empty log yields an Empty critique without
// calling the backend.
func (s *Summarizer) Summarize(ctx context.Context, log []session.TurnRecord) (*Critique, error) {
	if len(log) == 0 {
		return &Critique{Markdown: NoConversation, Empty: true}, nil
	}

	out, err := s.completer.Complete(ctx, s.Instruction(), Transcript(log))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummaryUnavailable, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, fmt.Errorf("%w: empty output", ErrSummaryUnavailable)
	}
	return &Critique{Markdown: out, Turns: len(log)}, nil
}
