// Package tone classifies a salesperson's utterance into a fixed tone taxonomy.
//
// The classification itself is delegated to an inference backend; this
// package owns the instruction sent to it and the mapping of its free-text
// answer back onto the taxonomy.
package tone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nadzzz/storefront/internal/llm"
)

// Label is one value of the tone taxonomy.
type Label string

const (
	Rude         Label = "rude"
	Defensive    Label = "defensive"
	Nonchalant   Label = "nonchalant"
	Sympathetic  Label = "sympathetic"
	Professional Label = "professional"
	Apologetic   Label = "apologetic"

	// Unknown is used whenever the backend fails or answers outside the taxonomy.
	Unknown Label = "unknown"
)

// Labels lists the six classifiable labels in prompt order.
var Labels = []Label{Rude, Defensive, Nonchalant, Sympathetic, Professional, Apologetic}

// ErrClassificationUnavailable is returned when no label could be obtained
// from the backend. Callers continue the turn with Unknown.
var ErrClassificationUnavailable = errors.New("classification unavailable")

// Negative reports whether the label counts as a bad interaction.
func (l Label) Negative() bool {
	switch l {
	case Rude, Defensive, Nonchalant:
		return true
	}
	return false
}

// Valid reports whether l is one of the seven recognized labels.
func (l Label) Valid() bool {
	if l == Unknown {
		return true
	}
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}

func (l Label) String() string { return string(l) }

// Parse maps raw backend output onto a Label. Whitespace, case, quotes,
// trailing punctuation and Markdown emphasis are ignored; anything else
// yields Unknown.
func Parse(raw string) Label {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, " \t\r\n*_`\"'.,!;:[]()")
	if s == "" {
		return Unknown
	}
	// Some models answer "Tone: defensive".
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		s = strings.TrimSpace(s[idx+1:])
	}
	for _, l := range Labels {
		if s == string(l) {
			return l
		}
	}
	return Unknown
}

const instruction = `You are analyzing a salesperson's spoken text in a customer service situation.

Classify their tone as one of the following:
[%s]

Base your choice only on the words and phrasing:
- Apologies, empathy words -> sympathetic or professional
- Dry, dismissive language -> nonchalant
- Blaming or excuses -> defensive
- Impolite or irritated tone -> rude
- Calm and helpful -> professional
- Overly sorry or self-blaming -> apologetic

Only return one label.`

// Instruction returns the system instruction sent to the backend.
func Instruction() string {
	names := make([]string, len(Labels))
	for i, l := range Labels {
		names[i] = string(l)
	}
	return fmt.Sprintf(instruction, strings.Join(names, ", "))
}

// Classifier labels utterances using a completion backend.
type Classifier struct {
	completer llm.Completer
}

// NewClassifier creates a Classifier backed by c.
func NewClassifier(c llm.Completer) *Classifier {
	return &Classifier{completer: c}
}

// Classify returns the tone of utterance. On failure it returns Unknown
// together with an error wrapping ErrClassificationUnavailable.
func (c *Classifier) Classify(ctx context.Context, utterance string) (Label, error) {
	if strings.TrimSpace(utterance) == "" {
		return Unknown, fmt.Errorf("%w: empty utterance", ErrClassificationUnavailable)
	}

	out, err := c.completer.Complete(ctx, Instruction(), utterance)
	if err != nil {
		return Unknown, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}
	if strings.TrimSpace(out) == "" {
		return Unknown, fmt.Errorf("%w: empty output", ErrClassificationUnavailable)
	}

	label := Parse(out)
	if label == Unknown {
		slog.Debug("classifier answered outside taxonomy", "raw", truncate(out, 64))
	}
	return label, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
