// Package llm defines the inference backends used by the simulation.
//
// Two shapes are needed: a stateless Completer (one instruction, one user
// message, one answer) used for tone classification and the session
// critique, and a Responder that threads a provider-issued continuation
// token across calls so the persona keeps its conversational context.
package llm

import "context"

// Completer produces a single completion for a system instruction and a user message.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Request is one persona turn sent to a Responder.
type Request struct {
	// System is the instruction for this turn.
	System string

	// User is the salesperson's utterance.
	User string

	// PreviousResponseID is the continuation token returned by the previous
	// call, or empty on the first turn. It is opaque and passed through as-is.
	PreviousResponseID string
}

// Response is the outcome of a Responder call.
type Response struct {
	// ID is the continuation token to pass as PreviousResponseID next turn.
	ID string

	// Text is the generated reply.
	Text string
}

// Responder generates a reply while the provider retains context keyed by response ID.
type Responder interface {
	Respond(ctx context.Context, req Request) (*Response, error)
}
