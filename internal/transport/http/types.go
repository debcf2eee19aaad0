package http

import (
	"time"

	"github.com/nadzzz/storefront/internal/persona"
	"github.com/nadzzz/storefront/internal/session"
	"github.com/nadzzz/storefront/internal/tone"
	"github.com/nadzzz/storefront/internal/turn"
)

// TextTurnRequest is a pre-transcribed salesperson utterance.
type TextTurnRequest struct {
	// Text bypasses speech-to-text.
	Text string `json:"text" example:"I'm sorry, let me get you a replacement."`
}

// TurnResponse is returned for every committed turn.
type TurnResponse struct {
	Message   string `json:"message" example:"Success"`
	SessionID string `json:"session_id"`

	// Transcript is what the salesperson said.
	Transcript string `json:"transcript"`

	// AIResponse is the customer's reply.
	AIResponse string `json:"ai_response"`

	// Emotion is the detected tone of the salesperson.
	Emotion   tone.Label      `json:"emotion" example:"defensive"`
	BadStreak int             `json:"bad_streak"`
	Outcome   persona.Outcome `json:"outcome,omitempty" example:"resolved"`
	Turns     int             `json:"turns"`

	// Audio is the spoken reply, base64-encoded.
	Audio            []byte `json:"audio,omitempty" swaggertype:"string" format:"base64"`
	AudioContentType string `json:"audio_content_type,omitempty" example:"audio/mpeg"`

	// Warnings lists stages that degraded (tone fell back to unknown, no audio).
	Warnings []string `json:"warnings,omitempty"`
}

func newTurnResponse(sessionID string, res *turn.Result) TurnResponse {
	return TurnResponse{
		Message:          "Success",
		SessionID:        sessionID,
		Transcript:       res.Record.UserUtterance,
		AIResponse:       res.Record.PersonaReply,
		Emotion:          res.Record.Tone,
		BadStreak:        res.Thread.BadStreak,
		Outcome:          res.Thread.Outcome,
		Turns:            res.Turns,
		Audio:            res.Audio,
		AudioContentType: res.AudioContentType,
		Warnings:         res.Warnings(),
	}
}

// SessionStartResponse identifies a freshly reset session.
type SessionStartResponse struct {
	SessionID string `json:"session_id"`
}

// SessionEndResponse carries the mentor critique.
type SessionEndResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Markdown  string `json:"markdown,omitempty"`
	HTML      string `json:"html,omitempty"`
	Turns     int    `json:"turns"`
	Empty     bool   `json:"empty"`
}

// TurnView is one committed exchange.
type TurnView struct {
	UserUtterance string     `json:"user_utterance"`
	Tone          tone.Label `json:"tone"`
	PersonaReply  string     `json:"persona_reply"`
	At            time.Time  `json:"at"`
}

// SessionView is the committed state of a session.
type SessionView struct {
	SessionID string          `json:"session_id"`
	BadStreak int             `json:"bad_streak"`
	Outcome   persona.Outcome `json:"outcome,omitempty"`
	Turns     int             `json:"turns"`
	Log       []TurnView      `json:"log"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func newSessionView(st *session.State) SessionView {
	log := make([]TurnView, len(st.Log))
	for i, rec := range st.Log {
		log[i] = TurnView(rec)
	}
	return SessionView{
		SessionID: st.ID,
		BadStreak: st.Thread.BadStreak,
		Outcome:   st.Thread.Outcome,
		Turns:     st.Turns(),
		Log:       log,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message" example:"No file part"`
}
