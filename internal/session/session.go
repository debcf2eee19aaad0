// Package session holds per-session simulation state and its storage backends.
//
// A State binds a session ID to the persona thread and the ordered
// transcript log. Stores never hand out shared pointers: Load returns a
// copy, and changes become visible only through Save.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/storefront/internal/persona"
	"github.com/nadzzz/storefront/internal/tone"
)

// ErrNoSessionID is returned when an operation is given an empty session ID.
var ErrNoSessionID = errors.New("session id is required")

// TurnRecord is one committed exchange.
type TurnRecord struct {
	UserUtterance string     `json:"user_utterance"`
	Tone          tone.Label `json:"tone"`
	PersonaReply  string     `json:"persona_reply"`
	At            time.Time  `json:"at"`
}

// State is everything a session remembers between turns.
type State struct {
	ID        string         `json:"id"`
	Thread    persona.Thread `json:"thread"`
	Log       []TurnRecord   `json:"log"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New returns an empty state for id.
func New(id string) *State {
	now := time.Now().UTC()
	return &State{
		ID:        id,
		Log:       []TurnRecord{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Log = make([]TurnRecord, len(s.Log))
	copy(c.Log, s.Log)
	return &c
}

// Commit appends rec and replaces the thread. It is the only mutation a turn performs.
func (s *State) Commit(rec TurnRecord, thread persona.Thread) {
	s.Log = append(s.Log, rec)
	s.Thread = thread
	s.UpdatedAt = time.Now().UTC()
}

// Turns returns the number of committed turns.
func (s *State) Turns() int { return len(s.Log) }

// Store persists session state.
type Store interface {
	// Load returns the state for id, or a fresh empty state if none exists.
	Load(ctx context.Context, id string) (*State, error)

	// Save persists st under st.ID.
	Save(ctx context.Context, st *State) error

	// Reset replaces any state for id with a fresh empty one and returns it.
	Reset(ctx context.Context, id string) (*State, error)

	// Delete removes the state for id.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

// NewID returns a new random session ID.
func NewID() string {
	return uuid.NewString()
}
