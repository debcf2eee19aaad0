package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type memoryEntry struct {
	state    *State
	lastSeen time.Time
}

// MemoryStore keeps sessions in process memory. Sessions idle for longer
// than the TTL are treated as expired. A zero TTL disables expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store with the given idle TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.lastSeen) > m.ttl
}

// Load returns a copy of the stored state, or a fresh state when the
// session is unknown or has expired.
func (m *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrNoSessionID
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || m.expired(e, now) {
		return New(id), nil
	}
	e.lastSeen = now
	return e.state.Clone(), nil
}

// Save stores a copy of st.
func (m *MemoryStore) Save(_ context.Context, st *State) error {
	if st == nil || st.ID == "" {
		return ErrNoSessionID
	}
	m.mu.Lock()
	m.entries[st.ID] = &memoryEntry{state: st.Clone(), lastSeen: m.now()}
	m.mu.Unlock()
	return nil
}

// Reset replaces the session with an empty state.
func (m *MemoryStore) Reset(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, ErrNoSessionID
	}
	st := New(id)
	if err := m.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (m *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.Debug("expired sessions swept", "removed", n)
			}
		}
	}
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
