package session

import "sync"

// Locker tracks which sessions have a turn in flight. A second turn for
// the same session is refused rather than queued.
//
// The lock is process-local. With the Redis store shared by several
// instances, requests for one session must be routed to the same instance.
type Locker struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{inflight: make(map[string]struct{})}
}

// TryAcquire marks id as busy. It returns false if a turn is already in
// flight; otherwise the returned release func must be called when the turn ends.
func (l *Locker) TryAcquire(id string) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.inflight[id]; busy {
		return nil, false
	}
	l.inflight[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.inflight, id)
			l.mu.Unlock()
		})
	}, true
}

// Busy reports whether id has a turn in flight.
func (l *Locker) Busy(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, busy := l.inflight[id]
	return busy
}
